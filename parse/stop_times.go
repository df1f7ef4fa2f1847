package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"miway.dev/gtfs/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	Headsign      string `csv:"stop_headsign"`
}

// Converts H:MM:SS or HH:MM:SS into HHMMSS. Hours may exceed 24.
func parseStopTimeTime(s string) (string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("found %d parts in '%s'", len(parts), s)
	}

	var hms [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = n
	}

	switch {
	case hms[0] < 0 || hms[0] > 99:
		return "", fmt.Errorf("invalid hour in '%s'", s)
	case hms[1] < 0 || hms[1] > 59:
		return "", fmt.Errorf("invalid minute in '%s'", s)
	case hms[2] < 0 || hms[2] > 59:
		return "", fmt.Errorf("invalid second in '%s'", s)
	}

	return fmt.Sprintf("%02d%02d%02d", hms[0], hms[1], hms[2]), nil
}

// Returns max arrival and departure time, as HHMMSS.
func ParseStopTimes(
	writer FeedWriter,
	data io.Reader,
	trips map[string]bool,
	stops map[string]bool,
) (string, string, error) {
	seqSeen := map[string]map[uint32]bool{}
	latest := &model.StopTime{Arrival: "000000", Departure: "000000"}

	row := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		row++
		if !trips[st.TripID] {
			return fmt.Errorf("unknown trip_id '%s' (row %d)", st.TripID, row)
		}
		if st.StopID == "" {
			return fmt.Errorf("missing stop_id (row %d)", row)
		}
		if !stops[st.StopID] {
			return fmt.Errorf("unknown stop_id '%s' (row %d)", st.StopID, row)
		}

		if seqSeen[st.TripID] == nil {
			seqSeen[st.TripID] = map[uint32]bool{}
		}
		if seqSeen[st.TripID][st.StopSequence] {
			return fmt.Errorf("duplicate stop_sequence %d for trip_id '%s'", st.StopSequence, st.TripID)
		}
		seqSeen[st.TripID][st.StopSequence] = true

		arrival, err := parseStopTimeTime(st.ArrivalTime)
		if err != nil {
			return errors.Wrapf(err, "parsing arrival_time (row %d)", row)
		}
		departure, err := parseStopTimeTime(st.DepartureTime)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", row)
		}

		stopTime := &model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			Headsign:     st.Headsign,
			StopSequence: st.StopSequence,
			Arrival:      arrival,
			Departure:    departure,
		}
		if stopTime.ArrivalTime() > latest.ArrivalTime() {
			latest.Arrival = arrival
		}
		if stopTime.DepartureTime() > latest.DepartureTime() {
			latest.Departure = departure
		}

		err = writer.WriteStopTime(stopTime)
		return errors.Wrapf(err, "writing stop_time (row %d)", row)
	})
	if err != nil {
		return "", "", errors.Wrap(err, "unmarshaling stop_times csv")
	}

	return latest.Arrival, latest.Departure, nil
}
