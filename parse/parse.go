package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"miway.dev/gtfs/model"
)

// Receives GTFS records one at a time, in the order ParseStatic
// reads them: agency, routes, calendar, calendar_dates, trips, stops,
// stop_times.
//
// BeginTrips()/EndTrips() and BeginStopTimes()/EndStopTimes() bracket
// the two large files.
type FeedWriter interface {
	WriteAgency(agency *model.Agency) error
	WriteRoute(route *model.Route) error
	WriteCalendar(cal *model.Calendar) error
	WriteCalendarDate(cd *model.CalendarDate) error
	BeginTrips() error
	WriteTrip(trip *model.Trip) error
	EndTrips() error
	WriteStop(stop *model.Stop) error
	BeginStopTimes() error
	WriteStopTime(stopTime *model.StopTime) error
	EndStopTimes() error
	Close() error
}

// Key information about a parsed feed.
type Metadata struct {
	Timezone          string
	CalendarStartDate string
	CalendarEndDate   string
	MaxArrival        string
	MaxDeparture      string
}

func ParseStatic(writer FeedWriter, buf []byte) (*Metadata, error) {
	file := map[string]io.ReadCloser{
		"agency.txt":         nil,
		"routes.txt":         nil,
		"stops.txt":          nil,
		"trips.txt":          nil,
		"stop_times.txt":     nil,
		"calendar.txt":       nil,
		"calendar_dates.txt": nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// Some agencies zip a directory rather than its contents.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	if file["calendar.txt"] == nil && file["calendar_dates.txt"] == nil {
		return nil, fmt.Errorf("missing calendar.txt and calendar_dates.txt")
	}

	for _, required := range []string{"agency.txt", "routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader survives sloppy quoting, and the BOM reader
	// strips the BOM some exporters prepend.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	agency, timezone, err := ParseAgency(writer, file["agency.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing agency.txt: %w", err)
	}

	routes, err := ParseRoutes(writer, file["routes.txt"], agency)
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}

	var calendarStart, calendarEnd string
	services := map[string]bool{}
	if file["calendar.txt"] != nil {
		services, calendarStart, calendarEnd, err = ParseCalendar(writer, file["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
	}
	if file["calendar_dates.txt"] != nil {
		cdServices, minDate, maxDate, err := ParseCalendarDates(writer, file["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
		for serviceID := range cdServices {
			services[serviceID] = true
		}
		if minDate != "" && (calendarStart == "" || minDate < calendarStart) {
			calendarStart = minDate
		}
		if maxDate != "" && (calendarEnd == "" || maxDate > calendarEnd) {
			calendarEnd = maxDate
		}
	}

	err = writer.BeginTrips()
	if err != nil {
		return nil, fmt.Errorf("beginning trips: %w", err)
	}
	trips, err := ParseTrips(writer, file["trips.txt"], routes, services)
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}
	err = writer.EndTrips()
	if err != nil {
		return nil, fmt.Errorf("ending trips: %w", err)
	}

	stops, err := ParseStops(writer, file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}

	err = writer.BeginStopTimes()
	if err != nil {
		return nil, fmt.Errorf("beginning stop_times: %w", err)
	}
	maxArrival, maxDeparture, err := ParseStopTimes(writer, file["stop_times.txt"], trips, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}
	err = writer.EndStopTimes()
	if err != nil {
		return nil, fmt.Errorf("ending stop_times: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("closing feed writer: %w", err)
	}

	return &Metadata{
		Timezone:          timezone,
		CalendarStartDate: calendarStart,
		CalendarEndDate:   calendarEnd,
		MaxArrival:        maxArrival,
		MaxDeparture:      maxDeparture,
	}, nil
}
