package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"miway.dev/gtfs/model"
)

type StopCSV struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Desc          string  `csv:"stop_desc"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	URL           string  `csv:"stop_url"`
	LocationType  int8    `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
	PlatformCode  string  `csv:"platform_code"`
}

// Returns the set of stop IDs.
func ParseStops(writer FeedWriter, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stops := map[string]bool{}
	parents := map[string]string{}

	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if stops[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		stops[st.ID] = true

		locationType := model.LocationType(st.LocationType)
		if locationType < model.LocationTypeStop || locationType > model.LocationTypeBoardingArea {
			return nil, fmt.Errorf("invalid location_type %d for stop_id '%s'", st.LocationType, st.ID)
		}

		// Name and position are optional for generic nodes and
		// boarding areas only.
		if locationType != model.LocationTypeGenericNode && locationType != model.LocationTypeBoardingArea {
			if st.Name == "" {
				return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
			}
			if st.Lat == 0 || st.Lon == 0 {
				return nil, fmt.Errorf("empty stop_lat or stop_lon for stop_id '%s'", st.ID)
			}
		}

		if st.ParentStation != "" {
			parents[st.ID] = st.ParentStation
		}

		err := writer.WriteStop(&model.Stop{
			ID:            st.ID,
			Code:          st.Code,
			Name:          st.Name,
			Desc:          st.Desc,
			Lat:           st.Lat,
			Lon:           st.Lon,
			URL:           st.URL,
			LocationType:  locationType,
			ParentStation: st.ParentStation,
			PlatformCode:  st.PlatformCode,
		})
		if err != nil {
			return nil, fmt.Errorf("writing stop '%s': %w", st.ID, err)
		}
	}

	for stopID, parentID := range parents {
		if !stops[parentID] {
			return nil, fmt.Errorf("stop '%s' references unknown parent_station '%s'", stopID, parentID)
		}
	}

	return stops, nil
}
