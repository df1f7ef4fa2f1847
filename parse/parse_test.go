package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miway.dev/gtfs/model"
	"miway.dev/gtfs/testutil"
)

// Collects everything written to it.
type recorder struct {
	agencies      []*model.Agency
	routes        []*model.Route
	calendars     []*model.Calendar
	calendarDates []*model.CalendarDate
	trips         []*model.Trip
	stops         []*model.Stop
	stopTimes     []*model.StopTime

	inTrips     bool
	inStopTimes bool
	closed      bool
}

func (r *recorder) WriteAgency(a *model.Agency) error { r.agencies = append(r.agencies, a); return nil }
func (r *recorder) WriteRoute(rt *model.Route) error  { r.routes = append(r.routes, rt); return nil }
func (r *recorder) WriteCalendar(c *model.Calendar) error {
	r.calendars = append(r.calendars, c)
	return nil
}
func (r *recorder) WriteCalendarDate(cd *model.CalendarDate) error {
	r.calendarDates = append(r.calendarDates, cd)
	return nil
}
func (r *recorder) BeginTrips() error { r.inTrips = true; return nil }
func (r *recorder) WriteTrip(t *model.Trip) error {
	r.trips = append(r.trips, t)
	return nil
}
func (r *recorder) EndTrips() error                  { r.inTrips = false; return nil }
func (r *recorder) WriteStop(s *model.Stop) error     { r.stops = append(r.stops, s); return nil }
func (r *recorder) BeginStopTimes() error             { r.inStopTimes = true; return nil }
func (r *recorder) EndStopTimes() error               { r.inStopTimes = false; return nil }
func (r *recorder) Close() error                      { r.closed = true; return nil }
func (r *recorder) WriteStopTime(st *model.StopTime) error {
	r.stopTimes = append(r.stopTimes, st)
	return nil
}

// A simple GTFS feed with all required data
func fixtureSimple() map[string][]string {
	return map[string][]string{
		"agency.txt": {
			"agency_timezone,agency_name,agency_url",
			"America/Toronto,MiWay,http://www.mississauga.ca/portal/miway",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type",
			"1,1,DUNDAS,3",
		},
		"calendar.txt": {
			"service_id,monday,start_date,end_date",
			"mondays,1,20190101,20190301",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"mondays,20190302,1",
		},
		"trips.txt": {
			"route_id,service_id,trip_id,trip_headsign,direction_id",
			"1,mondays,t,Eastbound,0",
		},
		"stops.txt": {
			"stop_id,stop_code,stop_name,stop_lat,stop_lon",
			"s,0123,Dundas St at Mavis Rd,43.59,-79.64",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"t,12:00:00,12:00:00,s,1",
		},
	}
}

func TestParseValidFeed(t *testing.T) {
	w := &recorder{}
	metadata, err := ParseStatic(w, testutil.BuildZip(t, fixtureSimple()))
	require.NoError(t, err)

	assert.Equal(t, &Metadata{
		Timezone:          "America/Toronto",
		CalendarStartDate: "20190101",
		CalendarEndDate:   "20190302",
		MaxArrival:        "120000",
		MaxDeparture:      "120000",
	}, metadata)

	assert.Equal(t, []*model.Agency{{
		Name:     "MiWay",
		URL:      "http://www.mississauga.ca/portal/miway",
		Timezone: "America/Toronto",
	}}, w.agencies)
	assert.Equal(t, []*model.Route{{
		ID:        "1",
		ShortName: "1",
		LongName:  "DUNDAS",
		Type:      model.RouteTypeBus,
	}}, w.routes)
	assert.Equal(t, []*model.Calendar{{
		ServiceID: "mondays",
		Weekday:   1 << time.Monday,
		StartDate: "20190101",
		EndDate:   "20190301",
	}}, w.calendars)
	assert.Equal(t, []*model.CalendarDate{{
		ServiceID:     "mondays",
		Date:          "20190302",
		ExceptionType: model.ExceptionTypeAdded,
	}}, w.calendarDates)
	assert.Equal(t, []*model.Trip{{
		ID:        "t",
		RouteID:   "1",
		ServiceID: "mondays",
		Headsign:  "Eastbound",
	}}, w.trips)
	assert.Equal(t, []*model.Stop{{
		ID:   "s",
		Code: "0123",
		Name: "Dundas St at Mavis Rd",
		Lat:  43.59,
		Lon:  -79.64,
	}}, w.stops)
	assert.Equal(t, []*model.StopTime{{
		TripID:       "t",
		StopID:       "s",
		StopSequence: 1,
		Arrival:      "120000",
		Departure:    "120000",
	}}, w.stopTimes)

	assert.False(t, w.inTrips)
	assert.False(t, w.inStopTimes)
	assert.True(t, w.closed)
}

func TestParseMissingRequiredFile(t *testing.T) {
	for _, file := range []string{
		"agency.txt",
		"routes.txt",
		"trips.txt",
		"stops.txt",
		"stop_times.txt",
	} {
		files := fixtureSimple()
		delete(files, file)
		_, err := ParseStatic(&recorder{}, testutil.BuildZip(t, files))
		assert.Error(t, err, "missing "+file)
	}

	// Either calendar file may be missing, but not both.
	files := fixtureSimple()
	delete(files, "calendar.txt")
	metadata, err := ParseStatic(&recorder{}, testutil.BuildZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, "20190302", metadata.CalendarStartDate)
	assert.Equal(t, "20190302", metadata.CalendarEndDate)

	files = fixtureSimple()
	delete(files, "calendar_dates.txt")
	metadata, err = ParseStatic(&recorder{}, testutil.BuildZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, "20190101", metadata.CalendarStartDate)
	assert.Equal(t, "20190301", metadata.CalendarEndDate)

	files = fixtureSimple()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	_, err = ParseStatic(&recorder{}, testutil.BuildZip(t, files))
	assert.Error(t, err)
}

func TestParseBrokenFile(t *testing.T) {
	for file := range fixtureSimple() {
		files := fixtureSimple()
		files[file][1] = "malformed"
		_, err := ParseStatic(&recorder{}, testutil.BuildZip(t, files))
		assert.Error(t, err, "malformed "+file)
	}

	_, err := ParseStatic(&recorder{}, []byte("malformed"))
	assert.Error(t, err, "malformed zip file")
}

// Some agencies zip the directory holding the feed.
func TestParseSubdirectory(t *testing.T) {
	files := map[string][]string{}
	for name, content := range fixtureSimple() {
		files["google_transit/"+name] = content
	}

	w := &recorder{}
	metadata, err := ParseStatic(w, testutil.BuildZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, "America/Toronto", metadata.Timezone)
	assert.Len(t, w.trips, 1)
}

func TestParseBOM(t *testing.T) {
	files := fixtureSimple()
	files["agency.txt"][0] = "\ufeff" + files["agency.txt"][0]

	w := &recorder{}
	metadata, err := ParseStatic(w, testutil.BuildZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, "America/Toronto", metadata.Timezone)
}
