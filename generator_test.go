package gtfs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"miway.dev/gtfs"
	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/miway"
	"miway.dev/gtfs/model"
	"miway.dev/gtfs/parse"
	"miway.dev/gtfs/testutil"
)

func generate(t *testing.T, a agency.Agency, services *agency.ServiceIDs, files map[string][]string) (*gtfs.Generator, *model.Output, error) {
	gen := gtfs.NewGenerator(a, services, zaptest.NewLogger(t))
	_, err := parse.ParseStatic(gen, testutil.BuildZip(t, files))
	require.NoError(t, err)
	out, err := gen.Build()
	return gen, out, err
}

func expectedMiWayOutput() *model.Output {
	return &model.Output{
		Agency: model.OutputAgency{
			ID:        "MiWay",
			Timezone:  "America/Toronto",
			Color:     "D33517",
			RouteType: model.RouteTypeBus,
		},
		Routes: []model.OutputRoute{
			{ID: "1", ShortName: "1", LongName: "Dundas", Color: "D33517"},
			{ID: "2", ShortName: "2", LongName: "Hurontario", Color: "D33517"},
			{ID: "300", ShortName: "300", LongName: "Rick Hansen Secondary School", Color: "6F5F5E"},
		},
		Trips: []model.OutputTrip{
			{RouteID: "1", Headsign: "", DirectionID: 0, Direction: model.DirectionEast},
			{RouteID: "1", Headsign: "", DirectionID: 1, Direction: model.DirectionWest},
			{RouteID: "2", Headsign: "CW", DirectionID: 0, Direction: model.DirectionNone},
			{RouteID: "300", Headsign: "", DirectionID: 0, Direction: model.DirectionNorth},
		},
		Stops: []model.OutputStop{
			{ID: "100", Code: "0100", Name: "Dundas St / Mavis Rd", Lat: 43.5901, Lon: -79.6401},
			{ID: "200", Code: "0200", Name: "City Ctr Transit Terminal P 3", Lat: 43.5932, Lon: -79.6427},
			{ID: "300", Code: "0300", Name: "Mavis Rd NB / Eglinton Ave", Lat: 43.6101, Lon: -79.6801},
		},
		ServiceDates: []model.ServiceDate{
			{ServiceID: "saturday", Date: "20190105"},
			{ServiceID: "weekday", Date: "20190102"},
			{ServiceID: "weekday", Date: "20190103"},
			{ServiceID: "weekday", Date: "20190104"},
			{ServiceID: "weekday", Date: "20190105"},
			{ServiceID: "weekday", Date: "20190107"},
		},
	}
}

func TestGenerateMiWay(t *testing.T) {
	services := agency.NewServiceIDs("weekday", "saturday")

	gen, out, err := generate(t, miway.New(), services, testutil.MiWayFeed())
	require.NoError(t, err)

	assert.Equal(t, expectedMiWayOutput(), out)
	assert.Equal(t, gtfs.DropCounts{
		Calendars:     1,
		CalendarDates: 1,
		Trips:         1,
		StopTimes:     1,
		Routes:        1,
		Stops:         2,
	}, gen.Dropped)
}

func TestGenerateMiWayUnfiltered(t *testing.T) {
	_, out, err := generate(t, miway.New(), nil, testutil.MiWayFeed())
	require.NoError(t, err)

	// The "old" trip collapses into route 1's eastbound trip, but
	// brings its stop and dates along.
	expected := expectedMiWayOutput()
	expected.Stops = append(expected.Stops, model.OutputStop{
		ID: "400", Code: "0400", Name: "Old Stop", Lat: 43.6201, Lon: -79.6901,
	})
	expected.ServiceDates = append([]model.ServiceDate{
		{ServiceID: "old", Date: "20180101"},
		{ServiceID: "old", Date: "20180102"},
	}, expected.ServiceDates...)

	assert.Equal(t, expected, out)
}

func TestGenerateUnexpectedDirection(t *testing.T) {
	files := testutil.MiWayFeed()
	files["trips.txt"] = append(files["trips.txt"], "1,weekday,t7,Downtown,0")

	_, _, err := generate(t, miway.New(), nil, files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, miway.ErrUnexpectedDirection))
	assert.Contains(t, err.Error(), "t7")
	assert.Contains(t, err.Error(), "Downtown")
}

func TestGenerateBlankHeadsign(t *testing.T) {
	files := testutil.MiWayFeed()
	files["trips.txt"] = append(files["trips.txt"], "1,weekday,t7,,0")

	_, _, err := generate(t, miway.New(), nil, files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, miway.ErrUnexpectedDirection))
	assert.Contains(t, err.Error(), "t7")
}

func TestGenerateNonNumericRoute(t *testing.T) {
	files := testutil.MiWayFeed()
	files["routes.txt"] = append(files["routes.txt"], "A1,MiWay,A1,EXPRESS,3,")
	files["trips.txt"] = append(files["trips.txt"], "A1,weekday,t7,Eastbound,0")

	_, _, err := generate(t, miway.New(), nil, files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A1")
}

func TestGenerateDefaultAgency(t *testing.T) {
	files := testutil.MiWayFeed()
	files["routes.txt"][1] = "1,MiWay,1,DUNDAS,3,00AA00"

	_, out, err := generate(t, agency.Default{}, nil, files)
	require.NoError(t, err)

	// Feed colors pass through, and there's no agency color to fall
	// back on.
	assert.Equal(t, "", out.Agency.Color)
	assert.Equal(t, []model.OutputRoute{
		{ID: "1", ShortName: "1", LongName: "Dundas", Color: "00AA00"},
		{ID: "2", ShortName: "2", LongName: "Hurontario", Color: ""},
		{ID: "300", ShortName: "300", LongName: "Rick Hansen Secondary School", Color: ""},
	}, out.Routes)

	// Headsigns are only cleaned up, no directions are derived.
	assert.Equal(t, []model.OutputTrip{
		{RouteID: "1", Headsign: "Eastbound", DirectionID: 0},
		{RouteID: "1", Headsign: "Westbound", DirectionID: 1},
		{RouteID: "2", Headsign: "CW", DirectionID: 0},
		{RouteID: "300", Headsign: "Northbound", DirectionID: 0},
	}, out.Trips)

	assert.Equal(t, "Dundas St At Mavis Rd", out.Stops[0].Name)
}

func TestGenerateNoAgency(t *testing.T) {
	gen := gtfs.NewGenerator(miway.New(), nil, zaptest.NewLogger(t))
	_, err := gen.Build()
	assert.Error(t, err)
}
