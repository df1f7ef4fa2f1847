package gtfs

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/model"
	"miway.dev/gtfs/parse"
)

// Generator receives a parsed feed and turns it into an agency's
// Output. Exclusion hooks run as records arrive, so excluded trips and
// their stop times are never held in memory.
type Generator struct {
	Agency   agency.Agency
	Services *agency.ServiceIDs
	Logger   *zap.Logger

	Dropped DropCounts

	agencies      []*model.Agency
	routes        []*model.Route
	calendars     []*model.Calendar
	calendarDates []*model.CalendarDate
	trips         []*model.Trip
	tripByID      map[string]*model.Trip
	stops         map[string]*model.Stop
	tripStops     map[string][]string
}

// Number of records dropped, per kind.
type DropCounts struct {
	Calendars     int
	CalendarDates int
	Trips         int
	StopTimes     int
	Routes        int
	Stops         int
}

var _ parse.FeedWriter = (*Generator)(nil)

func NewGenerator(a agency.Agency, services *agency.ServiceIDs, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		Agency:    a,
		Services:  services,
		Logger:    logger,
		tripByID:  map[string]*model.Trip{},
		stops:     map[string]*model.Stop{},
		tripStops: map[string][]string{},
	}
}

func (g *Generator) WriteAgency(a *model.Agency) error {
	g.agencies = append(g.agencies, a)
	return nil
}

func (g *Generator) WriteRoute(route *model.Route) error {
	g.routes = append(g.routes, route)
	return nil
}

func (g *Generator) WriteCalendar(cal *model.Calendar) error {
	if g.Agency.ExcludeCalendar(cal, g.Services) {
		g.Dropped.Calendars++
		return nil
	}
	g.calendars = append(g.calendars, cal)
	return nil
}

func (g *Generator) WriteCalendarDate(cd *model.CalendarDate) error {
	if g.Agency.ExcludeCalendarDate(cd, g.Services) {
		g.Dropped.CalendarDates++
		return nil
	}
	g.calendarDates = append(g.calendarDates, cd)
	return nil
}

func (g *Generator) BeginTrips() error { return nil }

func (g *Generator) WriteTrip(trip *model.Trip) error {
	if g.Agency.ExcludeTrip(trip, g.Services) {
		g.Dropped.Trips++
		return nil
	}
	g.trips = append(g.trips, trip)
	g.tripByID[trip.ID] = trip
	return nil
}

func (g *Generator) EndTrips() error { return nil }

func (g *Generator) WriteStop(stop *model.Stop) error {
	g.stops[stop.ID] = stop
	return nil
}

func (g *Generator) BeginStopTimes() error { return nil }

// Only the stops a kept trip serves matter.
func (g *Generator) WriteStopTime(st *model.StopTime) error {
	if _, kept := g.tripByID[st.TripID]; !kept {
		g.Dropped.StopTimes++
		return nil
	}
	g.tripStops[st.TripID] = append(g.tripStops[st.TripID], st.StopID)
	return nil
}

func (g *Generator) EndStopTimes() error { return nil }

func (g *Generator) Close() error { return nil }

// Assembles the Output from everything received. Any hook error aborts
// the build.
func (g *Generator) Build() (*model.Output, error) {
	if len(g.agencies) == 0 {
		return nil, fmt.Errorf("no agency received")
	}

	out := &model.Output{
		Agency:       g.buildAgency(),
		Routes:       []model.OutputRoute{},
		Trips:        []model.OutputTrip{},
		Stops:        []model.OutputStop{},
		ServiceDates: []model.ServiceDate{},
	}

	tripsByRoute := map[string][]*model.Trip{}
	for _, trip := range g.trips {
		tripsByRoute[trip.RouteID] = append(tripsByRoute[trip.RouteID], trip)
	}

	seenTrips := map[model.OutputTrip]bool{}
	stopIDs := map[string]bool{}

	for _, route := range g.routes {
		trips := tripsByRoute[route.ID]
		if len(trips) == 0 || g.Agency.ExcludeRoute(route) {
			g.Dropped.Routes++
			continue
		}

		color, err := g.Agency.RouteColor(route)
		if err != nil {
			return nil, fmt.Errorf("coloring route '%s': %w", route.ID, err)
		}
		if color == "" {
			color = out.Agency.Color
		}

		outRoute := model.OutputRoute{
			ID:        route.ID,
			ShortName: route.ShortName,
			LongName:  g.Agency.RouteLongName(route),
			Color:     color,
		}
		out.Routes = append(out.Routes, outRoute)

		for _, trip := range trips {
			outTrip, err := g.buildTrip(&outRoute, trip)
			if err != nil {
				return nil, err
			}
			if !seenTrips[*outTrip] {
				seenTrips[*outTrip] = true
				out.Trips = append(out.Trips, *outTrip)
			}
			for _, stopID := range g.tripStops[trip.ID] {
				stopIDs[stopID] = true
			}
		}
	}

	for stopID, stop := range g.stops {
		if !stopIDs[stopID] {
			g.Dropped.Stops++
			continue
		}
		out.Stops = append(out.Stops, model.OutputStop{
			ID:   stop.ID,
			Code: g.Agency.StopCode(stop),
			Name: g.Agency.CleanStopName(stop.Name),
			Lat:  stop.Lat,
			Lon:  stop.Lon,
		})
	}

	dates, err := g.serviceDates()
	if err != nil {
		return nil, err
	}
	out.ServiceDates = dates

	out.Sort()

	g.Logger.Info("built output",
		zap.String("agency", g.Agency.Name()),
		zap.Int("routes", len(out.Routes)),
		zap.Int("trips", len(out.Trips)),
		zap.Int("stops", len(out.Stops)),
		zap.Int("service_dates", len(out.ServiceDates)),
		zap.Any("dropped", g.Dropped),
	)

	return out, nil
}

func (g *Generator) buildAgency() model.OutputAgency {
	a := g.agencies[0]
	id := a.ID
	if id == "" {
		id = a.Name
	}
	return model.OutputAgency{
		ID:        id,
		Timezone:  a.Timezone,
		Color:     g.Agency.AgencyColor(),
		RouteType: g.Agency.AgencyRouteType(),
	}
}

func (g *Generator) buildTrip(route *model.OutputRoute, trip *model.Trip) (*model.OutputTrip, error) {
	outTrip := &model.OutputTrip{RouteID: route.ID}

	err := g.Agency.SetTripHeadsign(route, outTrip, trip)
	if err != nil {
		return nil, fmt.Errorf("setting headsign of trip '%s': %w", trip.ID, err)
	}

	if g.Agency.DirectionFinderEnabled() {
		headsign := g.Agency.CleanDirectionHeadsign(false, trip.Headsign)
		direction, err := g.Agency.ConvertDirection(headsign)
		if err != nil {
			return nil, fmt.Errorf("finding direction of trip '%s': %w", trip.ID, err)
		}
		outTrip.SetHeadsignDirection(direction)
	}

	return outTrip, nil
}

// Expands calendars into dates, then applies calendar_dates on top.
func (g *Generator) serviceDates() ([]model.ServiceDate, error) {
	active := map[model.ServiceDate]bool{}

	for _, cal := range g.calendars {
		start, err := time.Parse("20060102", cal.StartDate)
		if err != nil {
			return nil, fmt.Errorf("service '%s' start_date: %w", cal.ServiceID, err)
		}
		end, err := time.Parse("20060102", cal.EndDate)
		if err != nil {
			return nil, fmt.Errorf("service '%s' end_date: %w", cal.ServiceID, err)
		}

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if cal.RunsOn(day.Weekday()) {
				active[model.ServiceDate{ServiceID: cal.ServiceID, Date: day.Format("20060102")}] = true
			}
		}
	}

	for _, cd := range g.calendarDates {
		key := model.ServiceDate{ServiceID: cd.ServiceID, Date: cd.Date}
		switch cd.ExceptionType {
		case model.ExceptionTypeAdded:
			active[key] = true
		case model.ExceptionTypeRemoved:
			delete(active, key)
		}
	}

	dates := make([]model.ServiceDate, 0, len(active))
	for d := range active {
		dates = append(dates, d)
	}
	return dates, nil
}
