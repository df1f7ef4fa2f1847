// Package agency defines the hooks an agency adapter implements to
// customize feed generation, and the defaults used when it doesn't.
package agency

import (
	"miway.dev/gtfs/cleanup"
	"miway.dev/gtfs/model"
)

// Agency is called by the generator once per record, in feed order.
// Hooks never run concurrently.
type Agency interface {
	// Human readable name, for logs.
	Name() string

	AgencyColor() string
	AgencyRouteType() model.RouteType

	// Inclusion predicates. services is the configured set of useful
	// service IDs, possibly nil.
	ExcludingAll(services *ServiceIDs) bool
	ExcludeCalendar(cal *model.Calendar, services *ServiceIDs) bool
	ExcludeCalendarDate(cd *model.CalendarDate, services *ServiceIDs) bool
	ExcludeTrip(trip *model.Trip, services *ServiceIDs) bool
	ExcludeRoute(route *model.Route) bool

	// Returns the route's color, or "" to use the agency color. An
	// error aborts generation.
	RouteColor(route *model.Route) (string, error)
	RouteLongName(route *model.Route) string

	SetTripHeadsign(route *model.OutputRoute, trip *model.OutputTrip, gTrip *model.Trip) error
	CleanTripHeadsign(headsign string) string

	// Direction finding. When enabled, the generator passes each trip
	// headsign through CleanDirectionHeadsign and ConvertDirection. An
	// error from ConvertDirection aborts generation.
	DirectionFinderEnabled() bool
	DirectionType() model.HeadsignType
	CleanDirectionHeadsign(fromStopName bool, headsign string) string
	ConvertDirection(headsign string) (model.DirectionType, error)

	CleanStopName(name string) string
	StopCode(stop *model.Stop) string
}

// Default implements every hook with the generic behavior. Adapters
// embed it and override what they need.
type Default struct{}

func (Default) Name() string { return "default" }

func (Default) AgencyColor() string { return "" }

func (Default) AgencyRouteType() model.RouteType { return model.RouteTypeBus }

func (Default) ExcludingAll(services *ServiceIDs) bool { return false }

func (Default) ExcludeCalendar(cal *model.Calendar, services *ServiceIDs) bool { return false }

func (Default) ExcludeCalendarDate(cd *model.CalendarDate, services *ServiceIDs) bool { return false }

func (Default) ExcludeTrip(trip *model.Trip, services *ServiceIDs) bool { return false }

func (Default) ExcludeRoute(route *model.Route) bool { return false }

func (Default) RouteColor(route *model.Route) (string, error) {
	return route.Color, nil
}

func (Default) RouteLongName(route *model.Route) string {
	return cleanup.CleanLabel(route.LongName)
}

func (Default) SetTripHeadsign(route *model.OutputRoute, trip *model.OutputTrip, gTrip *model.Trip) error {
	trip.SetHeadsignString(cleanup.CleanLabel(gTrip.Headsign), gTrip.DirectionID)
	return nil
}

func (Default) CleanTripHeadsign(headsign string) string {
	return cleanup.CleanLabel(headsign)
}

func (Default) DirectionFinderEnabled() bool { return false }

func (Default) DirectionType() model.HeadsignType { return model.HeadsignTypeString }

func (Default) CleanDirectionHeadsign(fromStopName bool, headsign string) string {
	return cleanup.CleanLabel(headsign)
}

func (Default) ConvertDirection(headsign string) (model.DirectionType, error) {
	return model.DirectionNone, nil
}

func (Default) CleanStopName(name string) string {
	return cleanup.CleanLabel(name)
}

func (Default) StopCode(stop *model.Stop) string {
	return stop.Code
}
