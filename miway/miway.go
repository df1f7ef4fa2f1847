// Package miway adapts the Mississauga MiWay bus feed.
//
// http://www.mississauga.ca/portal/miway/developerdownload
// https://www.miapp.ca/GTFS/google_transit.zip
package miway

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/cleanup"
	"miway.dev/gtfs/model"
)

const (
	agencyColor = "D33517" // orange

	schoolRouteColor = "6F5F5E"
	schoolRouteMin   = 300
	schoolRouteMax   = 399
)

// ErrUnexpectedDirection means a trip headsign matched none of the known
// direction forms. Generation must stop: the adapter needs updating for
// the new headsign format.
var ErrUnexpectedDirection = errors.New("unexpected direction")

var (
	removeBounds = cleanup.CleanWords("eastbound", "westbound", "northbound", "southbound")
	platform     = regexp.MustCompile(`(?i)\s+platform\s+`)
)

type MiWay struct {
	agency.Default
}

var _ agency.Agency = (*MiWay)(nil)

func New() *MiWay {
	return &MiWay{}
}

func (m *MiWay) Name() string { return "Mississauga MiWay bus" }

func (m *MiWay) AgencyColor() string { return agencyColor }

func (m *MiWay) AgencyRouteType() model.RouteType { return model.RouteTypeBus }

func (m *MiWay) ExcludingAll(services *agency.ServiceIDs) bool {
	return services != nil && services.Empty()
}

func (m *MiWay) ExcludeCalendar(cal *model.Calendar, services *agency.ServiceIDs) bool {
	if services != nil {
		return agency.ExcludeUselessCalendar(cal, services)
	}
	return m.Default.ExcludeCalendar(cal, services)
}

func (m *MiWay) ExcludeCalendarDate(cd *model.CalendarDate, services *agency.ServiceIDs) bool {
	if services != nil {
		return agency.ExcludeUselessCalendarDate(cd, services)
	}
	return m.Default.ExcludeCalendarDate(cd, services)
}

func (m *MiWay) ExcludeTrip(trip *model.Trip, services *agency.ServiceIDs) bool {
	if services != nil {
		return agency.ExcludeUselessTrip(trip, services)
	}
	return m.Default.ExcludeTrip(trip, services)
}

// School routes (300-399) share one color. Route IDs are numeric in
// this feed; anything else is an error.
func (m *MiWay) RouteColor(route *model.Route) (string, error) {
	routeID, err := strconv.Atoi(route.ID)
	if err != nil {
		return "", errors.Wrapf(err, "route_id '%s' is not numeric", route.ID)
	}
	if routeID >= schoolRouteMin && routeID <= schoolRouteMax {
		return schoolRouteColor, nil
	}
	return m.Default.RouteColor(route)
}

func (m *MiWay) SetTripHeadsign(route *model.OutputRoute, trip *model.OutputTrip, gTrip *model.Trip) error {
	trip.SetHeadsignString(m.CleanTripHeadsign(gTrip.Headsign), gTrip.DirectionID)
	return nil
}

func (m *MiWay) DirectionFinderEnabled() bool { return true }

func (m *MiWay) DirectionType() model.HeadsignType { return model.HeadsignTypeDirection }

// Bound words are kept: ConvertDirection needs them.
func (m *MiWay) CleanDirectionHeadsign(fromStopName bool, headsign string) string {
	return cleanHeadsign(headsign)
}

func (m *MiWay) ConvertDirection(headsign string) (model.DirectionType, error) {
	if m.DirectionType() != model.HeadsignTypeDirection {
		return model.DirectionNone, nil
	}
	switch strings.ToLower(headsign) {
	case "eastbound":
		return model.DirectionEast, nil
	case "westbound":
		return model.DirectionWest, nil
	case "northbound":
		return model.DirectionNorth, nil
	case "southbound":
		return model.DirectionSouth, nil
	case "cw":
		return model.DirectionNone, nil
	}
	return model.DirectionNone, errors.Wrapf(ErrUnexpectedDirection, "headsign '%s'", headsign)
}

func (m *MiWay) CleanTripHeadsign(headsign string) string {
	headsign = removeBounds.ReplaceAllString(headsign, "")
	return cleanHeadsign(headsign)
}

func cleanHeadsign(headsign string) string {
	headsign = cleanup.CleanStreetTypes(headsign)
	headsign = cleanup.CleanNumbers(headsign)
	return cleanup.CleanLabel(headsign)
}

func (m *MiWay) CleanStopName(name string) string {
	name = cleanup.CleanBounds(name)
	name = cleanup.CleanAt(name)
	name = cleanup.ReplaceStable(platform, name, " P ")
	name = cleanup.CleanStreetTypes(name)
	name = cleanup.CleanNumbers(name)
	return cleanup.CleanLabel(name)
}
