package model

import "sort"

// HeadsignType tells how an agency wants trip directions presented.
type HeadsignType int

const (
	HeadsignTypeString HeadsignType = iota
	HeadsignTypeDirection
)

// DirectionType is a compass direction derived from a headsign. The
// zero value means no direction, as for loops.
type DirectionType int

const (
	DirectionNone DirectionType = iota
	DirectionEast
	DirectionWest
	DirectionNorth
	DirectionSouth
)

func (d DirectionType) String() string {
	switch d {
	case DirectionEast:
		return "E"
	case DirectionWest:
		return "W"
	case DirectionNorth:
		return "N"
	case DirectionSouth:
		return "S"
	}
	return ""
}

// ParseDirectionType is the inverse of DirectionType.String.
func ParseDirectionType(s string) DirectionType {
	switch s {
	case "E":
		return DirectionEast
	case "W":
		return DirectionWest
	case "N":
		return DirectionNorth
	case "S":
		return DirectionSouth
	}
	return DirectionNone
}

// Everything generated for one agency.
type Output struct {
	Agency       OutputAgency
	Routes       []OutputRoute
	Trips        []OutputTrip
	Stops        []OutputStop
	ServiceDates []ServiceDate
}

// Sort puts every list in canonical order: routes and stops by ID,
// trips by route, direction_id, headsign and direction, and service
// dates by service ID then date.
func (o *Output) Sort() {
	sort.Slice(o.Routes, func(i, j int) bool {
		return o.Routes[i].ID < o.Routes[j].ID
	})
	sort.Slice(o.Trips, func(i, j int) bool {
		a, b := o.Trips[i], o.Trips[j]
		if a.RouteID != b.RouteID {
			return a.RouteID < b.RouteID
		}
		if a.DirectionID != b.DirectionID {
			return a.DirectionID < b.DirectionID
		}
		if a.Headsign != b.Headsign {
			return a.Headsign < b.Headsign
		}
		return a.Direction < b.Direction
	})
	sort.Slice(o.Stops, func(i, j int) bool {
		return o.Stops[i].ID < o.Stops[j].ID
	})
	sort.Slice(o.ServiceDates, func(i, j int) bool {
		a, b := o.ServiceDates[i], o.ServiceDates[j]
		if a.ServiceID != b.ServiceID {
			return a.ServiceID < b.ServiceID
		}
		return a.Date < b.Date
	})
}

type OutputAgency struct {
	ID        string
	Timezone  string
	Color     string
	RouteType RouteType
}

type OutputRoute struct {
	ID        string
	ShortName string
	LongName  string
	Color     string
}

// A distinct route/headsign/direction combination. Many GTFS trips
// collapse into one OutputTrip.
type OutputTrip struct {
	RouteID     string
	Headsign    string
	DirectionID int8
	Direction   DirectionType
}

func (t *OutputTrip) SetHeadsignString(headsign string, directionID int8) {
	t.Headsign = headsign
	t.DirectionID = directionID
}

func (t *OutputTrip) SetHeadsignDirection(direction DirectionType) {
	t.Direction = direction
}

type OutputStop struct {
	ID   string
	Code string
	Name string
	Lat  float64
	Lon  float64
}

// A date (YYYYMMDD) on which a service runs.
type ServiceDate struct {
	ServiceID string
	Date      string
}
