package model

import (
	"strconv"
	"time"
)

// Holds the GTFS records handed to agency hooks. Output types live in
// output.go.

type LocationType int

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

type ExceptionType int8

const (
	ExceptionTypeAdded   ExceptionType = 1
	ExceptionTypeRemoved ExceptionType = 2
)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
}

// Weekday is a bitmask indexed by time.Weekday.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

func (c *Calendar) RunsOn(day time.Weekday) bool {
	return c.Weekday&(1<<day) != 0
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType ExceptionType
}

type Stop struct {
	ID            string
	Code          string
	Name          string
	Desc          string
	Lat           float64
	Lon           float64
	URL           string
	LocationType  LocationType
	ParentStation string
	PlatformCode  string
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	ShortName   string
	DirectionID int8
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Desc      string
	Type      RouteType
	URL       string
	Color     string
	TextColor string
}

type StopTime struct {
	TripID       string
	StopID       string
	Headsign     string
	StopSequence uint32
	Arrival      string
	Departure    string
}

func (st *StopTime) ArrivalTime() time.Duration {
	return hhmmss(st.Arrival)
}

func (st *StopTime) DepartureTime() time.Duration {
	return hhmmss(st.Departure)
}

func hhmmss(s string) time.Duration {
	if len(s) != 6 {
		return 0
	}
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[2:4])
	sec, _ := strconv.Atoi(s[4:6])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}
