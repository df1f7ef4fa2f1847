package agency

import (
	"sort"

	"miway.dev/gtfs/model"
)

// ServiceIDs is the set of service IDs worth generating data for. It is
// built once before any record is seen and never modified.
//
// A nil *ServiceIDs means no filtering. An empty set excludes
// everything.
type ServiceIDs struct {
	ids map[string]struct{}
}

func NewServiceIDs(ids ...string) *ServiceIDs {
	s := &ServiceIDs{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *ServiceIDs) Contains(serviceID string) bool {
	if s == nil {
		return false
	}
	_, found := s.ids[serviceID]
	return found
}

func (s *ServiceIDs) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

func (s *ServiceIDs) Empty() bool {
	return s.Len() == 0
}

// Sorted copy of the IDs.
func (s *ServiceIDs) Slice() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func ExcludeUselessCalendar(cal *model.Calendar, services *ServiceIDs) bool {
	return !services.Contains(cal.ServiceID)
}

func ExcludeUselessCalendarDate(cd *model.CalendarDate, services *ServiceIDs) bool {
	return !services.Contains(cd.ServiceID)
}

func ExcludeUselessTrip(trip *model.Trip, services *ServiceIDs) bool {
	return !services.Contains(trip.ServiceID)
}
