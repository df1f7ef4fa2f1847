package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"miway.dev/gtfs/model"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

func (c *CalendarCSV) weekday() (int8, error) {
	var mask int8
	for day, v := range map[time.Weekday]int8{
		time.Monday:    c.Monday,
		time.Tuesday:   c.Tuesday,
		time.Wednesday: c.Wednesday,
		time.Thursday:  c.Thursday,
		time.Friday:    c.Friday,
		time.Saturday:  c.Saturday,
		time.Sunday:    c.Sunday,
	} {
		switch v {
		case 0:
		case 1:
			mask |= 1 << day
		default:
			return 0, fmt.Errorf("invalid %s value '%d'", day, v)
		}
	}
	return mask, nil
}

func parseDate(s string) error {
	_, err := time.ParseInLocation("20060102", s, time.UTC)
	return err
}

// Returns set of all service IDs, min date and max date.
func ParseCalendar(writer FeedWriter, data io.Reader) (map[string]bool, string, string, error) {
	calendarCsv := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, "", "", fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	services := map[string]bool{}
	var minDate, maxDate string

	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			return nil, "", "", fmt.Errorf("empty service_id")
		}
		if services[c.ServiceID] {
			return nil, "", "", fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		services[c.ServiceID] = true

		weekday, err := c.weekday()
		if err != nil {
			return nil, "", "", err
		}

		if err := parseDate(c.StartDate); err != nil {
			return nil, "", "", fmt.Errorf("parsing start_date: %w", err)
		}
		if err := parseDate(c.EndDate); err != nil {
			return nil, "", "", fmt.Errorf("parsing end_date: %w", err)
		}

		if minDate == "" || c.StartDate < minDate {
			minDate = c.StartDate
		}
		if maxDate == "" || c.EndDate > maxDate {
			maxDate = c.EndDate
		}

		err = writer.WriteCalendar(&model.Calendar{
			ServiceID: c.ServiceID,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Weekday:   weekday,
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("writing calendar: %w", err)
		}
	}

	return services, minDate, maxDate, nil
}
