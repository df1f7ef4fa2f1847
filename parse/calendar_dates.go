package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"miway.dev/gtfs/model"
)

type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

// Returns set of service IDs seen, min date and max date.
func ParseCalendarDates(writer FeedWriter, data io.Reader) (map[string]bool, string, string, error) {
	calendarDateCsv := []*CalendarDateCSV{}
	if err := gocsv.Unmarshal(data, &calendarDateCsv); err != nil {
		return nil, "", "", fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	services := map[string]bool{}
	seen := map[[2]string]bool{}
	var minDate, maxDate string

	for _, cd := range calendarDateCsv {
		exceptionType := model.ExceptionType(cd.ExceptionType)
		if exceptionType != model.ExceptionTypeAdded && exceptionType != model.ExceptionTypeRemoved {
			return nil, "", "", fmt.Errorf("illegal exception_type: '%d'", cd.ExceptionType)
		}

		if err := parseDate(cd.Date); err != nil {
			return nil, "", "", fmt.Errorf("parsing date '%s': %w", cd.Date, err)
		}

		key := [2]string{cd.ServiceID, cd.Date}
		if seen[key] {
			return nil, "", "", fmt.Errorf("duplicate service/date: '%s/%s'", cd.ServiceID, cd.Date)
		}
		seen[key] = true
		services[cd.ServiceID] = true

		if minDate == "" || cd.Date < minDate {
			minDate = cd.Date
		}
		if maxDate == "" || cd.Date > maxDate {
			maxDate = cd.Date
		}

		err := writer.WriteCalendarDate(&model.CalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: exceptionType,
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("writing calendar date: %w", err)
		}
	}

	return services, minDate, maxDate, nil
}
