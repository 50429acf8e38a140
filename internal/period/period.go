// Package period resolves the expense list filter into an inclusive date
// range.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
)

// Filter names accepted in the "filter" query parameter.
const (
	Default     = "DEFAULT"
	LastWeek    = "LAST_WEEK"
	LastMonth   = "LAST_MONTH"
	Last3Months = "LAST_3_MONTHS"
	Custom      = "CUSTOM"
)

const dateLayout = "2006-01-02"

var (
	ErrMissingCustomRange = errors.New("start date and end date are required for custom filter")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvertedRange      = errors.New("start date must not be after end date")
)

// Resolve maps a filter to a date range relative to now in loc. DEFAULT, the
// empty string and unknown filters yield a nil range, meaning no restriction.
func Resolve(filter, startDate, endDate string, now time.Time, loc *time.Location) (*models.DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	switch strings.ToUpper(strings.TrimSpace(filter)) {
	case LastWeek:
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		start := startOfDay(now).AddDate(0, 0, -offset)
		return &models.DateRange{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}, nil

	case LastMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return &models.DateRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil

	case Last3Months:
		return &models.DateRange{Start: now.AddDate(0, -3, 0), End: now}, nil

	case Custom:
		return custom(startDate, endDate, loc)
	}
	return nil, nil
}

func custom(startDate, endDate string, loc *time.Location) (*models.DateRange, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return nil, ErrMissingCustomRange
	}

	start, err := parse(startDate, loc, false)
	if err != nil {
		return nil, err
	}
	end, err := parse(endDate, loc, true)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ErrInvertedRange
	}
	return &models.DateRange{Start: start, End: end}, nil
}

// parse accepts a calendar date or an RFC 3339 timestamp. A calendar date
// expands to the start of the day, or its last instant when endOfDay is set.
func parse(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD or RFC 3339)", ErrInvalidDate, s)
}

// ParseDate parses an expense_date payload value with the same rules as the
// CUSTOM filter's start date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return parse(strings.TrimSpace(s), loc, false)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
