package dateutil

import (
	"fmt"
	"time"
)

// DateLayout is the ISO 8601 calendar date layout used across the service
const DateLayout = "2006-01-02"

// Date returns the calendar date as midnight UTC.
// All dates handled by the service use this representation so they can be
// compared with == and used as map keys.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of t (in t's location) as midnight UTC
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddDays moves a date by n calendar days
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// StartOfWeek returns the Monday of the week for the given date
func StartOfWeek(date time.Time) time.Time {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	return AddDays(date, -(weekday - 1))
}

// StartOfMonth returns the first day of the month for the given date
func StartOfMonth(date time.Time) time.Time {
	return Date(date.Year(), date.Month(), 1)
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// ParseDate parses a calendar date in ISO (2006-01-02) or German (02.01.2006) format
func ParseDate(dateStr string) (time.Time, error) {
	formats := []string{
		DateLayout,
		"02.01.2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return DateOf(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or DD.MM.YYYY", dateStr)
}

// FormatDate formats a date as YYYY-MM-DD
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// Today returns today's date
func Today() time.Time {
	return DateOf(time.Now())
}
