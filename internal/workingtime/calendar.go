package workingtime

import (
	"time"

	"github.com/focusshift/zeiterfassung/pkg/dateutil"
)

// Day is the planned working duration of one date
type Day struct {
	Date    time.Time
	Planned time.Duration
}

// Calendar holds the planned working hours of one user for every date of a range
type Calendar struct {
	dateRange dateutil.DateRange
	planned   map[time.Time]time.Duration
}

// Range returns the date range the calendar was derived for
func (c *Calendar) Range() dateutil.DateRange {
	return c.dateRange
}

// PlannedWorkingHours returns the planned hours on date, zero outside the range
func (c *Calendar) PlannedWorkingHours(date time.Time) time.Duration {
	return c.planned[dateutil.DateOf(date)]
}

// Sum adds up the planned hours in [from, toExclusive)
func (c *Calendar) Sum(from, toExclusive time.Time) time.Duration {
	var sum time.Duration
	to := dateutil.DateOf(toExclusive)
	for d := dateutil.DateOf(from); d.Before(to); d = dateutil.AddDays(d, 1) {
		sum += c.planned[d]
	}
	return sum
}

// Total is the sum over the whole range
func (c *Calendar) Total() time.Duration {
	return c.Sum(c.dateRange.StartDate(), c.dateRange.EndDateExclusive())
}

// Len returns the number of dates in the calendar
func (c *Calendar) Len() int {
	return len(c.planned)
}

// Days returns every date of the range ascending with its planned hours
func (c *Calendar) Days() []Day {
	days := make([]Day, 0, len(c.planned))
	c.dateRange.ForEach(func(date time.Time) bool {
		days = append(days, Day{Date: date, Planned: c.planned[date]})
		return true
	})
	return days
}
