package dateutil

import (
	"fmt"
	"time"
)

// InvalidRangeError is returned when a range would start after its end
type InvalidRangeError struct {
	Start        time.Time
	EndInclusive time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		FormatDate(e.Start), FormatDate(e.EndInclusive))
}

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	start        time.Time
	endInclusive time.Time
}

// NewDateRange creates a range from start to endInclusive (both inclusive)
func NewDateRange(start, endInclusive time.Time) (DateRange, error) {
	start, endInclusive = DateOf(start), DateOf(endInclusive)
	if start.After(endInclusive) {
		return DateRange{}, &InvalidRangeError{Start: start, EndInclusive: endInclusive}
	}
	return DateRange{start: start, endInclusive: endInclusive}, nil
}

// NewDateRangeExclusive creates a range covering [from, toExclusive)
func NewDateRangeExclusive(from, toExclusive time.Time) (DateRange, error) {
	return NewDateRange(from, AddDays(toExclusive, -1))
}

// StartDate returns the first date of the range
func (r DateRange) StartDate() time.Time {
	return r.start
}

// EndDateInclusive returns the last date of the range
func (r DateRange) EndDateInclusive() time.Time {
	return r.endInclusive
}

// EndDateExclusive returns the day after the last date of the range
func (r DateRange) EndDateExclusive() time.Time {
	return AddDays(r.endInclusive, 1)
}

// Contains reports whether date lies in the range
func (r DateRange) Contains(date time.Time) bool {
	date = DateOf(date)
	return !date.Before(r.start) && !date.After(r.endInclusive)
}

// Len returns the number of dates in the range
func (r DateRange) Len() int {
	return int(r.endInclusive.Sub(r.start).Hours()/24) + 1
}

// ForEach calls fn for every date in ascending order until fn returns false
func (r DateRange) ForEach(fn func(date time.Time) bool) {
	for date := r.start; !date.After(r.endInclusive); date = date.AddDate(0, 0, 1) {
		if !fn(date) {
			return
		}
	}
}

// Dates returns all dates of the range in ascending order
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Len())
	r.ForEach(func(date time.Time) bool {
		dates = append(dates, date)
		return true
	})
	return dates
}

// Iterator returns a fresh iterator positioned before the first date.
// Every call starts over, so a range can be walked any number of times.
func (r DateRange) Iterator() *DateIterator {
	return &DateIterator{next: r.start, end: r.endInclusive}
}

// DateIterator walks a DateRange lazily
type DateIterator struct {
	next time.Time
	end  time.Time
	done bool
}

// Next returns the next date and true, or the zero time and false when exhausted
func (it *DateIterator) Next() (time.Time, bool) {
	if it.done || it.next.After(it.end) {
		it.done = true
		return time.Time{}, false
	}
	date := it.next
	it.next = it.next.AddDate(0, 0, 1)
	return date, true
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", FormatDate(r.start), FormatDate(r.endInclusive))
}
