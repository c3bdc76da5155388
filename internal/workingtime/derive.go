package workingtime

import (
	"fmt"
	"sort"
	"time"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
)

// IllegalScheduleStateError reports working-time records that cannot cover a requested range.
// It indicates corrupt schedule data and is never recovered.
type IllegalScheduleStateError struct {
	User   user.IDComposite
	From   time.Time
	Reason string
}

func (e *IllegalScheduleStateError) Error() string {
	return fmt.Sprintf("illegal working time schedule of user %s for range starting %s: %s",
		e.User, dateutil.FormatDate(e.From), e.Reason)
}

// HolidayLookup reports whether date is a public holiday in state
type HolidayLookup func(date time.Time, state publicholiday.FederalState) bool

// NoHolidays is a HolidayLookup without any public holidays
func NoHolidays(time.Time, publicholiday.FederalState) bool {
	return false
}

// Derive computes the planned working hours of one user for every date in [from, toExclusive).
//
// Records are walked from the most recent one backward. Each record covers the dates
// from its validity start (clamped to from) up to the day before the start of the
// record after it. The walk ends once the window reaches from; running out of records
// before that yields an *IllegalScheduleStateError.
func Derive(from, toExclusive time.Time, records []WorkingTime, isPublicHoliday HolidayLookup) (*Calendar, error) {
	dateRange, err := dateutil.NewDateRangeExclusive(from, toExclusive)
	if err != nil {
		return nil, err
	}
	from = dateRange.StartDate()

	ordered, err := orderRecords(records, from)
	if err != nil {
		return nil, err
	}

	planned := make(map[time.Time]time.Duration, dateRange.Len())
	nextEnd := dateRange.EndDateInclusive()

	for i := len(ordered) - 1; i >= 0; i-- {
		record := ordered[i]

		start := from
		if validFrom, ok := record.ValidFrom.Date(); ok && validFrom.After(from) {
			start = validFrom
		}

		// record starts after the currently uncovered tail
		if start.After(nextEnd) {
			continue
		}

		for d := start; !d.After(nextEnd); d = dateutil.AddDays(d, 1) {
			planned[d] = record.PlannedHours(d, isPublicHoliday(d, record.FederalState))
		}

		if start.Equal(from) {
			return &Calendar{dateRange: dateRange, planned: planned}, nil
		}
		nextEnd = dateutil.AddDays(start, -1)
	}

	return nil, &IllegalScheduleStateError{
		User:   ordered[0].User,
		From:   from,
		Reason: fmt.Sprintf("earliest record is valid from %s", ordered[0].ValidFrom),
	}
}

// orderRecords returns a sorted copy of records (open first, then ascending validity start)
// and rejects sets that are not a partition of time.
func orderRecords(records []WorkingTime, from time.Time) ([]WorkingTime, error) {
	if len(records) == 0 {
		return nil, &IllegalScheduleStateError{From: from, Reason: "no working time records"}
	}

	ordered := make([]WorkingTime, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ValidFrom.Before(ordered[j].ValidFrom)
	})

	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.User != ordered[0].User {
			return nil, &IllegalScheduleStateError{
				User:   ordered[0].User,
				From:   from,
				Reason: fmt.Sprintf("records of different users mixed (%s)", cur.User),
			}
		}
		if !prev.ValidFrom.Before(cur.ValidFrom) {
			reason := fmt.Sprintf("duplicate valid-from %s", cur.ValidFrom)
			if cur.ValidFrom.IsOpen() {
				reason = "more than one open-ended record"
			}
			return nil, &IllegalScheduleStateError{User: ordered[0].User, From: from, Reason: reason}
		}
	}
	return ordered, nil
}
