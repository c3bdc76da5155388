package workingtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a user has no working-time records or a record does not exist
	ErrNotFound = errors.New("working time not found")
	// ErrDuplicateValidFrom is returned when a user already has a record starting on that date
	ErrDuplicateValidFrom = errors.New("working time with this valid-from date already exists")
	// ErrOpenRecordExists is returned when a second open-ended record would be created
	ErrOpenRecordExists = errors.New("open-ended working time already exists")
	// ErrDeleteOpenRecord is returned when deleting the open-ended record
	ErrDeleteOpenRecord = errors.New("open-ended working time cannot be deleted")
	// ErrInvalidPattern is returned for weekday durations outside [0, 24h]
	ErrInvalidPattern = errors.New("invalid weekly pattern")
	// ErrNoOpenRecord is returned when a dated record is created before the user has an open-ended one
	ErrNoOpenRecord = errors.New("user has no open-ended working time")
)

// ValidFrom is either Open (in effect since the dawn of time) or From a date
type ValidFrom struct {
	date time.Time
	set  bool
}

// Open returns the validity start of the earliest record
func Open() ValidFrom {
	return ValidFrom{}
}

// From returns a validity start on date
func From(date time.Time) ValidFrom {
	return ValidFrom{date: dateutil.DateOf(date), set: true}
}

// IsOpen reports whether the record has no validity start
func (v ValidFrom) IsOpen() bool {
	return !v.set
}

// Date returns the validity start; ok is false for Open
func (v ValidFrom) Date() (date time.Time, ok bool) {
	return v.date, v.set
}

// Before orders Open first, then by date
func (v ValidFrom) Before(other ValidFrom) bool {
	switch {
	case !v.set:
		return other.set
	case !other.set:
		return false
	default:
		return v.date.Before(other.date)
	}
}

func (v ValidFrom) String() string {
	if !v.set {
		return "open"
	}
	return dateutil.FormatDate(v.date)
}

func (v ValidFrom) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(dateutil.FormatDate(v.date))
}

func (v *ValidFrom) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*v = Open()
		return nil
	}
	date, err := time.Parse(dateutil.DateLayout, *s)
	if err != nil {
		return fmt.Errorf("invalid valid-from date: %w", err)
	}
	*v = From(date)
	return nil
}

// WeekPattern maps every weekday (indexed by time.Weekday) to its working duration
type WeekPattern [7]time.Duration

// DefaultPattern is Monday to Friday with 8 hours each
func DefaultPattern() WeekPattern {
	var p WeekPattern
	for d := time.Monday; d <= time.Friday; d++ {
		p[d] = 8 * time.Hour
	}
	return p
}

// Hours returns the duration for weekday
func (p WeekPattern) Hours(weekday time.Weekday) time.Duration {
	return p[weekday]
}

// Validate checks that every duration lies within a single day
func (p WeekPattern) Validate() error {
	for d, hours := range p {
		if hours < 0 || hours > 24*time.Hour {
			return fmt.Errorf("%w: %s has %s", ErrInvalidPattern, time.Weekday(d), hours)
		}
	}
	return nil
}

// Weekly returns the sum over all weekdays
func (p WeekPattern) Weekly() time.Duration {
	var sum time.Duration
	for _, hours := range p {
		sum += hours
	}
	return sum
}

// WorkingTime is one schedule record of a user
type WorkingTime struct {
	ID                   uuid.UUID
	User                 user.IDComposite
	ValidFrom            ValidFrom
	Pattern              WeekPattern
	FederalState         publicholiday.FederalState
	WorksOnPublicHoliday bool
}

// PlannedHours returns the hours planned on date under this record
func (wt WorkingTime) PlannedHours(date time.Time, isPublicHoliday bool) time.Duration {
	hours := wt.Pattern.Hours(date.Weekday())
	if hours != 0 && (wt.WorksOnPublicHoliday || !isPublicHoliday) {
		return hours
	}
	return 0
}
