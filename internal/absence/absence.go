package absence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
)

var (
	// ErrNotFound is returned when no absence matches
	ErrNotFound = errors.New("absence not found")
	// ErrUnknownCategory is returned for absence categories we do not know
	ErrUnknownCategory = errors.New("unknown absence category")
	// ErrUnknownDayLength is returned for day lengths we do not know
	ErrUnknownDayLength = errors.New("unknown day length")
	// ErrUnknownColor is returned for colors we do not know
	ErrUnknownColor = errors.New("unknown absence color")
)

// Category classifies an absence
type Category string

const (
	CategoryHoliday      Category = "HOLIDAY"
	CategorySpecialLeave Category = "SPECIALLEAVE"
	CategoryUnpaidLeave  Category = "UNPAIDLEAVE"
	CategoryOvertime     Category = "OVERTIME"
	CategoryOther        Category = "OTHER"
	CategorySick         Category = "SICK"
)

var categories = []Category{
	CategoryHoliday, CategorySpecialLeave, CategoryUnpaidLeave,
	CategoryOvertime, CategoryOther, CategorySick,
}

// ParseCategory validates an absence category
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Type is the category together with the id of the vacation type in the source system
type Type struct {
	Category Category `validate:"required,oneof=HOLIDAY SPECIALLEAVE UNPAIDLEAVE OVERTIME OTHER SICK"`
	SourceID int64
}

func (t Type) String() string {
	return fmt.Sprintf("%s(%d)", t.Category, t.SourceID)
}

// DayLength is the part of a day an absence covers
type DayLength string

const (
	Full    DayLength = "FULL"
	Morning DayLength = "MORNING"
	Noon    DayLength = "NOON"
)

// ParseDayLength validates a day length
func ParseDayLength(s string) (DayLength, error) {
	switch DayLength(strings.ToUpper(s)) {
	case Full:
		return Full, nil
	case Morning:
		return Morning, nil
	case Noon:
		return Noon, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDayLength, s)
}

// Factor is the share of the planned working hours the absence takes away
func (d DayLength) Factor() float64 {
	switch d {
	case Full:
		return 1
	case Morning, Noon:
		return 0.5
	}
	return 0
}

// Color is the display color of the absence type
type Color string

const (
	Gray    Color = "GRAY"
	Orange  Color = "ORANGE"
	Yellow  Color = "YELLOW"
	Emerald Color = "EMERALD"
	Cyan    Color = "CYAN"
	Blue    Color = "BLUE"
	Violet  Color = "VIOLET"
	Pink    Color = "PINK"
)

var colors = []Color{Gray, Orange, Yellow, Emerald, Cyan, Blue, Violet, Pink}

// ParseColor validates a color
func ParseColor(s string) (Color, error) {
	for _, c := range colors {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// Write is an absence as delivered by the vacation system.
// (TenantID, SourceID, Type) identifies it.
type Write struct {
	TenantID  tenancy.TenantID `validate:"required"`
	SourceID  int64            `validate:"gt=0"`
	UserID    user.ID          `validate:"required"`
	StartDate time.Time        `validate:"required"`
	EndDate   time.Time        `validate:"required,gtefield=StartDate"`
	DayLength DayLength        `validate:"required,oneof=FULL MORNING NOON"`
	Type      Type
	Color     Color `validate:"required"`
}

// Absence is a stored absence of a user, EndDate inclusive
type Absence struct {
	UserID    user.ID
	StartDate time.Time
	EndDate   time.Time
	DayLength DayLength
	Type      Type
	Color     Color
}

// Covers reports whether date lies within the absence
func (a Absence) Covers(date time.Time) bool {
	date = dateutil.DateOf(date)
	return !date.Before(dateutil.DateOf(a.StartDate)) && !date.After(dateutil.DateOf(a.EndDate))
}

// Intersects reports whether the absence overlaps [from, toExclusive)
func (a Absence) Intersects(from, toExclusive time.Time) bool {
	return dateutil.DateOf(a.StartDate).Before(dateutil.DateOf(toExclusive)) &&
		!dateutil.DateOf(a.EndDate).Before(dateutil.DateOf(from))
}

// ToAbsence drops the write-side identification
func (w Write) ToAbsence() Absence {
	return Absence{
		UserID:    w.UserID,
		StartDate: dateutil.DateOf(w.StartDate),
		EndDate:   dateutil.DateOf(w.EndDate),
		DayLength: w.DayLength,
		Type:      w.Type,
		Color:     w.Color,
	}
}
