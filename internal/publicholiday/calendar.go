package publicholiday

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/focusshift/zeiterfassung/pkg/dateutil"
)

// ErrUnknownFederalState is returned for federal state codes we do not know
var ErrUnknownFederalState = errors.New("unknown federal state")

// FederalState is the jurisdiction whose public holidays apply (ISO 3166-2 code)
type FederalState string

const (
	None                  FederalState = "NONE"
	BadenWuerttemberg     FederalState = "DE-BW"
	Bayern                FederalState = "DE-BY"
	Berlin                FederalState = "DE-BE"
	Brandenburg           FederalState = "DE-BB"
	Bremen                FederalState = "DE-HB"
	Hamburg               FederalState = "DE-HH"
	Hessen                FederalState = "DE-HE"
	MecklenburgVorpommern FederalState = "DE-MV"
	Niedersachsen         FederalState = "DE-NI"
	NordrheinWestfalen    FederalState = "DE-NW"
	RheinlandPfalz        FederalState = "DE-RP"
	Saarland              FederalState = "DE-SL"
	Sachsen               FederalState = "DE-SN"
	SachsenAnhalt         FederalState = "DE-ST"
	SchleswigHolstein     FederalState = "DE-SH"
	Thueringen            FederalState = "DE-TH"
)

// FederalStates lists every supported jurisdiction
var FederalStates = []FederalState{
	None,
	BadenWuerttemberg, Bayern, Berlin, Brandenburg, Bremen, Hamburg, Hessen,
	MecklenburgVorpommern, Niedersachsen, NordrheinWestfalen, RheinlandPfalz,
	Saarland, Sachsen, SachsenAnhalt, SchleswigHolstein, Thueringen,
}

// ParseFederalState validates a federal state code (case-insensitive)
func ParseFederalState(s string) (FederalState, error) {
	candidate := FederalState(strings.ToUpper(strings.TrimSpace(s)))
	for _, state := range FederalStates {
		if state == candidate {
			return state, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFederalState, s)
}

// Holiday is a single public holiday
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Calendar holds the public holidays of one federal state within a date range
type Calendar struct {
	state    FederalState
	holidays map[time.Time]Holiday
}

// NewCalendar creates a calendar from a list of holidays
func NewCalendar(state FederalState, holidays []Holiday) *Calendar {
	c := &Calendar{
		state:    state,
		holidays: make(map[time.Time]Holiday, len(holidays)),
	}
	for _, h := range holidays {
		h.Date = dateutil.DateOf(h.Date)
		if _, exists := c.holidays[h.Date]; !exists {
			c.holidays[h.Date] = h
		}
	}
	return c
}

// FederalState returns the jurisdiction of the calendar
func (c *Calendar) FederalState() FederalState {
	return c.state
}

// IsPublicHoliday reports whether date is a public holiday
func (c *Calendar) IsPublicHoliday(date time.Time) bool {
	_, ok := c.holidays[dateutil.DateOf(date)]
	return ok
}

// Holiday returns the holiday on date, if any
func (c *Calendar) Holiday(date time.Time) (Holiday, bool) {
	h, ok := c.holidays[dateutil.DateOf(date)]
	return h, ok
}

// Holidays returns all holidays sorted by date
func (c *Calendar) Holidays() []Holiday {
	out := make([]Holiday, 0, len(c.holidays))
	for _, h := range c.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Service provides public holiday calendars
type Service interface {
	// GetPublicHolidays returns one calendar per requested state covering [from, toExclusive)
	GetPublicHolidays(ctx context.Context, from, toExclusive time.Time, states []FederalState) (map[FederalState]*Calendar, error)
}

// filterRange keeps holidays in [from, toExclusive)
func filterRange(holidays []Holiday, from, toExclusive time.Time) []Holiday {
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if !h.Date.Before(from) && h.Date.Before(toExclusive) {
			out = append(out, h)
		}
	}
	return out
}

// yearsBetween returns every year touched by [from, toExclusive)
func yearsBetween(from, toExclusive time.Time) []int {
	if !from.Before(toExclusive) {
		return nil
	}
	last := dateutil.AddDays(toExclusive, -1)
	years := make([]int, 0, last.Year()-from.Year()+1)
	for y := from.Year(); y <= last.Year(); y++ {
		years = append(years, y)
	}
	return years
}
