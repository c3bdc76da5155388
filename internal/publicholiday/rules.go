package publicholiday

import (
	"context"
	"time"

	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

type rule struct {
	name    string
	date    func(year int) time.Time
	applies func(state FederalState, year int) bool
}

func everywhere(state FederalState, _ int) bool {
	return state != None
}

func in(states ...FederalState) func(FederalState, int) bool {
	set := make(map[FederalState]bool, len(states))
	for _, s := range states {
		set[s] = true
	}
	return func(state FederalState, _ int) bool {
		return set[state]
	}
}

func since(year int, applies func(FederalState, int) bool) func(FederalState, int) bool {
	return func(state FederalState, y int) bool {
		return y >= year && applies(state, y)
	}
}

func fixed(month time.Month, day int) func(int) time.Time {
	return func(year int) time.Time {
		return dateutil.Date(year, month, day)
	}
}

func fromEaster(days int) func(int) time.Time {
	return func(year int) time.Time {
		return dateutil.AddDays(EasterSunday(year), days)
	}
}

var germanRules = []rule{
	{"Neujahr", fixed(time.January, 1), everywhere},
	{"Heilige Drei Könige", fixed(time.January, 6), in(BadenWuerttemberg, Bayern, SachsenAnhalt)},
	{"Internationaler Frauentag", fixed(time.March, 8), func(s FederalState, y int) bool {
		return (s == Berlin && y >= 2019) || (s == MecklenburgVorpommern && y >= 2023)
	}},
	{"Karfreitag", fromEaster(-2), everywhere},
	{"Ostersonntag", fromEaster(0), in(Brandenburg)},
	{"Ostermontag", fromEaster(1), everywhere},
	{"Tag der Arbeit", fixed(time.May, 1), everywhere},
	{"Tag der Befreiung", fixed(time.May, 8), func(s FederalState, y int) bool {
		return s == Berlin && (y == 2020 || y == 2025)
	}},
	{"Christi Himmelfahrt", fromEaster(39), everywhere},
	{"Pfingstsonntag", fromEaster(49), in(Brandenburg)},
	{"Pfingstmontag", fromEaster(50), everywhere},
	{"Fronleichnam", fromEaster(60), in(BadenWuerttemberg, Bayern, Hessen, NordrheinWestfalen, RheinlandPfalz, Saarland)},
	{"Mariä Himmelfahrt", fixed(time.August, 15), in(Saarland)},
	{"Weltkindertag", fixed(time.September, 20), since(2019, in(Thueringen))},
	{"Tag der Deutschen Einheit", fixed(time.October, 3), since(1990, everywhere)},
	{"Reformationstag", fixed(time.October, 31), func(s FederalState, y int) bool {
		if y == 2017 {
			return s != None
		}
		switch s {
		case Brandenburg, MecklenburgVorpommern, Sachsen, SachsenAnhalt, Thueringen:
			return true
		case Bremen, Hamburg, Niedersachsen, SchleswigHolstein:
			return y >= 2018
		}
		return false
	}},
	{"Allerheiligen", fixed(time.November, 1), in(BadenWuerttemberg, Bayern, NordrheinWestfalen, RheinlandPfalz, Saarland)},
	{"Buß- und Bettag", repentanceDay, in(Sachsen)},
	{"1. Weihnachtstag", fixed(time.December, 25), everywhere},
	{"2. Weihnachtstag", fixed(time.December, 26), everywhere},
}

// EasterSunday computes the date of Easter Sunday (anonymous Gregorian algorithm)
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return dateutil.Date(year, time.Month(month), day)
}

// repentanceDay is the last Wednesday before November 23
func repentanceDay(year int) time.Time {
	date := dateutil.Date(year, time.November, 22)
	for date.Weekday() != time.Wednesday {
		date = dateutil.AddDays(date, -1)
	}
	return date
}

// HolidaysOf returns the statutory public holidays of a state in a year, sorted by date
func HolidaysOf(state FederalState, year int) []Holiday {
	holidays := make([]Holiday, 0, len(germanRules))
	for _, r := range germanRules {
		if r.applies(state, year) {
			holidays = append(holidays, Holiday{Date: r.date(year), Name: r.name})
		}
	}
	return NewCalendar(state, holidays).Holidays()
}

// RulesService computes German public holidays from the statutory rules
type RulesService struct {
	logger *zap.Logger
}

// NewRulesService creates a new RulesService
func NewRulesService(logger *zap.Logger) *RulesService {
	return &RulesService{logger: logger}
}

// GetPublicHolidays returns one calendar per requested state covering [from, toExclusive)
func (s *RulesService) GetPublicHolidays(_ context.Context, from, toExclusive time.Time, states []FederalState) (map[FederalState]*Calendar, error) {
	from, toExclusive = dateutil.DateOf(from), dateutil.DateOf(toExclusive)
	result := make(map[FederalState]*Calendar, len(states))

	for _, state := range states {
		var holidays []Holiday
		for _, year := range yearsBetween(from, toExclusive) {
			holidays = append(holidays, HolidaysOf(state, year)...)
		}
		result[state] = NewCalendar(state, filterRange(holidays, from, toExclusive))
	}

	s.logger.Debug("Public holidays computed",
		zap.Time("from", from),
		zap.Time("to_exclusive", toExclusive),
		zap.Int("states", len(states)))

	return result, nil
}
