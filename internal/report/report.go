package report

import (
	"time"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
)

// Day is the should-working-hours of one date
type Day struct {
	Date     time.Time
	Planned  time.Duration
	Absence  time.Duration
	Should   time.Duration
	Absences []absence.Absence
}

// UserReport holds the days of one user in ascending order
type UserReport struct {
	User user.IDComposite
	Days []Day
}

// PlannedTotal is the sum of planned hours
func (r UserReport) PlannedTotal() time.Duration {
	var sum time.Duration
	for _, d := range r.Days {
		sum += d.Planned
	}
	return sum
}

// AbsenceTotal is the sum of hours taken by absences
func (r UserReport) AbsenceTotal() time.Duration {
	var sum time.Duration
	for _, d := range r.Days {
		sum += d.Absence
	}
	return sum
}

// ShouldTotal is the sum of should hours
func (r UserReport) ShouldTotal() time.Duration {
	var sum time.Duration
	for _, d := range r.Days {
		sum += d.Should
	}
	return sum
}

// Build combines a working-time calendar with the absences of the same user.
// Every absence covering a date takes its day-length share of the planned hours;
// the reduction never exceeds the planned hours.
func Build(u user.IDComposite, cal *workingtime.Calendar, absences []absence.Absence) UserReport {
	days := cal.Days()
	report := UserReport{User: u, Days: make([]Day, 0, len(days))}

	for _, d := range days {
		day := Day{Date: d.Date, Planned: d.Planned}
		for _, a := range absences {
			if !a.Covers(d.Date) {
				continue
			}
			day.Absences = append(day.Absences, a)
			day.Absence += time.Duration(float64(d.Planned) * a.DayLength.Factor())
		}
		if day.Absence > day.Planned {
			day.Absence = day.Planned
		}
		day.Should = day.Planned - day.Absence
		report.Days = append(report.Days, day)
	}
	return report
}
