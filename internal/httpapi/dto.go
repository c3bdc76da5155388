package httpapi

import (
	"math"
	"time"

	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/report"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type calendarsResponse struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Calendars []userCalendarDTO `json:"calendars"`
}

type userCalendarDTO struct {
	UserID      string           `json:"userId"`
	UserLocalID int64            `json:"userLocalId"`
	TotalHours  float64          `json:"totalHours"`
	Days        []calendarDayDTO `json:"days"`
}

type calendarDayDTO struct {
	Date         string  `json:"date"`
	PlannedHours float64 `json:"plannedHours"`
}

type shouldHoursResponse struct {
	UserID       string         `json:"userId"`
	UserLocalID  int64          `json:"userLocalId"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	PlannedHours float64        `json:"plannedHours"`
	AbsenceHours float64        `json:"absenceHours"`
	ShouldHours  float64        `json:"shouldHours"`
	Days         []shouldDayDTO `json:"days"`
}

type shouldDayDTO struct {
	Date         string       `json:"date"`
	PlannedHours float64      `json:"plannedHours"`
	AbsenceHours float64      `json:"absenceHours"`
	ShouldHours  float64      `json:"shouldHours"`
	Absences     []absenceDTO `json:"absences,omitempty"`
}

type absenceDTO struct {
	Category  string `json:"category"`
	DayLength string `json:"dayLength"`
	Color     string `json:"color"`
}

func hours(d time.Duration) float64 {
	return d.Hours()
}

func toUserCalendarDTO(u user.IDComposite, cal *workingtime.Calendar) userCalendarDTO {
	days := cal.Days()
	dto := userCalendarDTO{
		UserID:      string(u.ID),
		UserLocalID: int64(u.LocalID),
		TotalHours:  hours(cal.Total()),
		Days:        make([]calendarDayDTO, len(days)),
	}
	for i, d := range days {
		dto.Days[i] = calendarDayDTO{Date: dateutil.FormatDate(d.Date), PlannedHours: hours(d.Planned)}
	}
	return dto
}

func toShouldHoursResponse(from, to time.Time, r report.UserReport) shouldHoursResponse {
	resp := shouldHoursResponse{
		UserID:       string(r.User.ID),
		UserLocalID:  int64(r.User.LocalID),
		From:         dateutil.FormatDate(from),
		To:           dateutil.FormatDate(to),
		PlannedHours: hours(r.PlannedTotal()),
		AbsenceHours: hours(r.AbsenceTotal()),
		ShouldHours:  hours(r.ShouldTotal()),
		Days:         make([]shouldDayDTO, len(r.Days)),
	}
	for i, d := range r.Days {
		day := shouldDayDTO{
			Date:         dateutil.FormatDate(d.Date),
			PlannedHours: hours(d.Planned),
			AbsenceHours: hours(d.Absence),
			ShouldHours:  hours(d.Should),
		}
		for _, a := range d.Absences {
			day.Absences = append(day.Absences, absenceDTO{
				Category:  string(a.Type.Category),
				DayLength: string(a.DayLength),
				Color:     string(a.Color),
			})
		}
		resp.Days[i] = day
	}
	return resp
}

// weekHoursDTO holds the hours per weekday
type weekHoursDTO struct {
	Monday    float64 `json:"monday" validate:"gte=0,lte=24"`
	Tuesday   float64 `json:"tuesday" validate:"gte=0,lte=24"`
	Wednesday float64 `json:"wednesday" validate:"gte=0,lte=24"`
	Thursday  float64 `json:"thursday" validate:"gte=0,lte=24"`
	Friday    float64 `json:"friday" validate:"gte=0,lte=24"`
	Saturday  float64 `json:"saturday" validate:"gte=0,lte=24"`
	Sunday    float64 `json:"sunday" validate:"gte=0,lte=24"`
}

func (h weekHoursDTO) pattern() workingtime.WeekPattern {
	var p workingtime.WeekPattern
	p[time.Monday] = duration(h.Monday)
	p[time.Tuesday] = duration(h.Tuesday)
	p[time.Wednesday] = duration(h.Wednesday)
	p[time.Thursday] = duration(h.Thursday)
	p[time.Friday] = duration(h.Friday)
	p[time.Saturday] = duration(h.Saturday)
	p[time.Sunday] = duration(h.Sunday)
	return p
}

func toWeekHoursDTO(p workingtime.WeekPattern) weekHoursDTO {
	return weekHoursDTO{
		Monday:    hours(p[time.Monday]),
		Tuesday:   hours(p[time.Tuesday]),
		Wednesday: hours(p[time.Wednesday]),
		Thursday:  hours(p[time.Thursday]),
		Friday:    hours(p[time.Friday]),
		Saturday:  hours(p[time.Saturday]),
		Sunday:    hours(p[time.Sunday]),
	}
}

// workingTimeRequest creates a record; a null or missing validFrom is the open record
type workingTimeRequest struct {
	ValidFrom            workingtime.ValidFrom `json:"validFrom"`
	FederalState         string                `json:"federalState" validate:"required"`
	WorksOnPublicHoliday bool                  `json:"worksOnPublicHoliday"`
	Hours                weekHoursDTO          `json:"hours"`
}

type workingTimeDTO struct {
	ID                   string                `json:"id"`
	UserID               string                `json:"userId"`
	UserLocalID          int64                 `json:"userLocalId"`
	ValidFrom            workingtime.ValidFrom `json:"validFrom"`
	FederalState         string                `json:"federalState"`
	WorksOnPublicHoliday bool                  `json:"worksOnPublicHoliday"`
	Hours                weekHoursDTO          `json:"hours"`
	WeeklyHours          float64               `json:"weeklyHours"`
}

type workingTimesResponse struct {
	WorkingTimes []workingTimeDTO `json:"workingTimes"`
}

func toWorkingTimeDTO(wt workingtime.WorkingTime) workingTimeDTO {
	return workingTimeDTO{
		ID:                   wt.ID.String(),
		UserID:               string(wt.User.ID),
		UserLocalID:          int64(wt.User.LocalID),
		ValidFrom:            wt.ValidFrom,
		FederalState:         string(wt.FederalState),
		WorksOnPublicHoliday: wt.WorksOnPublicHoliday,
		Hours:                toWeekHoursDTO(wt.Pattern),
		WeeklyHours:          hours(wt.Pattern.Weekly()),
	}
}

// overtimeAccountRequest updates an account; a null maxAllowedOvertimeHours removes the limit
type overtimeAccountRequest struct {
	Allowed         *bool    `json:"allowed" validate:"required"`
	MaxAllowedHours *float64 `json:"maxAllowedOvertimeHours" validate:"omitempty,gte=0"`
}

type overtimeAccountDTO struct {
	UserLocalID     int64    `json:"userLocalId"`
	Allowed         bool     `json:"allowed"`
	MaxAllowedHours *float64 `json:"maxAllowedOvertimeHours"`
}

func toOvertimeAccountDTO(a overtime.Account) overtimeAccountDTO {
	dto := overtimeAccountDTO{UserLocalID: int64(a.User), Allowed: a.Allowed}
	if a.MaxAllowed != nil {
		h := hours(*a.MaxAllowed)
		dto.MaxAllowedHours = &h
	}
	return dto
}

// duration converts hours to a duration rounded to the second
func duration(h float64) time.Duration {
	return time.Duration(math.Round(h*3600)) * time.Second
}

func optionalDuration(h *float64) *time.Duration {
	if h == nil {
		return nil
	}
	d := duration(*h)
	return &d
}
