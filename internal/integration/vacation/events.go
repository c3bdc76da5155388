package vacation

import (
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Person as referenced in vacation events
type Person struct {
	PersonID int64  `json:"personId"`
	Username string `json:"username" validate:"required"`
}

// VacationType of an application
type VacationType struct {
	SourceID                 int64  `json:"sourceId"`
	Category                 string `json:"category" validate:"required"`
	RequiresApprovalToApply  bool   `json:"requiresApprovalToApply"`
	RequiresApprovalToCancel bool   `json:"requiresApprovalToCancel"`
	Color                    string `json:"color" validate:"required"`
	VisibleToEveryone        bool   `json:"visibleToEveryone"`
}

// Period of an application, dates in ISO format and both inclusive
type Period struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	DayLength string `json:"dayLength" validate:"required"`
}

// ApplicationEvent holds the fields shared by all application events
type ApplicationEvent struct {
	ID                uuid.UUID    `json:"id"`
	SourceID          int64        `json:"sourceId" validate:"gt=0"`
	CreatedAt         time.Time    `json:"createdAt"`
	TenantID          string       `json:"tenantId" validate:"required"`
	Person            Person       `json:"person"`
	VacationType      VacationType `json:"vacationType"`
	Period            Period       `json:"period"`
	AbsentWorkingDays []string     `json:"absentWorkingDays"`
}

// ApplicationAllowedEvent is sent when an application has been approved
type ApplicationAllowedEvent struct {
	ApplicationEvent
	AppliedBy *Person `json:"appliedBy,omitempty"`
	AllowedBy *Person `json:"allowedBy,omitempty"`
}

// ApplicationCreatedFromSickNoteEvent is sent when a sick note was converted into an application
type ApplicationCreatedFromSickNoteEvent struct {
	ApplicationEvent
	AppliedBy *Person `json:"appliedBy,omitempty"`
}

// ApplicationCancelledEvent is sent when an application was cancelled
type ApplicationCancelledEvent struct {
	ApplicationEvent
	CancelledBy *Person `json:"cancelledBy,omitempty"`
}

// ToAbsence maps an application event to an absence. All problems are reported together.
func ToAbsence(event ApplicationEvent) (absence.Write, error) {
	var errs []error

	if err := validate.Struct(event); err != nil {
		errs = append(errs, err)
	}

	tenant, err := tenancy.ParseTenantID(event.TenantID)
	if err != nil {
		errs = append(errs, err)
	}

	if err := checkAbsentWorkingDays(event.AbsentWorkingDays); err != nil {
		errs = append(errs, err)
	}

	dayLength, err := absence.ParseDayLength(event.Period.DayLength)
	if err != nil {
		errs = append(errs, err)
	}
	category, err := absence.ParseCategory(event.VacationType.Category)
	if err != nil {
		errs = append(errs, err)
	}
	color, err := absence.ParseColor(event.VacationType.Color)
	if err != nil {
		errs = append(errs, err)
	}

	start, startErr := dateutil.ParseDate(event.Period.StartDate)
	end, endErr := dateutil.ParseDate(event.Period.EndDate)
	if startErr != nil || endErr != nil {
		errs = append(errs, fmt.Errorf("invalid period %q to %q", event.Period.StartDate, event.Period.EndDate))
	}

	if len(errs) > 0 {
		return absence.Write{}, errors.Join(errs...)
	}

	w := absence.Write{
		TenantID:  tenant,
		SourceID:  event.SourceID,
		UserID:    user.ID(event.Person.Username),
		StartDate: start,
		EndDate:   end,
		DayLength: dayLength,
		Type:      absence.Type{Category: category, SourceID: event.VacationType.SourceID},
		Color:     color,
	}
	if err := w.Validate(); err != nil {
		return absence.Write{}, err
	}
	return w, nil
}

// checkAbsentWorkingDays rejects applications that do not hit a single working day
func checkAbsentWorkingDays(values []string) error {
	if len(values) == 0 {
		return errors.New("no absent working days")
	}
	for _, v := range values {
		if _, err := time.Parse(dateutil.DateLayout, v); err != nil {
			return fmt.Errorf("invalid absent working day %q: %w", v, err)
		}
	}
	return nil
}
