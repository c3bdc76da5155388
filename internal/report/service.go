package report

import (
	"context"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"go.uber.org/zap"
)

// CalendarProvider derives working-time calendars
type CalendarProvider interface {
	ForUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite]*workingtime.Calendar, error)
	ForAllUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) (map[user.IDComposite]*workingtime.Calendar, error)
}

// AbsenceFinder looks up absences grouped by user
type AbsenceFinder interface {
	FindAbsences(ctx context.Context, tenant tenancy.TenantID, userIDs []user.ID, from, toExclusive time.Time) (map[user.ID][]absence.Absence, error)
}

// Service computes should-working-hours reports
type Service struct {
	calendars CalendarProvider
	absences  AbsenceFinder
	logger    *zap.Logger
}

// NewService creates a new report Service
func NewService(calendars CalendarProvider, absences AbsenceFinder, logger *zap.Logger) *Service {
	return &Service{calendars: calendars, absences: absences, logger: logger}
}

// ForUser returns the report of one user, workingtime.ErrNotFound if the user has no working times
func (s *Service) ForUser(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, localID user.LocalID) (UserReport, error) {
	reports, err := s.ForUsers(ctx, tenant, from, toExclusive, []user.LocalID{localID})
	if err != nil {
		return UserReport{}, err
	}
	for u, r := range reports {
		if u.LocalID == localID {
			return r, nil
		}
	}
	return UserReport{}, fmt.Errorf("%w: user %d", workingtime.ErrNotFound, localID)
}

// ForUsers returns the reports of the given users; an empty list means every user of the tenant
func (s *Service) ForUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite]UserReport, error) {
	var (
		calendars map[user.IDComposite]*workingtime.Calendar
		err       error
	)
	if len(users) == 0 {
		calendars, err = s.calendars.ForAllUsers(ctx, tenant, from, toExclusive)
	} else {
		calendars, err = s.calendars.ForUsers(ctx, tenant, from, toExclusive, users)
	}
	if err != nil {
		return nil, err
	}
	if len(calendars) == 0 {
		return map[user.IDComposite]UserReport{}, nil
	}

	ids := make([]user.ID, 0, len(calendars))
	for u := range calendars {
		ids = append(ids, u.ID)
	}
	absences, err := s.absences.FindAbsences(ctx, tenant, ids, from, toExclusive)
	if err != nil {
		return nil, err
	}

	reports := make(map[user.IDComposite]UserReport, len(calendars))
	for u, cal := range calendars {
		reports[u] = Build(u, cal, absences[u.ID])
	}

	s.logger.Debug("Should working hours computed",
		zap.String("tenant_id", tenant.String()),
		zap.Int("users", len(reports)))
	return reports, nil
}
