package workingtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/focusshift/zeiterfassung/internal/metrics"
	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

// CalendarService derives working-time calendars for one or many users
type CalendarService struct {
	repo     Repository
	holidays publicholiday.Service
	logger   *zap.Logger
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(repo Repository, holidays publicholiday.Service, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		repo:     repo,
		holidays: holidays,
		logger:   logger,
	}
}

// ForUser returns the calendar of a single user. ErrNotFound is returned when the user has no records.
func (s *CalendarService) ForUser(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, localID user.LocalID) (*Calendar, error) {
	calendars, err := s.ForUsers(ctx, tenant, from, toExclusive, []user.LocalID{localID})
	if err != nil {
		return nil, err
	}
	for id, cal := range calendars {
		if id.LocalID == localID {
			return cal, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s of tenant %s", ErrNotFound, localID, tenant)
}

// ForUsers returns one calendar per given user that has working-time records
func (s *CalendarService) ForUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite]*Calendar, error) {
	if err := checkRange(from, toExclusive); err != nil {
		return nil, err
	}
	records, err := s.repo.FindByUsers(ctx, tenant, dateutil.DateOf(from), dateutil.DateOf(toExclusive), users)
	if err != nil {
		return nil, fmt.Errorf("failed to load working times: %w", err)
	}
	return s.derive(ctx, tenant, from, toExclusive, records)
}

// ForAllUsers returns one calendar per user of the tenant
func (s *CalendarService) ForAllUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) (map[user.IDComposite]*Calendar, error) {
	if err := checkRange(from, toExclusive); err != nil {
		return nil, err
	}
	records, err := s.repo.FindAll(ctx, tenant, dateutil.DateOf(from), dateutil.DateOf(toExclusive))
	if err != nil {
		return nil, fmt.Errorf("failed to load working times: %w", err)
	}
	return s.derive(ctx, tenant, from, toExclusive, records)
}

func (s *CalendarService) derive(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, records map[user.IDComposite][]WorkingTime) (map[user.IDComposite]*Calendar, error) {
	start := time.Now()
	result := make(map[user.IDComposite]*Calendar, len(records))
	if len(records) == 0 {
		return result, nil
	}

	calendars, err := s.holidays.GetPublicHolidays(ctx, from, toExclusive, federalStates(records))
	if err != nil {
		metrics.ObserveCalendarDerivation("error", 0, time.Since(start))
		return nil, fmt.Errorf("failed to load public holidays: %w", err)
	}
	isPublicHoliday := func(date time.Time, state publicholiday.FederalState) bool {
		cal, ok := calendars[state]
		return ok && cal.IsPublicHoliday(date)
	}

	for id, userRecords := range records {
		if len(userRecords) == 0 {
			s.logger.Debug("Skipping user without working time records",
				zap.String("tenant_id", tenant.String()),
				zap.String("user", id.String()))
			continue
		}
		cal, err := Derive(from, toExclusive, userRecords, isPublicHoliday)
		if err != nil {
			s.logger.Error("Failed to derive working time calendar",
				zap.String("tenant_id", tenant.String()),
				zap.String("user", id.String()),
				zap.Error(err))
			metrics.ObserveCalendarDerivation("error", len(result), time.Since(start))
			return nil, err
		}
		result[id] = cal
	}

	metrics.ObserveCalendarDerivation("ok", len(result), time.Since(start))
	s.logger.Debug("Working time calendars derived",
		zap.String("tenant_id", tenant.String()),
		zap.Time("from", from),
		zap.Time("to_exclusive", toExclusive),
		zap.Int("users", len(result)))

	return result, nil
}

func checkRange(from, toExclusive time.Time) error {
	_, err := dateutil.NewDateRangeExclusive(from, toExclusive)
	return err
}

// federalStates returns the distinct states referenced by records, sorted
func federalStates(records map[user.IDComposite][]WorkingTime) []publicholiday.FederalState {
	seen := make(map[publicholiday.FederalState]bool)
	for _, userRecords := range records {
		for _, wt := range userRecords {
			seen[wt.FederalState] = true
		}
	}
	states := make([]publicholiday.FederalState, 0, len(seen))
	for state := range seen {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}
