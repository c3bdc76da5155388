package workingtime

import (
	"context"
	"fmt"
	"sort"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the working-time records of users
type Service struct {
	repo   Repository
	logger *zap.Logger
	newID  func() uuid.UUID
}

// NewService creates a new Service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		newID:  uuid.New,
	}
}

// GetWorkingTimes returns all records of a user, open record first
func (s *Service) GetWorkingTimes(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) ([]WorkingTime, error) {
	records, err := s.repo.FindByUser(ctx, tenant, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to load working times of user %s: %w", localID, err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ValidFrom.Before(records[j].ValidFrom)
	})
	return records, nil
}

// CreateWorkingTime stores a new record for wt.User. A missing ID is generated.
func (s *Service) CreateWorkingTime(ctx context.Context, tenant tenancy.TenantID, wt WorkingTime) (WorkingTime, error) {
	if err := wt.Pattern.Validate(); err != nil {
		return WorkingTime{}, err
	}
	state, err := publicholiday.ParseFederalState(string(wt.FederalState))
	if err != nil {
		return WorkingTime{}, err
	}
	wt.FederalState = state

	existing, err := s.repo.FindByUser(ctx, tenant, wt.User.LocalID)
	if err != nil {
		return WorkingTime{}, fmt.Errorf("failed to load working times of user %s: %w", wt.User.LocalID, err)
	}
	if !wt.ValidFrom.IsOpen() && !hasOpenRecord(existing) {
		return WorkingTime{}, fmt.Errorf("%w: %s", ErrNoOpenRecord, wt.User)
	}
	for _, other := range existing {
		if wt.ValidFrom.IsOpen() && other.ValidFrom.IsOpen() {
			return WorkingTime{}, ErrOpenRecordExists
		}
		if !wt.ValidFrom.Before(other.ValidFrom) && !other.ValidFrom.Before(wt.ValidFrom) {
			return WorkingTime{}, fmt.Errorf("%w: %s", ErrDuplicateValidFrom, wt.ValidFrom)
		}
	}

	if wt.ID == uuid.Nil {
		wt.ID = s.newID()
	}
	if err := s.repo.Insert(ctx, tenant, wt); err != nil {
		return WorkingTime{}, fmt.Errorf("failed to insert working time: %w", err)
	}

	s.logger.Info("Working time created",
		zap.String("tenant_id", tenant.String()),
		zap.String("user", wt.User.String()),
		zap.String("working_time_id", wt.ID.String()),
		zap.Stringer("valid_from", wt.ValidFrom))

	return wt, nil
}

// DeleteWorkingTime removes a dated record of a user. The open record is kept so the schedule stays complete.
func (s *Service) DeleteWorkingTime(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID, id uuid.UUID) error {
	existing, err := s.repo.FindByUser(ctx, tenant, localID)
	if err != nil {
		return fmt.Errorf("failed to load working times of user %s: %w", localID, err)
	}

	for _, wt := range existing {
		if wt.ID != id {
			continue
		}
		if wt.ValidFrom.IsOpen() {
			return ErrDeleteOpenRecord
		}
		if err := s.repo.Delete(ctx, tenant, id); err != nil {
			return fmt.Errorf("failed to delete working time: %w", err)
		}
		s.logger.Info("Working time deleted",
			zap.String("tenant_id", tenant.String()),
			zap.String("user", wt.User.String()),
			zap.String("working_time_id", id.String()))
		return nil
	}

	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// EnsureDefaultWorkingTime creates the default open record unless the user already has an open record.
// It is safe to call again for the same user.
func (s *Service) EnsureDefaultWorkingTime(ctx context.Context, tenant tenancy.TenantID, u user.IDComposite) error {
	existing, err := s.repo.FindByUser(ctx, tenant, u.LocalID)
	if err != nil {
		return fmt.Errorf("failed to load working times of user %s: %w", u.LocalID, err)
	}
	if hasOpenRecord(existing) {
		return nil
	}
	_, err = s.CreateDefaultWorkingTime(ctx, tenant, u)
	return err
}

// CreateDefaultWorkingTime gives a new user the open record Monday to Friday 8 hours without public holidays
func (s *Service) CreateDefaultWorkingTime(ctx context.Context, tenant tenancy.TenantID, u user.IDComposite) (WorkingTime, error) {
	return s.CreateWorkingTime(ctx, tenant, WorkingTime{
		User:         u,
		ValidFrom:    Open(),
		Pattern:      DefaultPattern(),
		FederalState: publicholiday.None,
	})
}

func hasOpenRecord(records []WorkingTime) bool {
	for _, wt := range records {
		if wt.ValidFrom.IsOpen() {
			return true
		}
	}
	return false
}
