package absence

import (
	"context"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

// Repository stores absences
type Repository interface {
	// Upsert inserts the absence or replaces the one with the same (tenant, source id, type)
	Upsert(ctx context.Context, w Write) error
	// Delete removes the absence with (tenant, source id, type) and returns the number of removed rows
	Delete(ctx context.Context, tenant tenancy.TenantID, sourceID int64, absenceType Type) (int64, error)
	// FindByUsers returns absences of the given users intersecting [from, toExclusive)
	FindByUsers(ctx context.Context, tenant tenancy.TenantID, userIDs []user.ID, from, toExclusive time.Time) ([]Absence, error)
	// FindAll returns absences of every user of the tenant intersecting [from, toExclusive)
	FindAll(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) ([]Absence, error)
}

// WriteService adds and removes absences delivered by the vacation system
type WriteService struct {
	repo   Repository
	logger *zap.Logger
}

// NewWriteService creates a new WriteService
func NewWriteService(repo Repository, logger *zap.Logger) *WriteService {
	return &WriteService{repo: repo, logger: logger}
}

// AddAbsence stores the absence, replacing an earlier version with the same identification
func (s *WriteService) AddAbsence(ctx context.Context, w Write) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.StartDate, w.EndDate = dateutil.DateOf(w.StartDate), dateutil.DateOf(w.EndDate)

	if err := s.repo.Upsert(ctx, w); err != nil {
		return fmt.Errorf("failed to store absence: %w", err)
	}

	s.logger.Info("Absence added",
		zap.String("tenant_id", w.TenantID.String()),
		zap.Int64("source_id", w.SourceID),
		zap.Stringer("type", w.Type),
		zap.String("user_id", string(w.UserID)),
		zap.String("start_date", dateutil.FormatDate(w.StartDate)),
		zap.String("end_date", dateutil.FormatDate(w.EndDate)))
	return nil
}

// DeleteAbsence removes the absence with the same identification. Nothing to delete is not an error.
func (s *WriteService) DeleteAbsence(ctx context.Context, w Write) error {
	deleted, err := s.repo.Delete(ctx, w.TenantID, w.SourceID, w.Type)
	if err != nil {
		return fmt.Errorf("failed to delete absence: %w", err)
	}

	if deleted == 0 {
		s.logger.Info("No absence to delete",
			zap.String("tenant_id", w.TenantID.String()),
			zap.Int64("source_id", w.SourceID),
			zap.Stringer("type", w.Type))
		return nil
	}

	s.logger.Info("Absence deleted",
		zap.String("tenant_id", w.TenantID.String()),
		zap.Int64("source_id", w.SourceID),
		zap.Stringer("type", w.Type),
		zap.Int64("rows", deleted))
	return nil
}

// ReadService looks up absences
type ReadService struct {
	repo Repository
}

// NewReadService creates a new ReadService
func NewReadService(repo Repository) *ReadService {
	return &ReadService{repo: repo}
}

// FindAbsences returns the absences intersecting [from, toExclusive) grouped by user.
// An empty userIDs slice means every user of the tenant.
func (s *ReadService) FindAbsences(ctx context.Context, tenant tenancy.TenantID, userIDs []user.ID, from, toExclusive time.Time) (map[user.ID][]Absence, error) {
	if _, err := dateutil.NewDateRangeExclusive(from, toExclusive); err != nil {
		return nil, err
	}
	from, toExclusive = dateutil.DateOf(from), dateutil.DateOf(toExclusive)

	var (
		absences []Absence
		err      error
	)
	if len(userIDs) == 0 {
		absences, err = s.repo.FindAll(ctx, tenant, from, toExclusive)
	} else {
		absences, err = s.repo.FindByUsers(ctx, tenant, userIDs, from, toExclusive)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load absences: %w", err)
	}

	byUser := make(map[user.ID][]Absence)
	for _, a := range absences {
		if a.Intersects(from, toExclusive) {
			byUser[a.UserID] = append(byUser[a.UserID], a)
		}
	}
	return byUser, nil
}
