package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const absenceColumns = `user_id, start_date, end_date, day_length, type_category, type_source_id, color`

// AbsenceRepository implements absence.Repository on PostgreSQL
type AbsenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAbsenceRepository creates a new AbsenceRepository
func NewAbsenceRepository(db *sql.DB, logger *zap.Logger) *AbsenceRepository {
	return &AbsenceRepository{db: db, logger: logger}
}

// Upsert inserts the absence or replaces the one with the same (tenant, source id, type)
func (r *AbsenceRepository) Upsert(ctx context.Context, w absence.Write) error {
	query := `
		INSERT INTO absence (tenant_id, source_id, user_id, start_date, end_date, day_length, type_category, type_source_id, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, source_id, type_category, type_source_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			day_length = EXCLUDED.day_length,
			color = EXCLUDED.color`

	_, err := r.db.ExecContext(ctx, query,
		w.TenantID.String(), w.SourceID, string(w.UserID),
		w.StartDate, w.EndDate, string(w.DayLength),
		string(w.Type.Category), w.Type.SourceID, string(w.Color))
	if err != nil {
		r.logger.Error("Failed to upsert absence",
			zap.String("tenant_id", w.TenantID.String()),
			zap.Int64("source_id", w.SourceID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert absence: %w", err)
	}
	return nil
}

// Delete removes the absence with (tenant, source id, type)
func (r *AbsenceRepository) Delete(ctx context.Context, tenant tenancy.TenantID, sourceID int64, absenceType absence.Type) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM absence
		WHERE tenant_id = $1 AND source_id = $2 AND type_category = $3 AND type_source_id = $4`,
		tenant.String(), sourceID, string(absenceType.Category), absenceType.SourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete absence: %w", err)
	}
	return result.RowsAffected()
}

// FindByUsers returns absences of the given users intersecting [from, toExclusive)
func (r *AbsenceRepository) FindByUsers(ctx context.Context, tenant tenancy.TenantID, userIDs []user.ID, from, toExclusive time.Time) ([]absence.Absence, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = string(id)
	}
	query := `SELECT ` + absenceColumns + ` FROM absence
		WHERE tenant_id = $1 AND start_date < $2 AND end_date >= $3 AND user_id = ANY($4)
		ORDER BY start_date`
	return r.query(ctx, query, tenant.String(), toExclusive, from, pq.Array(ids))
}

// FindAll returns absences of every user of the tenant intersecting [from, toExclusive)
func (r *AbsenceRepository) FindAll(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) ([]absence.Absence, error) {
	query := `SELECT ` + absenceColumns + ` FROM absence
		WHERE tenant_id = $1 AND start_date < $2 AND end_date >= $3
		ORDER BY start_date`
	return r.query(ctx, query, tenant.String(), toExclusive, from)
}

func (r *AbsenceRepository) query(ctx context.Context, query string, args ...any) ([]absence.Absence, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var out []absence.Absence
	for rows.Next() {
		var (
			a                                  absence.Absence
			userID, dayLength, category, color string
		)
		if err := rows.Scan(&userID, &a.StartDate, &a.EndDate, &dayLength, &category, &a.Type.SourceID, &color); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		a.UserID = user.ID(userID)
		a.DayLength = absence.DayLength(dayLength)
		a.Type.Category = absence.Category(category)
		a.Color = absence.Color(color)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read absences: %w", err)
	}
	return out, nil
}
