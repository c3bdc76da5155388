package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/focusshift/zeiterfassung/internal/workingtime"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const workingTimeColumns = `
	w.id, u.uuid, w.user_id, w.valid_from,
	w.monday, w.tuesday, w.wednesday, w.thursday, w.friday, w.saturday, w.sunday,
	w.federal_state, w.works_on_public_holiday`

const workingTimeFrom = `
	FROM working_time w
	JOIN tenant_user u ON u.tenant_id = w.tenant_id AND u.local_id = w.user_id`

// WorkingTimeRepository implements workingtime.Repository on PostgreSQL
type WorkingTimeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkingTimeRepository creates a new WorkingTimeRepository
func NewWorkingTimeRepository(db *sql.DB, logger *zap.Logger) *WorkingTimeRepository {
	return &WorkingTimeRepository{db: db, logger: logger}
}

// FindByUsers returns every record starting before toExclusive of the given users.
// Earlier records are needed because one of them is in effect on from.
func (r *WorkingTimeRepository) FindByUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite][]workingtime.WorkingTime, error) {
	ids := make([]int64, len(users))
	for i, id := range users {
		ids[i] = int64(id)
	}

	query := `SELECT` + workingTimeColumns + workingTimeFrom + `
		WHERE w.tenant_id = $1
		  AND (w.valid_from IS NULL OR w.valid_from < $2)
		  AND w.user_id = ANY($3)
		ORDER BY w.user_id, w.valid_from ASC NULLS FIRST`
	return r.queryGrouped(ctx, query, tenant.String(), toExclusive, pq.Array(ids))
}

// FindAll returns every record starting before toExclusive of every user of the tenant
func (r *WorkingTimeRepository) FindAll(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) (map[user.IDComposite][]workingtime.WorkingTime, error) {
	query := `SELECT` + workingTimeColumns + workingTimeFrom + `
		WHERE w.tenant_id = $1
		  AND (w.valid_from IS NULL OR w.valid_from < $2)
		ORDER BY w.user_id, w.valid_from ASC NULLS FIRST`
	return r.queryGrouped(ctx, query, tenant.String(), toExclusive)
}

// FindByUser returns every record of one user
func (r *WorkingTimeRepository) FindByUser(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) ([]workingtime.WorkingTime, error) {
	query := `SELECT` + workingTimeColumns + workingTimeFrom + `
		WHERE w.tenant_id = $1 AND w.user_id = $2
		ORDER BY w.valid_from ASC NULLS FIRST`

	rows, err := r.db.QueryContext(ctx, query, tenant.String(), int64(localID))
	if err != nil {
		return nil, fmt.Errorf("failed to query working times: %w", err)
	}
	defer rows.Close()

	var out []workingtime.WorkingTime
	for rows.Next() {
		wt, err := scanWorkingTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

// Insert stores a new record
func (r *WorkingTimeRepository) Insert(ctx context.Context, tenant tenancy.TenantID, wt workingtime.WorkingTime) error {
	var validFrom sql.NullTime
	if date, ok := wt.ValidFrom.Date(); ok {
		validFrom = sql.NullTime{Time: date, Valid: true}
	}

	query := `
		INSERT INTO working_time (
			id, tenant_id, user_id, valid_from,
			monday, tuesday, wednesday, thursday, friday, saturday, sunday,
			federal_state, works_on_public_holiday)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	p := wt.Pattern
	_, err := r.db.ExecContext(ctx, query,
		wt.ID, tenant.String(), int64(wt.User.LocalID), validFrom,
		seconds(p[time.Monday]), seconds(p[time.Tuesday]), seconds(p[time.Wednesday]),
		seconds(p[time.Thursday]), seconds(p[time.Friday]), seconds(p[time.Saturday]),
		seconds(p[time.Sunday]),
		string(wt.FederalState), wt.WorksOnPublicHoliday)
	if err != nil {
		if isUniqueViolation(err) {
			return workingtime.ErrDuplicateValidFrom
		}
		r.logger.Error("Failed to insert working time",
			zap.String("tenant_id", tenant.String()),
			zap.Stringer("id", wt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to insert working time: %w", err)
	}
	return nil
}

// Delete removes a record by id
func (r *WorkingTimeRepository) Delete(ctx context.Context, tenant tenancy.TenantID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM working_time WHERE tenant_id = $1 AND id = $2`, tenant.String(), id)
	if err != nil {
		return fmt.Errorf("failed to delete working time: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete working time: %w", err)
	}
	if n == 0 {
		return workingtime.ErrNotFound
	}
	return nil
}

func (r *WorkingTimeRepository) queryGrouped(ctx context.Context, query string, args ...any) (map[user.IDComposite][]workingtime.WorkingTime, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query working times: %w", err)
	}
	defer rows.Close()

	out := make(map[user.IDComposite][]workingtime.WorkingTime)
	for rows.Next() {
		wt, err := scanWorkingTime(rows)
		if err != nil {
			return nil, err
		}
		out[wt.User] = append(out[wt.User], wt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read working times: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkingTime(row scanner) (workingtime.WorkingTime, error) {
	var (
		wt        workingtime.WorkingTime
		userID    string
		localID   int64
		validFrom sql.NullTime
		days      [7]int64
		state     string
	)
	err := row.Scan(&wt.ID, &userID, &localID, &validFrom,
		&days[time.Monday], &days[time.Tuesday], &days[time.Wednesday],
		&days[time.Thursday], &days[time.Friday], &days[time.Saturday], &days[time.Sunday],
		&state, &wt.WorksOnPublicHoliday)
	if err != nil {
		return workingtime.WorkingTime{}, fmt.Errorf("failed to scan working time: %w", err)
	}

	wt.User = user.IDComposite{ID: user.ID(userID), LocalID: user.LocalID(localID)}
	if validFrom.Valid {
		wt.ValidFrom = workingtime.From(validFrom.Time)
	} else {
		wt.ValidFrom = workingtime.Open()
	}
	for d, s := range days {
		wt.Pattern[d] = time.Duration(s) * time.Second
	}
	wt.FederalState = publicholiday.FederalState(state)
	return wt, nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// isUniqueViolation reports a unique_violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
