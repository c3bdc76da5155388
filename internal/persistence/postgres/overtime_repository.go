package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/overtime"
	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"go.uber.org/zap"
)

// OvertimeAccountRepository implements overtime.Repository on PostgreSQL
type OvertimeAccountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOvertimeAccountRepository creates a new OvertimeAccountRepository
func NewOvertimeAccountRepository(db *sql.DB, logger *zap.Logger) *OvertimeAccountRepository {
	return &OvertimeAccountRepository{db: db, logger: logger}
}

// Find returns the stored account, overtime.ErrNotFound if there is none
func (r *OvertimeAccountRepository) Find(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (overtime.Account, error) {
	var (
		allowed    bool
		maxSeconds sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT allowed, max_allowed_seconds
		FROM overtime_account
		WHERE tenant_id = $1 AND user_id = $2`,
		tenant.String(), int64(localID)).Scan(&allowed, &maxSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return overtime.Account{}, overtime.ErrNotFound
	}
	if err != nil {
		return overtime.Account{}, fmt.Errorf("failed to query overtime account: %w", err)
	}

	account := overtime.Account{User: localID, Allowed: allowed}
	if maxSeconds.Valid {
		limit := time.Duration(maxSeconds.Int64) * time.Second
		account.MaxAllowed = &limit
	}
	return account, nil
}

// Save inserts the account or replaces the stored one
func (r *OvertimeAccountRepository) Save(ctx context.Context, tenant tenancy.TenantID, account overtime.Account) error {
	var maxSeconds sql.NullInt64
	if account.MaxAllowed != nil {
		maxSeconds = sql.NullInt64{Int64: seconds(*account.MaxAllowed), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO overtime_account (tenant_id, user_id, allowed, max_allowed_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			allowed = EXCLUDED.allowed,
			max_allowed_seconds = EXCLUDED.max_allowed_seconds`,
		tenant.String(), int64(account.User), account.Allowed, maxSeconds)
	if err != nil {
		r.logger.Error("Failed to save overtime account",
			zap.String("tenant_id", tenant.String()),
			zap.Int64("local_id", int64(account.User)),
			zap.Error(err))
		return fmt.Errorf("failed to save overtime account: %w", err)
	}
	return nil
}
