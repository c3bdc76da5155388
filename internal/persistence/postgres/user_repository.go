package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const userColumns = `
	local_id, uuid, given_name, family_name, email, first_login_at, authorities,
	status, created_at, updated_at, deactivated_at, deleted_at`

// UserRepository implements tenancy.UserRepository on PostgreSQL
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// FindByID returns the user with the external id
func (r *UserRepository) FindByID(ctx context.Context, tenant tenancy.TenantID, id user.ID) (tenancy.TenantUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+userColumns+` FROM tenant_user WHERE tenant_id = $1 AND uuid = $2`,
		tenant.String(), string(id))
	return scanUser(row)
}

// FindByLocalID returns the user with the local id
func (r *UserRepository) FindByLocalID(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (tenancy.TenantUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+userColumns+` FROM tenant_user WHERE tenant_id = $1 AND local_id = $2`,
		tenant.String(), int64(localID))
	return scanUser(row)
}

// FindAll returns every user of the tenant ordered by local id
func (r *UserRepository) FindAll(ctx context.Context, tenant tenancy.TenantID) ([]tenancy.TenantUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+userColumns+` FROM tenant_user WHERE tenant_id = $1 ORDER BY local_id`,
		tenant.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []tenancy.TenantUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create stores a new user; the database assigns the local id
func (r *UserRepository) Create(ctx context.Context, tenant tenancy.TenantID, u tenancy.TenantUser) (tenancy.TenantUser, error) {
	query := `
		INSERT INTO tenant_user (tenant_id, uuid, given_name, family_name, email, first_login_at,
			authorities, status, created_at, updated_at, deactivated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING local_id`

	var localID int64
	err := r.db.QueryRowContext(ctx, query,
		tenant.String(), string(u.ID), u.GivenName, u.FamilyName, string(u.EMail), u.FirstLoginAt,
		pq.Array(roleStrings(u.Authorities)), string(u.Status), u.CreatedAt, u.UpdatedAt,
		u.DeactivatedAt, u.DeletedAt,
	).Scan(&localID)
	if err != nil {
		r.logger.Error("Failed to create user",
			zap.String("tenant_id", tenant.String()),
			zap.String("user_id", string(u.ID)),
			zap.Error(err))
		return tenancy.TenantUser{}, fmt.Errorf("failed to create user: %w", err)
	}

	u.LocalID = user.LocalID(localID)
	return u, nil
}

// Update replaces the mutable fields of a user
func (r *UserRepository) Update(ctx context.Context, tenant tenancy.TenantID, u tenancy.TenantUser) error {
	query := `
		UPDATE tenant_user SET
			given_name = $3, family_name = $4, email = $5, first_login_at = $6, authorities = $7,
			status = $8, updated_at = $9, deactivated_at = $10, deleted_at = $11
		WHERE tenant_id = $1 AND local_id = $2`

	result, err := r.db.ExecContext(ctx, query,
		tenant.String(), int64(u.LocalID), u.GivenName, u.FamilyName, string(u.EMail), u.FirstLoginAt,
		pq.Array(roleStrings(u.Authorities)), string(u.Status), u.UpdatedAt, u.DeactivatedAt, u.DeletedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return tenancy.ErrUserNotFound
	}
	return nil
}

func scanUser(row scanner) (tenancy.TenantUser, error) {
	var (
		u                       tenancy.TenantUser
		localID                 int64
		id, email, status       string
		authorities             []string
		firstLogin, deactivated sql.NullTime
		deleted                 sql.NullTime
	)
	err := row.Scan(&localID, &id, &u.GivenName, &u.FamilyName, &email, &firstLogin,
		pq.Array(&authorities), &status, &u.CreatedAt, &u.UpdatedAt, &deactivated, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.TenantUser{}, tenancy.ErrUserNotFound
	}
	if err != nil {
		return tenancy.TenantUser{}, fmt.Errorf("failed to scan user: %w", err)
	}

	u.ID = user.ID(id)
	u.LocalID = user.LocalID(localID)
	u.EMail = tenancy.EMailAddress(email)
	u.Status = tenancy.UserStatus(status)
	u.FirstLoginAt = timePtr(firstLogin)
	u.DeactivatedAt = timePtr(deactivated)
	u.DeletedAt = timePtr(deleted)
	for _, a := range authorities {
		u.Authorities = append(u.Authorities, tenancy.SecurityRole(a))
	}
	return u, nil
}

func roleStrings(roles []tenancy.SecurityRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
