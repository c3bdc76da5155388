package workingtime

import (
	"context"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/google/uuid"
)

// Repository loads and stores working-time records.
// Lists are ordered ascending by validity start with the open record first.
type Repository interface {
	// FindByUsers returns the records relevant for [from, toExclusive) of the given users keyed by user.
	// Users without records are absent from the result.
	FindByUsers(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time, users []user.LocalID) (map[user.IDComposite][]WorkingTime, error)
	// FindAll returns the records relevant for [from, toExclusive) of every user of the tenant.
	FindAll(ctx context.Context, tenant tenancy.TenantID, from, toExclusive time.Time) (map[user.IDComposite][]WorkingTime, error)
	// FindByUser returns every record of one user.
	FindByUser(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) ([]WorkingTime, error)
	Insert(ctx context.Context, tenant tenancy.TenantID, wt WorkingTime) error
	Delete(ctx context.Context, tenant tenancy.TenantID, id uuid.UUID) error
}
