package overtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by a Repository when the user has no stored account
	ErrNotFound = errors.New("overtime account not found")
	// ErrInvalidMaxAllowed is returned for a negative maximum
	ErrInvalidMaxAllowed = errors.New("max allowed overtime must not be negative")
)

// Account says whether a user may accumulate overtime and optionally how much.
// A nil MaxAllowed means no limit.
type Account struct {
	User       user.LocalID
	Allowed    bool
	MaxAllowed *time.Duration
}

// DefaultAccount is the account of users that never had one stored: overtime allowed without limit
func DefaultAccount(localID user.LocalID) Account {
	return Account{User: localID, Allowed: true}
}

// Repository stores overtime accounts
type Repository interface {
	// Find returns the stored account; ErrNotFound if there is none
	Find(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (Account, error)
	// Save inserts or replaces the account
	Save(ctx context.Context, tenant tenancy.TenantID, account Account) error
}

// UserFinder resolves tenant users
type UserFinder interface {
	FindByLocalID(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (tenancy.TenantUser, error)
}

// Service reads and updates overtime accounts
type Service struct {
	repo   Repository
	users  UserFinder
	logger *zap.Logger
}

// NewService creates a new Service
func NewService(repo Repository, users UserFinder, logger *zap.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger}
}

// GetOvertimeAccount returns the stored account of the user or the default account.
// Unknown users yield tenancy.ErrUserNotFound.
func (s *Service) GetOvertimeAccount(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) (Account, error) {
	if _, err := s.users.FindByLocalID(ctx, tenant, localID); err != nil {
		return Account{}, err
	}

	account, err := s.repo.Find(ctx, tenant, localID)
	if errors.Is(err, ErrNotFound) {
		return DefaultAccount(localID), nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to load overtime account of user %s: %w", localID, err)
	}
	return account, nil
}

// UpdateOvertimeAccount stores whether overtime is allowed and the optional maximum
func (s *Service) UpdateOvertimeAccount(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID, allowed bool, maxAllowed *time.Duration) (Account, error) {
	if maxAllowed != nil && *maxAllowed < 0 {
		return Account{}, fmt.Errorf("%w: %s", ErrInvalidMaxAllowed, *maxAllowed)
	}
	if _, err := s.users.FindByLocalID(ctx, tenant, localID); err != nil {
		return Account{}, err
	}

	account := Account{User: localID, Allowed: allowed}
	if maxAllowed != nil {
		limit := *maxAllowed
		account.MaxAllowed = &limit
	}
	if err := s.repo.Save(ctx, tenant, account); err != nil {
		return Account{}, fmt.Errorf("failed to save overtime account of user %s: %w", localID, err)
	}

	fields := []zap.Field{
		zap.String("tenant_id", tenant.String()),
		zap.Int64("local_id", int64(localID)),
		zap.Bool("allowed", allowed),
	}
	if account.MaxAllowed != nil {
		fields = append(fields, zap.Duration("max_allowed", *account.MaxAllowed))
	}
	s.logger.Info("Overtime account updated", fields...)

	return account, nil
}
