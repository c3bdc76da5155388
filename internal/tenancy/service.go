package tenancy

import (
	"context"
	"fmt"
	"time"

	"github.com/focusshift/zeiterfassung/internal/user"
	"go.uber.org/zap"
)

// UserRepository stores tenant users
type UserRepository interface {
	FindByID(ctx context.Context, tenant TenantID, id user.ID) (TenantUser, error)
	FindByLocalID(ctx context.Context, tenant TenantID, localID user.LocalID) (TenantUser, error)
	FindAll(ctx context.Context, tenant TenantID) ([]TenantUser, error)
	// Create stores a new user and assigns its LocalID
	Create(ctx context.Context, tenant TenantID, u TenantUser) (TenantUser, error)
	Update(ctx context.Context, tenant TenantID, u TenantUser) error
}

// CreatedHook runs after a tenant user has been created. Hooks run again when a
// redelivered event finds the user already stored, so they must be idempotent.
type CreatedHook func(ctx context.Context, tenant TenantID, u TenantUser) error

// UserService manages tenant users
type UserService struct {
	repo   UserRepository
	hooks  []CreatedHook
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *zap.Logger, hooks ...CreatedHook) *UserService {
	return &UserService{
		repo:   repo,
		hooks:  hooks,
		logger: logger,
		now:    time.Now,
	}
}

// FindByID returns the user with the external id, ErrUserNotFound if there is none
func (s *UserService) FindByID(ctx context.Context, tenant TenantID, id user.ID) (TenantUser, error) {
	return s.repo.FindByID(ctx, tenant, id)
}

// FindByLocalID returns the user with the local id, ErrUserNotFound if there is none
func (s *UserService) FindByLocalID(ctx context.Context, tenant TenantID, localID user.LocalID) (TenantUser, error) {
	return s.repo.FindByLocalID(ctx, tenant, localID)
}

// FindAll returns every user of the tenant
func (s *UserService) FindAll(ctx context.Context, tenant TenantID) ([]TenantUser, error) {
	return s.repo.FindAll(ctx, tenant)
}

// CreateNewUser stores a new active user and runs the created hooks
func (s *UserService) CreateNewUser(ctx context.Context, tenant TenantID, id user.ID, givenName, familyName string, email EMailAddress, authorities []SecurityRole) (TenantUser, error) {
	now := s.now().UTC()
	created, err := s.repo.Create(ctx, tenant, TenantUser{
		ID:          id,
		GivenName:   givenName,
		FamilyName:  familyName,
		EMail:       email,
		Authorities: authorities,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      StatusActive,
	})
	if err != nil {
		return TenantUser{}, fmt.Errorf("failed to create user %s: %w", id, err)
	}

	s.logger.Info("Tenant user created",
		zap.String("tenant_id", tenant.String()),
		zap.String("user_id", string(created.ID)),
		zap.Int64("local_id", int64(created.LocalID)))

	if err := s.RunCreatedHooks(ctx, tenant, created); err != nil {
		return created, err
	}
	return created, nil
}

// RunCreatedHooks runs the created hooks for a stored user. It completes users whose
// hooks failed on creation.
func (s *UserService) RunCreatedHooks(ctx context.Context, tenant TenantID, u TenantUser) error {
	for _, hook := range s.hooks {
		if err := hook(ctx, tenant, u); err != nil {
			s.logger.Error("User created hook failed",
				zap.String("tenant_id", tenant.String()),
				zap.String("user_id", string(u.ID)),
				zap.Error(err))
			return fmt.Errorf("user created hook failed for %s: %w", u.ID, err)
		}
	}
	return nil
}

// UpdateUser replaces the names, e-mail and authorities of an existing user
func (s *UserService) UpdateUser(ctx context.Context, tenant TenantID, u TenantUser) (TenantUser, error) {
	existing, err := s.repo.FindByLocalID(ctx, tenant, u.LocalID)
	if err != nil {
		return TenantUser{}, err
	}

	existing.GivenName = u.GivenName
	existing.FamilyName = u.FamilyName
	existing.EMail = u.EMail
	if u.Authorities != nil {
		existing.Authorities = u.Authorities
	}
	existing.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, tenant, existing); err != nil {
		return TenantUser{}, fmt.Errorf("failed to update user %s: %w", existing.ID, err)
	}

	s.logger.Info("Tenant user updated",
		zap.String("tenant_id", tenant.String()),
		zap.String("user_id", string(existing.ID)))
	return existing, nil
}

// DeleteUser marks the user as deleted. Records referencing the user stay intact.
func (s *UserService) DeleteUser(ctx context.Context, tenant TenantID, localID user.LocalID) error {
	existing, err := s.repo.FindByLocalID(ctx, tenant, localID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	existing.Status = StatusDeleted
	existing.DeletedAt = &now
	existing.UpdatedAt = now

	if err := s.repo.Update(ctx, tenant, existing); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", existing.ID, err)
	}

	s.logger.Info("Tenant user deleted",
		zap.String("tenant_id", tenant.String()),
		zap.String("user_id", string(existing.ID)),
		zap.Int64("local_id", int64(localID)))
	return nil
}
