package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/focusshift/zeiterfassung/internal/user"
	"go.uber.org/zap"
)

// UserManager is the tenant user side the events are applied to
type UserManager interface {
	FindByID(ctx context.Context, tenant tenancy.TenantID, id user.ID) (tenancy.TenantUser, error)
	CreateNewUser(ctx context.Context, tenant tenancy.TenantID, id user.ID, givenName, familyName string, email tenancy.EMailAddress, authorities []tenancy.SecurityRole) (tenancy.TenantUser, error)
	UpdateUser(ctx context.Context, tenant tenancy.TenantID, u tenancy.TenantUser) (tenancy.TenantUser, error)
	DeleteUser(ctx context.Context, tenant tenancy.TenantID, localID user.LocalID) error
	RunCreatedHooks(ctx context.Context, tenant tenancy.TenantID, u tenancy.TenantUser) error
}

var defaultAuthorities = []tenancy.SecurityRole{tenancy.RoleUser}

// Handler applies portal user lifecycle events to tenant users
type Handler struct {
	users  UserManager
	logger *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(users UserManager, logger *zap.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// OnUserCreated creates the user unless it already exists
func (h *Handler) OnUserCreated(ctx context.Context, event UserCreatedEvent) error {
	h.logger.Info("Received PortalUserCreatedEvent",
		zap.String("user_id", event.UUID),
		zap.String("tenant_id", event.TenantID))

	tenant, err := check(event, event.TenantID)
	if err != nil {
		h.skip(event.UUID, event.TenantID, err)
		return nil
	}
	id := user.ID(event.UUID)

	existing, err := h.users.FindByID(ctx, tenant, id)
	switch {
	case err == nil:
		h.logger.Info("Can not create user - user already exists",
			zap.String("user_id", event.UUID),
			zap.String("tenant_id", event.TenantID))
		// a previous delivery may have stored the user but failed afterwards
		return h.users.RunCreatedHooks(ctx, tenant, existing)
	case !errors.Is(err, tenancy.ErrUserNotFound):
		return fmt.Errorf("failed to look up user %s: %w", id, err)
	}

	h.logger.Info("Creating new user",
		zap.String("user_id", event.UUID),
		zap.String("tenant_id", event.TenantID))
	_, err = h.users.CreateNewUser(ctx, tenant, id, event.FirstName, event.LastName, tenancy.EMailAddress(event.Email), defaultAuthorities)
	return err
}

// OnUserUpdated updates the user, creating it when it does not exist yet
func (h *Handler) OnUserUpdated(ctx context.Context, event UserUpdatedEvent) error {
	h.logger.Info("Received PortalUserUpdatedEvent",
		zap.String("user_id", event.UUID),
		zap.String("tenant_id", event.TenantID))

	tenant, err := check(event, event.TenantID)
	if err != nil {
		h.skip(event.UUID, event.TenantID, err)
		return nil
	}
	id := user.ID(event.UUID)

	existing, err := h.users.FindByID(ctx, tenant, id)
	if errors.Is(err, tenancy.ErrUserNotFound) {
		h.logger.Info("No user found - going to create user",
			zap.String("user_id", event.UUID),
			zap.String("tenant_id", event.TenantID))
		_, err = h.users.CreateNewUser(ctx, tenant, id, event.FirstName, event.LastName, tenancy.EMailAddress(event.Email), defaultAuthorities)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", id, err)
	}

	existing.GivenName = event.FirstName
	existing.FamilyName = event.LastName
	existing.EMail = tenancy.EMailAddress(event.Email)
	updated, err := h.users.UpdateUser(ctx, tenant, existing)
	if err != nil {
		return err
	}
	return h.users.RunCreatedHooks(ctx, tenant, updated)
}

// OnUserDeleted deletes the user if it exists
func (h *Handler) OnUserDeleted(ctx context.Context, event UserDeletedEvent) error {
	h.logger.Info("Received PortalUserDeletedEvent",
		zap.String("user_id", event.UUID),
		zap.String("tenant_id", event.TenantID))

	tenant, err := check(event, event.TenantID)
	if err != nil {
		h.skip(event.UUID, event.TenantID, err)
		return nil
	}

	existing, err := h.users.FindByID(ctx, tenant, user.ID(event.UUID))
	if errors.Is(err, tenancy.ErrUserNotFound) {
		h.logger.Info("No user found - skipping deletion",
			zap.String("user_id", event.UUID),
			zap.String("tenant_id", event.TenantID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", event.UUID, err)
	}

	h.logger.Info("Found existing user - deleting user",
		zap.String("user_id", event.UUID),
		zap.String("tenant_id", event.TenantID))
	return h.users.DeleteUser(ctx, tenant, existing.LocalID)
}

func (h *Handler) skip(userID, tenantID string, err error) {
	h.logger.Info("Could not map portal event, skipping",
		zap.String("user_id", userID),
		zap.String("tenant_id", tenantID),
		zap.Error(err))
}
