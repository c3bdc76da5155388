package portal

import (
	"errors"
	"fmt"

	"github.com/focusshift/zeiterfassung/internal/tenancy"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UserCreatedEvent is sent by the portal when a user was created
type UserCreatedEvent struct {
	UUID      string `json:"uuid" validate:"required,uuid"`
	TenantID  string `json:"tenantId" validate:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
}

// UserUpdatedEvent is sent by the portal when a user changed
type UserUpdatedEvent struct {
	UUID      string `json:"uuid" validate:"required,uuid"`
	TenantID  string `json:"tenantId" validate:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
}

// UserDeletedEvent is sent by the portal when a user was deleted
type UserDeletedEvent struct {
	UUID     string `json:"uuid" validate:"required,uuid"`
	TenantID string `json:"tenantId" validate:"required"`
}

// check validates the event and parses its tenant
func check(event any, tenantID string) (tenancy.TenantID, error) {
	var errs []error
	if err := validate.Struct(event); err != nil {
		errs = append(errs, err)
	}
	tenant, err := tenancy.ParseTenantID(tenantID)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("invalid portal event: %w", errors.Join(errs...))
	}
	return tenant, nil
}
