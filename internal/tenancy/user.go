package tenancy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focusshift/zeiterfassung/internal/user"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrUserNotFound is returned when a tenant user does not exist
	ErrUserNotFound = errors.New("tenant user not found")
	// ErrInvalidEMail is returned for malformed e-mail addresses
	ErrInvalidEMail = errors.New("invalid e-mail address")
)

var validate = validator.New()

// UserStatus is the lifecycle state of a tenant user
type UserStatus string

const (
	StatusActive   UserStatus = "ACTIVE"
	StatusInactive UserStatus = "INACTIVE"
	StatusDeleted  UserStatus = "DELETED"
	StatusUnknown  UserStatus = "UNKNOWN"
)

// SecurityRole is an authority granted to a tenant user
type SecurityRole string

const (
	RoleUser                   SecurityRole = "ZEITERFASSUNG_USER"
	RoleViewReportAll          SecurityRole = "ZEITERFASSUNG_VIEW_REPORT_ALL"
	RoleWorkingTimeEditAll     SecurityRole = "ZEITERFASSUNG_WORKING_TIME_EDIT_ALL"
	RoleOvertimeAccountEditAll SecurityRole = "ZEITERFASSUNG_OVERTIME_ACCOUNT_EDIT_ALL"
	RolePermissionsEditAll     SecurityRole = "ZEITERFASSUNG_PERMISSIONS_EDIT_ALL"
)

// EMailAddress of a tenant user
type EMailAddress string

// ParseEMailAddress validates an e-mail address
func ParseEMailAddress(s string) (EMailAddress, error) {
	s = strings.TrimSpace(s)
	if err := validate.Var(s, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEMail, s)
	}
	return EMailAddress(s), nil
}

// TenantUser is a user of one tenant
type TenantUser struct {
	ID            user.ID
	LocalID       user.LocalID
	GivenName     string
	FamilyName    string
	EMail         EMailAddress
	FirstLoginAt  *time.Time
	Authorities   []SecurityRole
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
	DeletedAt     *time.Time
	Status        UserStatus
}

// IsActive reports whether the user may work; unknown counts as active
func (u TenantUser) IsActive() bool {
	return u.Status == StatusActive || u.Status == StatusUnknown
}

// IDComposite returns the identity used to key per-user results
func (u TenantUser) IDComposite() user.IDComposite {
	return user.IDComposite{ID: u.ID, LocalID: u.LocalID}
}

func (u TenantUser) String() string {
	return fmt.Sprintf("TenantUser{id=%s, localId=%d}", u.ID, u.LocalID)
}
