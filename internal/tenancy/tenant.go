package tenancy

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTenantID is returned for malformed tenant identifiers
var ErrInvalidTenantID = errors.New("invalid tenant id")

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// TenantID identifies a tenant. It is passed explicitly into every
// repository call; there is no ambient tenant context.
type TenantID string

// ParseTenantID validates a tenant id: lowercase letters, digits and inner hyphens, at most 63 characters
func ParseTenantID(s string) (TenantID, error) {
	if !tenantIDPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTenantID, s)
	}
	return TenantID(s), nil
}

func (id TenantID) String() string {
	return string(id)
}
