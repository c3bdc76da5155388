package user

import (
	"fmt"
	"strconv"
)

// ID is the external user id issued by the identity provider (OIDC subject)
type ID string

// LocalID is the tenant-local numeric user id
type LocalID int64

func (id LocalID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseLocalID parses a decimal local user id
func ParseLocalID(s string) (LocalID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid local user id %q", s)
	}
	return LocalID(v), nil
}

// IDComposite identifies a user by both its external and local id.
// It is comparable and used as map key for per-user results.
type IDComposite struct {
	ID      ID
	LocalID LocalID
}

func (c IDComposite) String() string {
	return fmt.Sprintf("%s(%d)", c.ID, c.LocalID)
}
