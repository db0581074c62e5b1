package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	// RoleUser is the default role; access is limited to owned resources.
	RoleUser Role = "USER"

	// RoleAdmin can manage every project and the material catalog.
	RoleAdmin Role = "ADMIN"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}
