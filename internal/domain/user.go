// Package domain contains the core business entities for the project
// management backend. These are pure Go structs with no external
// dependencies; relations between entities are expressed as id fields.
package domain

import (
	"time"
)

// User represents a registered account.
// Users own projects; a user never holds a live collection of its projects,
// those are looked up through the project repository by owner id.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique, case-sensitive login name.
	Username string `json:"username"`

	// PasswordHash is the digest produced by the password hasher.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Role is the user's role. Registration always yields RoleUser.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with the default role.
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanAccess reports whether the user may read or modify a resource owned
// by ownerID. Admins may access everything, other users only what they own.
func (u *User) CanAccess(ownerID int64) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.ID == ownerID
}
