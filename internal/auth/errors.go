// Package auth provides password hashing, bearer token issuance and the
// HTTP authentication middleware for the project management API.
package auth

import "errors"

// Authentication errors.
var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken indicates the token is malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrTokenExpired is the message reported for a well-formed token past its expiry.
	// Verify still returns ErrInvalidToken; use IsExpired to tell the cases apart.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownSubject indicates the token subject no longer resolves to a user.
	ErrUnknownSubject = errors.New("token subject does not exist")

	// ErrEmptySecret indicates the token service was built without a signing key.
	ErrEmptySecret = errors.New("empty signing secret")
)
