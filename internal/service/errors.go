// Package service provides the business logic of the project management API.
// Every operation takes the calling user explicitly.
package service

import (
	"errors"

	"github.com/prn-tf/pmapp/internal/domain"
)

// Common service errors.
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("current password is incorrect")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("invalid username: must not be blank")
	ErrInvalidPassword    = errors.New("invalid password: must be at least 8 characters")
	ErrBlankPassword      = errors.New("invalid password: must not be blank")

	// Authorization errors
	ErrForbidden       = errors.New("forbidden")
	ErrProjectMismatch = errors.New("project material does not belong to project")

	// Input errors
	ErrNegativeAmount = errors.New("invalid amount: must be a non-negative number")

	// General errors
	ErrInternalError = errors.New("internal server error")
)

// MinPasswordLength is the minimum length for a new password.
const MinPasswordLength = 8

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindUnauthorized
	KindInvalidCredentials
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "internal"
	}
}

var kindTable = []struct {
	kind Kind
	errs []error
}{
	{KindInternal, []error{ErrInternalError}},
	{KindInvalidCredentials, []error{ErrInvalidCredentials}},
	{KindUnauthorized, []error{ErrUnauthorized}},
	{KindForbidden, []error{ErrForbidden, ErrProjectMismatch}},
	{KindBadRequest, []error{
		ErrInvalidUsername,
		ErrInvalidPassword,
		ErrBlankPassword,
		ErrNegativeAmount,
		domain.ErrInvalidMaterial,
		domain.ErrInvalidProject,
		domain.ErrInvalidRole,
	}},
	{KindConflict, []error{
		ErrUsernameTaken,
		domain.ErrUserAlreadyExists,
		domain.ErrUserHasProjects,
		domain.ErrMaterialAlreadyExists,
		domain.ErrMaterialInUse,
		domain.ErrProjectMaterialAlreadyExists,
	}},
	{KindNotFound, []error{
		domain.ErrUserNotFound,
		domain.ErrMaterialNotFound,
		domain.ErrProjectNotFound,
		domain.ErrProjectMaterialNotFound,
		domain.ErrReferenceNotFound,
	}},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, entry := range kindTable {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.kind
			}
		}
	}
	return KindInternal
}
