package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserHasProjects indicates the user cannot be deleted while owning projects.
	ErrUserHasProjects = errors.New("user still owns projects")

	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")

	// ===========================================
	// Material Errors
	// ===========================================

	// ErrMaterialNotFound indicates the requested material does not exist.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrMaterialAlreadyExists indicates a material with the same name or market id exists.
	ErrMaterialAlreadyExists = errors.New("material already exists")

	// ErrMaterialInUse indicates the material is still referenced by a project.
	ErrMaterialInUse = errors.New("material is referenced by a project")

	// ErrInvalidMaterial indicates a material field failed validation.
	ErrInvalidMaterial = errors.New("invalid material")

	// ===========================================
	// Project Errors
	// ===========================================

	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidProject indicates a project field failed validation.
	ErrInvalidProject = errors.New("invalid project")

	// ===========================================
	// Project Material Errors
	// ===========================================

	// ErrProjectMaterialNotFound indicates the requested link does not exist.
	ErrProjectMaterialNotFound = errors.New("project material not found")

	// ErrProjectMaterialAlreadyExists indicates the (project, material) pair already has a link.
	ErrProjectMaterialAlreadyExists = errors.New("project material already exists")

	// ===========================================
	// Reference Errors
	// ===========================================

	// ErrReferenceNotFound indicates a foreign key points at a missing row.
	ErrReferenceNotFound = errors.New("referenced entity not found")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., project id, material name).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
