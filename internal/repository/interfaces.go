// Package repository defines data access interfaces for the project manager.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/pmapp/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrUserAlreadyExists if the username is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by exact (case-sensitive) username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates username, password hash and role of an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]*domain.User, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// =============================================================================
// Material Repository
// =============================================================================

// MaterialRepository defines the interface for material catalog data access.
type MaterialRepository interface {
	// Create creates a new material.
	// Returns domain.ErrMaterialAlreadyExists if name or market id is taken.
	Create(ctx context.Context, material *domain.Material) error

	// GetByID retrieves a material by ID.
	GetByID(ctx context.Context, id int64) (*domain.Material, error)

	// List returns all materials ordered by ID.
	List(ctx context.Context) ([]*domain.Material, error)

	// Delete deletes a material by ID.
	// Returns domain.ErrMaterialInUse if a project still references it.
	Delete(ctx context.Context, id int64) error
}

// =============================================================================
// Project Repository
// =============================================================================

// ProjectRepository defines the interface for project data access.
// Reads fill Project.OwnerUsername from the users table.
type ProjectRepository interface {
	// Create creates a new project.
	// Returns domain.ErrReferenceNotFound if the owner does not exist.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by ID.
	GetByID(ctx context.Context, id int64) (*domain.Project, error)

	// List returns projects ordered by ID.
	// An ownerID of 0 returns every project.
	List(ctx context.Context, ownerID int64) ([]*domain.Project, error)

	// Update updates the mutable fields of a project.
	// OwnerID and CreatedAt are never written.
	Update(ctx context.Context, project *domain.Project) error

	// Delete deletes a project and its material links.
	Delete(ctx context.Context, id int64) error

	// CountByOwner returns the number of projects owned by a user.
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// =============================================================================
// Project Material Repository
// =============================================================================

// ProjectMaterialRepository defines the interface for project-material link data access.
type ProjectMaterialRepository interface {
	// Create creates a new link.
	// Returns domain.ErrProjectMaterialAlreadyExists if the pair already has a link
	// and domain.ErrReferenceNotFound if the project or material is missing.
	Create(ctx context.Context, pm *domain.ProjectMaterial) error

	// GetByID retrieves a link by ID.
	GetByID(ctx context.Context, id int64) (*domain.ProjectMaterial, error)

	// GetByProjectAndMaterial retrieves the link for a (project, material) pair.
	GetByProjectAndMaterial(ctx context.Context, projectID, materialID int64) (*domain.ProjectMaterial, error)

	// UpdateAmount overwrites the amount of an existing link.
	UpdateAmount(ctx context.Context, id int64, amount float64) error

	// Delete deletes a link by ID.
	Delete(ctx context.Context, id int64) error

	// ListByProject returns all links of a project joined with material display fields.
	ListByProject(ctx context.Context, projectID int64) ([]*domain.ProjectMaterialView, error)
}
