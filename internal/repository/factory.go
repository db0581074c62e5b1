package repository

import "context"

// Repositories holds all repository instances.
type Repositories struct {
	User            UserRepository
	Material        MaterialRepository
	Project         ProjectRepository
	ProjectMaterial ProjectMaterialRepository
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.HealthChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// CreateRepositoriesResult contains the created repositories and database connection.
type CreateRepositoriesResult struct {
	Repos    *Repositories
	Database DatabaseHealth
}
