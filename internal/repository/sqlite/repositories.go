package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/repository"
)

// NewRepositories wires every SQLite repository onto one connection.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:            NewUserRepository(db),
		Material:        NewMaterialRepository(db),
		Project:         NewProjectRepository(db),
		ProjectMaterial: NewProjectMaterialRepository(db),
	}
}

// Open connects, applies pending migrations and returns the repositories.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*repository.CreateRepositoriesResult, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}
	return &repository.CreateRepositoriesResult{
		Repos:    NewRepositories(db),
		Database: db,
	}, nil
}
