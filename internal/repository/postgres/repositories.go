package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/repository"
)

// NewRepositories wires every PostgreSQL repository onto one querier.
func NewRepositories(q Querier) *repository.Repositories {
	return &repository.Repositories{
		User:            NewUserRepository(q),
		Material:        NewMaterialRepository(q),
		Project:         NewProjectRepository(q),
		ProjectMaterial: NewProjectMaterialRepository(q),
	}
}

// Open applies pending migrations, connects the pool and returns the repositories.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.CreateRepositoriesResult, error) {
	migrator, err := NewMigrator(cfg.URL(), logger)
	if err != nil {
		return nil, err
	}
	migrateErr := migrator.Up()
	if err := migrator.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close migrator")
	}
	if migrateErr != nil {
		return nil, fmt.Errorf("failed to migrate PostgreSQL database: %w", migrateErr)
	}

	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &repository.CreateRepositoriesResult{
		Repos:    NewRepositories(db.Pool),
		Database: db,
	}, nil
}
