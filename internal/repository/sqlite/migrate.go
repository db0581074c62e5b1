package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations with golang-migrate over
// an open DB, so every step runs with the connection's pragmas.
// It shares the DB's pool and has no Close of its own.
type Migrator struct {
	m      *migrate.Migrate
	logger zerolog.Logger
}

// NewMigrator creates a migrator on db.
func NewMigrator(db *DB) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db.db, &sqlitemigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{
		m:      m,
		logger: db.logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Debug().Msg("no migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	mg.logger.Info().Msg("migrations applied")
	return nil
}

// Down reverts the most recent migration.
// It is a no-op when nothing has been applied.
func (mg *Migrator) Down() error {
	version, _, err := mg.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}

	if err := mg.m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to revert migration: %w", err)
	}
	mg.logger.Info().Uint("from_version", version).Msg("migration reverted")
	return nil
}

// Force sets the recorded version without running migrations,
// clearing the dirty flag after a failed run.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	mg.logger.Warn().Int("version", version).Msg("migration version forced")
	return nil
}

// Version returns the applied version and whether the last run left it dirty.
// A database without migrations reports version 0.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

// Migrate applies every pending migration to db.
func (db *DB) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mg, err := NewMigrator(db)
	if err != nil {
		return err
	}
	return mg.Up()
}
