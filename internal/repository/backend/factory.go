// Package backend selects and opens the configured repository implementation.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/repository"
	"github.com/prn-tf/pmapp/internal/repository/postgres"
	"github.com/prn-tf/pmapp/internal/repository/sqlite"
)

// Factory creates repositories based on configuration.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Str("driver", cfg.Driver).Logger(),
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}

// Create opens the database, migrates it and builds the repositories.
func (f *Factory) Create(ctx context.Context) (*repository.CreateRepositoriesResult, error) {
	switch f.cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, f.cfg, f.logger)
	case config.DriverSQLite:
		return sqlite.Open(ctx, f.SQLiteConfig(), f.logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", f.cfg.Driver)
	}
}

// SQLiteConfig maps the database section onto sqlite.Config and
// creates the parent directory of a file-backed database.
func (f *Factory) SQLiteConfig() sqlite.Config {
	sc := sqlite.DefaultConfig(f.cfg.Path)
	if f.cfg.JournalMode != "" {
		sc.JournalMode = f.cfg.JournalMode
	}
	if f.cfg.BusyTimeout > 0 {
		sc.BusyTimeout = f.cfg.BusyTimeout
	}
	if f.cfg.CacheSize != 0 {
		sc.CacheSize = f.cfg.CacheSize
	}
	if f.cfg.SynchronousMode != "" {
		sc.SynchronousMode = f.cfg.SynchronousMode
	}
	if f.cfg.Path != sqlite.MemoryPath {
		if dir := filepath.Dir(f.cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				f.logger.Warn().Err(err).Str("dir", dir).Msg("failed to create database directory")
			}
		}
	}
	return sc
}
