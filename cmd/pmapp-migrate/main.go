// Package main is the entry point for the project manager database migration tool.
// It manages both the PostgreSQL and the SQLite schema with golang-migrate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/logging"
	"github.com/prn-tf/pmapp/internal/repository/backend"
	"github.com/prn-tf/pmapp/internal/repository/postgres"
	"github.com/prn-tf/pmapp/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// migrator is the common surface of both schema backends.
type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

var (
	_ migrator = (*postgres.Migrator)(nil)
	_ migrator = (*sqlite.Migrator)(nil)
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "version" {
		fmt.Printf("Project Manager Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	}
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the configuration file")
	if err := fs.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(command, fs.Args(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, configPath string) error {
	switch command {
	case "up", "down", "status", "force":
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mg, closeFn, err := openMigrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	switch command {
	case "up":
		return mg.Up()
	case "down":
		return mg.Down()
	case "force":
		if len(args) != 1 {
			return errors.New("force requires exactly one version argument")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return mg.Force(version)
	default:
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Printf("driver=%s version=%d dirty=%t\n", cfg.Database.Driver, version, dirty)
		return nil
	}
}

// openMigrator returns the migrator for the configured driver and a func
// releasing its database handle.
func openMigrator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (migrator, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		mg, err := postgres.NewMigrator(cfg.Database.URL(), logger)
		if err != nil {
			return nil, nil, err
		}
		return mg, func() { _ = mg.Close() }, nil
	case config.DriverSQLite:
		factory := backend.NewFactory(cfg.Database, logger)
		db, err := sqlite.NewDB(ctx, factory.SQLiteConfig(), logger)
		if err != nil {
			return nil, nil, err
		}
		mg, err := sqlite.NewMigrator(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return mg, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Project Manager Migration Tool

Usage:
  pmapp-migrate <command> [--config path] [arguments]

Commands:
  up          Run all pending migrations
  down        Rollback the last migration
  status      Show current migration status
  force       Force set migration version (use with caution)
  version     Print version information
  help        Show this help message

Environment Variables:
  PMAPP_DATABASE_DRIVER    postgres or sqlite
  PMAPP_DATABASE_PATH      SQLite database file
  PMAPP_DATABASE_HOST      PostgreSQL host

Examples:
  pmapp-migrate up
  pmapp-migrate down
  pmapp-migrate status --config configs/config.yaml
  pmapp-migrate force 1`)
}
