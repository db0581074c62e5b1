// Package main is the entry point for the project manager server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/prn-tf/pmapp/internal/auth"
	"github.com/prn-tf/pmapp/internal/cache/memory"
	rediscache "github.com/prn-tf/pmapp/internal/cache/redis"
	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/handler"
	"github.com/prn-tf/pmapp/internal/lock"
	"github.com/prn-tf/pmapp/internal/logging"
	"github.com/prn-tf/pmapp/internal/metrics"
	"github.com/prn-tf/pmapp/internal/repository"
	"github.com/prn-tf/pmapp/internal/repository/backend"
	"github.com/prn-tf/pmapp/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pmapp-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting project manager server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	result, err := backend.NewFactory(cfg.Database, logger).Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer result.Database.Close()

	// Initialize lock and cache
	locker, materialCache, cleanup, err := coordination(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize auth
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	// Initialize services
	repos := result.Repos
	credentials := service.NewCredentialService(repos.User, hasher, tokens, m, logger)
	accounts := service.NewUserService(repos.User, repos.Project, hasher, logger)
	materials := service.NewMaterialService(repos.Material, service.MaterialServiceConfig{
		Cache:    materialCache,
		CacheTTL: cfg.Cache.MaterialTTL,
	}, logger)
	projects := service.NewProjectService(repos.Project, logger)
	links := service.NewProjectMaterialService(repos.Project, repos.Material, repos.ProjectMaterial,
		service.ProjectMaterialServiceConfig{
			Locker:         locker,
			LockTTL:        cfg.Lock.TTL,
			LockRetries:    cfg.Lock.MaxRetries,
			LockRetryDelay: cfg.Lock.RetryDelay,
			Metrics:        m,
		}, logger)

	// Initialize HTTP layer
	maxBody := cfg.Server.MaxBodySize
	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:            handler.NewAuthHandler(credentials, maxBody, logger),
		UserHandler:            handler.NewUserHandler(credentials, accounts, maxBody, logger),
		MaterialHandler:        handler.NewMaterialHandler(materials, maxBody, logger),
		ProjectHandler:         handler.NewProjectHandler(projects, maxBody, logger),
		ProjectMaterialHandler: handler.NewProjectMaterialHandler(links, maxBody, logger),
		AuthMiddleware:         auth.Middleware(tokens, repos.User, authConfig(cfg), logger),
		Health:                 result.Database,
		Metrics:                m,
		MetricsPath:            cfg.Metrics.Path,
		Logger:                 logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// coordination picks the lock and cache backends. With Redis enabled both
// share one client so several server instances serialize upserts together.
func coordination(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lock.Locker, repository.Cache, func(), error) {
	if !cfg.Redis.Enabled {
		locker := lock.NewMemoryLocker()
		c := memory.NewCache()
		logger.Info().Msg("using in-process lock and cache")
		return locker, c, func() {
			c.Stop()
			_ = locker.Close()
		}, nil
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis lock and cache")
	return lock.NewRedisLocker(client), rediscache.NewCache(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}, nil
}

func authConfig(cfg *config.Config) auth.Config {
	ac := auth.DefaultConfig()
	if cfg.Metrics.Path != "" {
		ac.SkipPaths = append(ac.SkipPaths, cfg.Metrics.Path)
	}
	return ac
}
