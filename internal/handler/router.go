package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/metrics"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router builds the HTTP handler tree.
type Router struct {
	authHandler            *AuthHandler
	userHandler            *UserHandler
	materialHandler        *MaterialHandler
	projectHandler         *ProjectHandler
	projectMaterialHandler *ProjectMaterialHandler
	authMiddleware         func(http.Handler) http.Handler
	health                 HealthChecker
	metrics                *metrics.Metrics
	metricsPath            string
	logger                 zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler            *AuthHandler
	UserHandler            *UserHandler
	MaterialHandler        *MaterialHandler
	ProjectHandler         *ProjectHandler
	ProjectMaterialHandler *ProjectMaterialHandler

	// AuthMiddleware authenticates requests. It must let the auth routes,
	// /health and the metrics path through unauthenticated.
	AuthMiddleware func(http.Handler) http.Handler

	Health HealthChecker

	// Metrics is optional. When set it is served on MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	authMiddleware := config.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = func(next http.Handler) http.Handler { return next }
	}
	metricsPath := config.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Router{
		authHandler:            config.AuthHandler,
		userHandler:            config.UserHandler,
		materialHandler:        config.MaterialHandler,
		projectHandler:         config.ProjectHandler,
		projectMaterialHandler: config.ProjectMaterialHandler,
		authMiddleware:         authMiddleware,
		health:                 config.Health,
		metrics:                config.Metrics,
		metricsPath:            metricsPath,
		logger:                 config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)
	r.Use(rt.authMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "not found", rt.logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", rt.logger)
	})

	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	// Auth routes are served under both prefixes.
	r.Route("/api/auth", rt.authHandler.RegisterRoutes)
	r.Route("/auth", rt.authHandler.RegisterRoutes)

	r.Route("/users", rt.userHandler.RegisterRoutes)
	r.Route("/api/materials", rt.materialHandler.RegisterRoutes)
	r.Route("/api/projects", func(r chi.Router) {
		rt.projectHandler.RegisterRoutes(r)
		r.Route("/{projectId}/materials", rt.projectMaterialHandler.RegisterRoutes)
	})

	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health == nil {
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "unknown"}, rt.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.health.Ping(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("health check failed")
		respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "unreachable"}, rt.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "ok"}, rt.logger)
}
