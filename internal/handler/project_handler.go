package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// ProjectService is the registry logic used by ProjectHandler.
type ProjectService interface {
	List(ctx context.Context, caller *domain.User) ([]*domain.Project, error)
	Get(ctx context.Context, caller *domain.User, id int64) (*domain.Project, error)
	Create(ctx context.Context, caller *domain.User, input service.CreateProjectInput) (*domain.Project, error)
	Update(ctx context.Context, caller *domain.User, id int64, input service.UpdateProjectInput) (*domain.Project, error)
	Delete(ctx context.Context, caller *domain.User, id int64) error
}

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects    ProjectService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects ProjectService, maxBodySize int64, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:    projects,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "project").Logger(),
	}
}

// ProjectRequest is the body of project creation and update.
// Any owner field a client sends is ignored.
type ProjectRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	EstimatedEnd *string `json:"estimatedEnd"`
	FinishedAt   *string `json:"finishedAt"`
}

// RegisterRoutes mounts the project routes on r. The id parameter is
// {projectId}, matching the nested association routes.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{projectId}", h.Get)
	r.Put("/{projectId}", h.Update)
	r.Delete("/{projectId}", h.Delete)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, projects, h.logger)
}

// Get handles GET /api/projects/{projectId}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	project, err := h.projects.Get(r.Context(), caller, id)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, project, h.logger)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	project, err := h.projects.Create(r.Context(), caller, service.CreateProjectInput{
		Name:         deref(req.Name),
		Description:  deref(req.Description),
		EstimatedEnd: req.EstimatedEnd,
		FinishedAt:   req.FinishedAt,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, project, h.logger)
}

// Update handles PUT /api/projects/{projectId}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	var req ProjectRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	project, err := h.projects.Update(r.Context(), caller, id, service.UpdateProjectInput(req))
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /api/projects/{projectId}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.projects.Delete(r.Context(), caller, id); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
