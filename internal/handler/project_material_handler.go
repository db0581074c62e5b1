package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// ProjectMaterialService is the association logic used by ProjectMaterialHandler.
type ProjectMaterialService interface {
	List(ctx context.Context, caller *domain.User, projectID int64) ([]*domain.ProjectMaterialView, error)
	Upsert(ctx context.Context, caller *domain.User, input service.UpsertInput) (*service.UpsertOutput, error)
	Delete(ctx context.Context, caller *domain.User, projectID, linkID int64) error
}

// ProjectMaterialHandler serves /api/projects/{projectId}/materials.
type ProjectMaterialHandler struct {
	links       ProjectMaterialService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewProjectMaterialHandler creates a new ProjectMaterialHandler.
func NewProjectMaterialHandler(links ProjectMaterialService, maxBodySize int64, logger zerolog.Logger) *ProjectMaterialHandler {
	return &ProjectMaterialHandler{
		links:       links,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "project_material").Logger(),
	}
}

// ProjectMaterialRequest is the body of an upsert.
type ProjectMaterialRequest struct {
	MaterialID *int64   `json:"materialId"`
	Amount     *float64 `json:"amount"`
}

// RegisterRoutes mounts the association routes on r. r must be mounted
// under a pattern that captures {projectId}.
func (h *ProjectMaterialHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Upsert)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/projects/{projectId}/materials.
func (h *ProjectMaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	projectID, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	views, err := h.links.List(r.Context(), caller, projectID)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, views, h.logger)
}

// Upsert handles POST /api/projects/{projectId}/materials.
func (h *ProjectMaterialHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	projectID, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	var req ProjectMaterialRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	if req.MaterialID == nil {
		respondWithError(w, http.StatusBadRequest, errMissingMaterial.Error(), h.logger)
		return
	}
	if req.Amount == nil {
		respondWithError(w, http.StatusBadRequest, errMissingAmount.Error(), h.logger)
		return
	}

	out, err := h.links.Upsert(r.Context(), caller, service.UpsertInput{
		ProjectID:  projectID,
		MaterialID: *req.MaterialID,
		Amount:     *req.Amount,
	})
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, out.View, h.logger)
}

// Delete handles DELETE /api/projects/{projectId}/materials/{id}.
func (h *ProjectMaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	projectID, err := pathID(r, "projectId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.links.Delete(r.Context(), caller, projectID, id); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
