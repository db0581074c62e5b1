package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// MaterialService is the catalog logic used by MaterialHandler.
type MaterialService interface {
	List(ctx context.Context) ([]*domain.Material, error)
	Create(ctx context.Context, caller *domain.User, input service.CreateMaterialInput) (*domain.Material, error)
	Delete(ctx context.Context, caller *domain.User, id int64) error
}

// MaterialHandler serves /api/materials.
type MaterialHandler struct {
	materials   MaterialService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(materials MaterialService, maxBodySize int64, logger zerolog.Logger) *MaterialHandler {
	return &MaterialHandler{
		materials:   materials,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "material").Logger(),
	}
}

// MaterialRequest is the body of a material creation.
type MaterialRequest struct {
	Name       string `json:"name"`
	MarketID   string `json:"marketId"`
	Seller     string `json:"seller"`
	PictureURL string `json:"pictureUrl"`
}

// RegisterRoutes mounts the material routes on r.
func (h *MaterialHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// List handles GET /api/materials.
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerOrReject(w, r, h.logger); !ok {
		return
	}

	materials, err := h.materials.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, materials, h.logger)
}

// Create handles POST /api/materials.
func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req MaterialRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	material, err := h.materials.Create(r.Context(), caller, service.CreateMaterialInput(req))
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, material, h.logger)
}

// Delete handles DELETE /api/materials/{id}.
func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.materials.Delete(r.Context(), caller, id); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
