package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// AccountService is the account logic used by UserHandler.
type AccountService interface {
	Me(ctx context.Context, caller *domain.User) (*domain.User, error)
	DeleteSelf(ctx context.Context, caller *domain.User) error
	DeleteUser(ctx context.Context, caller *domain.User, userID int64) error
}

// UserHandler serves /users.
type UserHandler struct {
	credentials CredentialService
	accounts    AccountService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(credentials CredentialService, accounts AccountService, maxBodySize int64, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		credentials: credentials,
		accounts:    accounts,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "user").Logger(),
	}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// ChangeUsernameRequest is the body of PUT /users/me/username.
type ChangeUsernameRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewUsername     string `json:"newUsername"`
}

// ChangePasswordRequest is the body of PUT /users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// RegisterRoutes mounts the user routes on r.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Put("/me/username", h.ChangeUsername)
	r.Put("/me/password", h.ChangePassword)
	r.Delete("/me", h.DeleteSelf)
	r.Delete("/{id}", h.DeleteUser)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.accounts.Me(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, UserResponse{ID: user.ID, Username: user.Username, Role: user.Role}, h.logger)
}

// ChangeUsername handles PUT /users/me/username.
func (h *UserHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangeUsernameRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.credentials.ChangeUsername(r.Context(), caller, service.ChangeUsernameInput(req)); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles PUT /users/me/password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.credentials.ChangePassword(r.Context(), caller, service.ChangePasswordInput(req)); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSelf handles DELETE /users/me.
func (h *UserHandler) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.accounts.DeleteSelf(r.Context(), caller); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /users/{id}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), caller, id); err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
