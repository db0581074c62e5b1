// Package handler provides the HTTP API of the project management server.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// CredentialService is the credential logic used by the auth and user handlers.
type CredentialService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthOutput, error)
	Login(ctx context.Context, input service.LoginInput) (*service.AuthOutput, error)
	ChangeUsername(ctx context.Context, caller *domain.User, input service.ChangeUsernameInput) error
	ChangePassword(ctx context.Context, caller *domain.User, input service.ChangePasswordInput) error
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	credentials CredentialService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(credentials CredentialService, maxBodySize int64, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Token    string      `json:"token"`
}

// RegisterRoutes mounts the auth routes on r.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	out, err := h.credentials.Register(r.Context(), service.RegisterInput(req))
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, newAuthResponse(out), h.logger)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req, h.maxBodySize); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	out, err := h.credentials.Login(r.Context(), service.LoginInput(req))
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, newAuthResponse(out), h.logger)
}

func newAuthResponse(out *service.AuthOutput) AuthResponse {
	return AuthResponse{
		ID:       out.User.ID,
		Username: out.User.Username,
		Role:     out.User.Role,
		Token:    out.Token,
	}
}
