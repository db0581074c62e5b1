package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/auth"
	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/service"
)

// DefaultMaxBodySize bounds JSON request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

var (
	errInvalidBody     = errors.New("invalid request body")
	errInvalidID       = errors.New("invalid id")
	errMissingCaller   = errors.New("unauthenticated")
	errMissingAmount   = errors.New("amount is required")
	errMissingMaterial = errors.New("materialId is required")
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondWithJSON writes payload as JSON with the given status.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger zerolog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		logger.Debug().Err(err).Msg("failed to write HTTP response")
	}
}

// respondWithError writes {"error": message}.
func respondWithError(w http.ResponseWriter, code int, message string, logger zerolog.Logger) {
	respondWithJSON(w, code, ErrorResponse{Error: message}, logger)
}

// respondWithServiceError maps a service error to its HTTP status.
// Internal errors are logged and replaced by a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	status := StatusForKind(service.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, status, service.ErrInternalError.Error(), logger)
		return
	}
	respondWithError(w, status, err.Error(), logger)
}

// StatusForKind returns the HTTP status for an error kind.
func StatusForKind(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnauthorized, service.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errInvalidBody)
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// callerOrReject returns the authenticated user or writes a 401.
func callerOrReject(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (*domain.User, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errMissingCaller.Error(), logger)
		return nil, false
	}
	return caller, true
}
