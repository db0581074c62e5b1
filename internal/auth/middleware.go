package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// CallerContextKey is the context key for the authenticated user.
	CallerContextKey ContextKey = "caller"

	// AuthorizationHeader is the header carrying the bearer token.
	AuthorizationHeader = "Authorization"

	bearerPrefix = "Bearer "
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// UserLookup loads the user a token refers to.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Config holds authentication middleware configuration.
type Config struct {
	// SkipPaths are exact paths that bypass authentication.
	SkipPaths []string

	// SkipPrefixes are path prefixes that bypass authentication.
	SkipPrefixes []string
}

// DefaultConfig returns the default middleware configuration.
func DefaultConfig() Config {
	return Config{
		SkipPaths: []string{"/health", "/metrics"},
		SkipPrefixes: []string{
			"/api/auth/",
			"/auth/",
		},
	}
}

func (c Config) skip(path string) bool {
	for _, p := range c.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, p := range c.SkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware authenticates requests with a bearer token and stores the
// resolved user in the request context.
func Middleware(tokens TokenVerifier, users UserLookup, config Config, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := authenticate(r, tokens, users)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func authenticate(r *http.Request, tokens TokenVerifier, users UserLookup) (*domain.User, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}

	id, err := tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(AuthorizationHeader)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	message := "unauthorized"
	switch {
	case errors.Is(err, ErrMissingToken):
		message = ErrMissingToken.Error()
	case IsExpired(err):
		message = ErrTokenExpired.Error()
	case errors.Is(err, ErrInvalidToken):
		message = ErrInvalidToken.Error()
	case errors.Is(err, ErrUnknownSubject):
		message = ErrUnknownSubject.Error()
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="pmapp"`)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithCaller returns a context carrying the authenticated user.
func WithCaller(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, CallerContextKey, user)
}

// CallerFromContext retrieves the authenticated user from ctx.
func CallerFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(CallerContextKey).(*domain.User)
	return user, ok && user != nil
}
