package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/pmapp/internal/auth"
	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/lock"
	"github.com/prn-tf/pmapp/internal/metrics"
	"github.com/prn-tf/pmapp/internal/repository/sqlite"
	"github.com/prn-tf/pmapp/internal/service"
)

const testSecret = "handler-test-secret-0123456789abcdef"

type testServer struct {
	handler  http.Handler
	accounts *service.UserService
	db       *sqlite.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(sqlite.MemoryPath), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	repos := sqlite.NewRepositories(db)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenService(testSecret, "pmapp", time.Hour)
	require.NoError(t, err)
	m := metrics.New()
	locker := lock.NewMemoryLocker()
	t.Cleanup(func() { _ = locker.Close() })

	credentials := service.NewCredentialService(repos.User, hasher, tokens, m, logger)
	accounts := service.NewUserService(repos.User, repos.Project, hasher, logger)
	materials := service.NewMaterialService(repos.Material, service.MaterialServiceConfig{}, logger)
	projects := service.NewProjectService(repos.Project, logger)
	links := service.NewProjectMaterialService(repos.Project, repos.Material, repos.ProjectMaterial,
		service.ProjectMaterialServiceConfig{Locker: locker, Metrics: m}, logger)

	router := NewRouter(RouterConfig{
		AuthHandler:            NewAuthHandler(credentials, 0, logger),
		UserHandler:            NewUserHandler(credentials, accounts, 0, logger),
		MaterialHandler:        NewMaterialHandler(materials, 0, logger),
		ProjectHandler:         NewProjectHandler(projects, 0, logger),
		ProjectMaterialHandler: NewProjectMaterialHandler(links, 0, logger),
		AuthMiddleware:         auth.Middleware(tokens, repos.User, auth.DefaultConfig(), logger),
		Health:                 db,
		Metrics:                m,
		Logger:                 logger,
	})

	return &testServer{handler: router.Handler(), accounts: accounts, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username, password string) AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.accounts.Create(context.Background(), service.CreateUserInput{
		Username: "root",
		Password: "rootpassword",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	rec := s.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "root", Password: "rootpassword"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Database)

	require.NoError(t, s.db.Close())
	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pmapp_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.register(t, "alice", "secret123")
	assert.Equal(t, domain.RoleUser, alice.Role)
	assert.NotEmpty(t, alice.Token)

	rec := s.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "alice", Password: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.ErrInvalidCredentials.Error(), decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserResponse](t, rec)
	assert.Equal(t, alice.ID, me.ID)
	assert.Equal(t, "alice", me.Username)

	rec = s.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CredentialChanges(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")
	s.register(t, "bob", "hunter22")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{name: "username wrong password", path: "/users/me/username", body: ChangeUsernameRequest{CurrentPassword: "nope", NewUsername: "alicia"}, status: http.StatusUnauthorized},
		{name: "username blank", path: "/users/me/username", body: ChangeUsernameRequest{CurrentPassword: "secret123", NewUsername: " "}, status: http.StatusBadRequest},
		{name: "username taken", path: "/users/me/username", body: ChangeUsernameRequest{CurrentPassword: "secret123", NewUsername: "bob"}, status: http.StatusConflict},
		{name: "username ok", path: "/users/me/username", body: ChangeUsernameRequest{CurrentPassword: "secret123", NewUsername: "alicia"}, status: http.StatusNoContent},
		{name: "password short", path: "/users/me/password", body: ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "1234567"}, status: http.StatusBadRequest},
		{name: "password ok", path: "/users/me/password", body: ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "12345678"}, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, alice.Token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Username: "alicia", Password: "12345678"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The token subject is the id, so it survives the rename.
	rec = s.do(t, http.MethodGet, "/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alicia", decode[UserResponse](t, rec).Username)
}

func TestRouter_Materials(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")
	admin := s.adminToken(t)

	body := MaterialRequest{Name: "Plank", MarketID: "MK-1", Seller: "Lumber Co"}

	rec := s.do(t, http.MethodPost, "/api/materials", alice.Token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/materials", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plank := decode[domain.Material](t, rec)
	assert.Equal(t, "Lumber Co", plank.Seller)

	rec = s.do(t, http.MethodPost, "/api/materials", admin, MaterialRequest{Name: "Plank", MarketID: "MK-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/materials", admin, MaterialRequest{Name: "Nameless"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/materials", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Material](t, rec), 1)

	path := fmt.Sprintf("/api/materials/%d", plank.ID)
	rec = s.do(t, http.MethodDelete, path, alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/materials/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Projects(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")
	bob := s.register(t, "bob", "hunter22")
	admin := s.adminToken(t)

	rec := s.do(t, http.MethodPost, "/api/projects", alice.Token, map[string]interface{}{
		"name":         "Deck",
		"description":  "Backyard deck",
		"estimatedEnd": "2026-06-01T10:00",
		"finishedAt":   "whenever",
		"ownerId":      bob.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	deck := decode[domain.Project](t, rec)
	assert.Equal(t, alice.ID, deck.OwnerID)
	assert.Equal(t, "alice", deck.OwnerUsername)
	require.NotNil(t, deck.EstimatedEnd)
	assert.Nil(t, deck.FinishedAt)

	rec = s.do(t, http.MethodPost, "/api/projects", alice.Token, ProjectRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/projects/%d", deck.ID)

	rec = s.do(t, http.MethodGet, path, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPut, path, bob.Token, ProjectRequest{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, path, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	newName := "Patio"
	rec = s.do(t, http.MethodPut, path, admin, ProjectRequest{Name: &newName})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Project](t, rec)
	assert.Equal(t, "Patio", updated.Name)
	assert.Equal(t, "Backyard deck", updated.Description)
	assert.Nil(t, updated.EstimatedEnd)
	assert.True(t, deck.CreatedAt.Equal(updated.CreatedAt))

	rec = s.do(t, http.MethodGet, "/api/projects", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Project](t, rec))

	rec = s.do(t, http.MethodGet, "/api/projects", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Project](t, rec), 1)

	rec = s.do(t, http.MethodDelete, path, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, path, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ProjectMaterials(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")
	bob := s.register(t, "bob", "hunter22")
	admin := s.adminToken(t)

	rec := s.do(t, http.MethodPost, "/api/materials", admin, MaterialRequest{Name: "Plank", MarketID: "MK-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	plank := decode[domain.Material](t, rec)

	rec = s.do(t, http.MethodPost, "/api/projects", alice.Token, ProjectRequest{Name: strPtr("Deck"), Description: strPtr("Backyard deck")})
	require.Equal(t, http.StatusCreated, rec.Code)
	deck := decode[domain.Project](t, rec)
	rec = s.do(t, http.MethodPost, "/api/projects", alice.Token, ProjectRequest{Name: strPtr("Shed"), Description: strPtr("Tool shed")})
	require.Equal(t, http.StatusCreated, rec.Code)
	shed := decode[domain.Project](t, rec)

	base := fmt.Sprintf("/api/projects/%d/materials", deck.ID)

	rec = s.do(t, http.MethodPost, base, alice.Token, map[string]interface{}{"materialId": plank.ID, "amount": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[domain.ProjectMaterialView](t, rec)
	assert.Equal(t, "Plank", first.MaterialName)
	assert.Equal(t, "MK-1", first.MarketID)

	rec = s.do(t, http.MethodPost, base, alice.Token, map[string]interface{}{"materialId": plank.ID, "amount": 9})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[domain.ProjectMaterialView](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9.0, second.Amount)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
	}{
		{name: "negative", token: alice.Token, body: map[string]interface{}{"materialId": plank.ID, "amount": -1}, status: http.StatusBadRequest},
		{name: "missing amount", token: alice.Token, body: map[string]interface{}{"materialId": plank.ID}, status: http.StatusBadRequest},
		{name: "missing material id", token: alice.Token, body: map[string]interface{}{"amount": 1}, status: http.StatusBadRequest},
		{name: "unknown material", token: alice.Token, body: map[string]interface{}{"materialId": 999, "amount": 1}, status: http.StatusNotFound},
		{name: "other user", token: bob.Token, body: map[string]interface{}{"materialId": plank.ID, "amount": 1}, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, base, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec = s.do(t, http.MethodGet, base, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]domain.ProjectMaterialView](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, 9.0, views[0].Amount)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/materials/%d", plank.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d/materials/%d", shed.ID, first.ID), alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, first.ID), bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, first.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, first.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UserDeletion(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")
	bob := s.register(t, "bob", "hunter22")
	admin := s.adminToken(t)

	rec := s.do(t, http.MethodPost, "/api/projects", alice.Token, ProjectRequest{Name: strPtr("Deck"), Description: strPtr("Backyard deck")})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodDelete, "/users/me", alice.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", alice.ID), bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", bob.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", bob.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A token whose subject was deleted is rejected.
	rec = s.do(t, http.MethodGet, "/users/me", bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice", "secret123")

	rec := s.do(t, http.MethodGet, "/api/unknown", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "not found"))
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrProjectNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNegativeAmount, http.StatusBadRequest},
		{domain.ErrMaterialAlreadyExists, http.StatusConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForKind(service.KindOf(tt.err)), tt.err.Error())
	}
}

func TestRespondWithServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	respondWithServiceError(rec, req, fmt.Errorf("%w: password=hunter2", service.ErrInternalError), zerolog.Nop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, service.ErrInternalError.Error(), decode[ErrorResponse](t, rec).Error)
}

func strPtr(s string) *string { return &s }
