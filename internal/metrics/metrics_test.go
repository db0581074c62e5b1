package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/api/projects/1", "/api/projects/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/projects/{id}", "418"))
	assert.Equal(t, float64(2), got)
}

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordLogin(LoginSuccess)
	m.RecordLogin(LoginFailure)
	m.RecordLogin(LoginFailure)
	m.RecordUpsertRetry()
	m.RecordLockUnavailable()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.logins.WithLabelValues(LoginSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.logins.WithLabelValues(LoginFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upsertRetries))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.lockSkipped))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLogin(LoginSuccess)
		m.RecordUpsertRetry()
		m.RecordLockUnavailable()
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordUpsertRetry()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pmapp_project_materials_upsert_conflict_retries_total 1"))
}
