// File: internal/server/server_test.go
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/escalation"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/guardian"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

func newTestServer(t *testing.T) (*Server, *guardian.Guardian, *escalation.SevereAlerts, *store.FileStore) {
	t.Helper()
	logger := zap.NewNop()
	g := guardian.New(logger, nil, 3, 100)
	severe := escalation.New(logger, g)
	fs, err := store.NewFileStore(logger, t.TempDir())
	require.NoError(t, err)
	return New(logger, g, severe, fs, ":0"), g, severe, fs
}

func TestAlertEndpoints(t *testing.T) {
	s, g, _, _ := newTestServer(t)
	router := s.Router()

	alert := g.DetectError(schemas.SeverityError, schemas.CategoryCheckout, "checkout devolvió 500", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkout devolvió 500")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/alerts/"+alert.ID+"/resolve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/alerts/nonexistent/resolve", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriageLifecycleOverHTTP(t *testing.T) {
	s, _, severe, _ := newTestServer(t)
	router := s.Router()

	severe.CheckoutFailure("el checkout no responde", nil)
	pending := severe.Pending()
	require.Len(t, pending, 1)
	id := pending[0].ID

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/triage?status=pending", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/triage/"+id+"/in-progress", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/triage/"+id+"/resolve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Resolving twice conflicts.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/triage/"+id+"/resolve", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLatestReportEndpoint(t *testing.T) {
	s, _, _, fs := newTestServer(t)
	router := s.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/latest", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "no reports persisted yet")

	report := &schemas.DailyReport{
		ID:         "r1",
		Date:       "2026-09-01",
		ExecutedAt: time.Now(),
		Status:     schemas.ReportStable,
	}
	require.NoError(t, fs.SaveReport(context.Background(), report))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/latest", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"r1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/latest?format=markdown", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# Reporte diario 2026-09-01")
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	router := s.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
