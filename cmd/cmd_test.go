// File: cmd/cmd_test.go
package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/selfrepair"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

// healthyStorefront stubs every route the pipeline touches. checkoutStatus is
// the status returned for a well-formed cart.
func healthyStorefront(t *testing.T, checkoutStatus int) *httptest.Server {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	page := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}
	mux.HandleFunc("/", page)
	mux.HandleFunc("/productos", page)
	mux.HandleFunc("/checkout", page)
	mux.HandleFunc("/checkout/success", page)
	mux.HandleFunc("/checkout/failure", page)
	mux.HandleFunc("/checkout/pending", page)
	mux.HandleFunc("/img/p1.jpg", page)

	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": "p-new"})
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "p1", "nombre": "Remera", "precio": 100.0, "stock": 5.0, "imagen": "/img/p1.jpg"},
		})
	})
	mux.HandleFunc("/api/products/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "p1", "nombre": "Remera", "precio": 100.0, "stock": 5.0, "imagen": "/img/p1.jpg",
		})
	})
	mux.HandleFunc("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Items []any `json:"items"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Items) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(checkoutStatus)
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("/api/payment", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"preference_id": "pref-1"})
	})
	mux.HandleFunc("/api/payment/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/payment/config", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"configured": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testServices(t *testing.T, baseURL string) *services {
	t.Helper()

	cfg := config.NewDefault()
	cfg.Target.BaseURL = baseURL
	cfg.Target.RateLimit = 0
	cfg.Simulation.Users = 3
	cfg.Scheduler.StateFile = filepath.Join(t.TempDir(), "schedule.json")

	dataDir := t.TempDir()
	opener := func(ctx context.Context, logger *zap.Logger, dbCfg config.DatabaseConfig) schemas.ReportStore {
		fs, err := store.NewFileStore(zap.NewNop(), dataDir)
		require.NoError(t, err)
		return fs
	}

	svc, err := buildServices(context.Background(), cfg, opener)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestRunAuditHealthyStorefront(t *testing.T) {
	srv := healthyStorefront(t, http.StatusOK)
	svc := testServices(t, srv.URL)

	var out strings.Builder
	require.NoError(t, runAudit(context.Background(), svc, &out, true))

	doc := out.String()
	assert.Contains(t, doc, "# Auditoría completa del sistema")
	assert.Contains(t, doc, "Estado general: **stable**")
	assert.Contains(t, doc, "## Correcciones automáticas")
}

func TestRunSimulateWritesActorDetail(t *testing.T) {
	srv := healthyStorefront(t, http.StatusOK)
	svc := testServices(t, srv.URL)

	var out strings.Builder
	require.NoError(t, runSimulate(context.Background(), svc, &out, 3))

	doc := out.String()
	assert.Contains(t, doc, "# Corrida de usuarios virtuales")
	assert.Contains(t, doc, "## Detalle por actor")
	assert.Contains(t, doc, "Usuarios: 3")
}

func TestRunMonitorCheckoutOnly(t *testing.T) {
	srv := healthyStorefront(t, http.StatusOK)
	svc := testServices(t, srv.URL)

	var out strings.Builder
	require.NoError(t, runMonitor(context.Background(), svc, &out, true))
	assert.Contains(t, out.String(), "# Monitor de checkout")
}

func TestRunMonitorFullCycle(t *testing.T) {
	srv := healthyStorefront(t, http.StatusOK)
	svc := testServices(t, srv.URL)

	var out strings.Builder
	require.NoError(t, runMonitor(context.Background(), svc, &out, false))

	doc := out.String()
	assert.Contains(t, doc, "# QA continuo")
	assert.Contains(t, doc, "## Chequeos")
}

func TestRunDailyReportPersists(t *testing.T) {
	srv := healthyStorefront(t, http.StatusOK)
	svc := testServices(t, srv.URL)

	var out strings.Builder
	require.NoError(t, runDailyReport(context.Background(), svc, &out))
	assert.Contains(t, out.String(), "# Reporte diario")

	reports, err := svc.store.LatestReports(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, schemas.ReportStable, reports[0].Status)
}

func TestRunRepairDetectsBrokenImport(t *testing.T) {
	root := t.TempDir()
	src := "import { precios } from './precios';\nexport const x = 1;\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "catalogo.ts"), []byte(src), 0o644))

	repairer, err := selfrepair.New(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, runRepair(context.Background(), zap.NewNop(), repairer, &out, root, false))
	assert.Contains(t, out.String(), "Se detectaron 1 problemas")
	assert.Contains(t, out.String(), "catalogo.ts")

	out.Reset()
	require.NoError(t, runRepair(context.Background(), zap.NewNop(), repairer, &out, root, true))
	assert.Contains(t, out.String(), "sin reparar", "broken imports escalate instead of rewriting source")
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"audit", "simulate", "monitor", "report", "repair", "schedule", "serve"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "command %s not registered", name)
	}
}

func TestLoadedConfigFallsBackToDefaults(t *testing.T) {
	appConfig = nil
	cfg := loadedConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:3000", cfg.Target.BaseURL)
}
