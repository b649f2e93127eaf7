// File: internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/audit"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/qa"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/simulation"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

func healthyStorefront(t *testing.T, checkoutStatus int) *httptest.Server {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	for _, route := range []string{"/", "/productos", "/checkout", "/checkout/success", "/checkout/failure", "/checkout/pending", "/img/p1.jpg"} {
		mux.HandleFunc(route, ok)
	}
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"p1","nombre":"Remera","precio":100,"stock":5,"imagen":"/img/p1.jpg"}]`))
	})
	mux.HandleFunc("/api/products/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"p1"}`))
	})
	mux.HandleFunc("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(checkoutStatus)
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"` + token + `"}`))
	})
	mux.HandleFunc("/api/payment/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"configured":true}`))
	})
	mux.HandleFunc("/api/payment/webhook", ok)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScheduler(t *testing.T, baseURL string, reportStore schemas.ReportStore) *Scheduler {
	t.Helper()
	logger := zap.NewNop()
	client, err := apiclient.New(logger, config.TargetConfig{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	engine := simulation.NewEngine(logger, client, nil, "admin@catalogo.local", "secret")
	auditor := audit.New(logger, client, "admin@catalogo.local", "secret")
	qaOrch := qa.New(logger, client, engine, 3)

	return New(logger, engine, auditor, qaOrch, client, reportStore, nil, Options{
		Hour:      5,
		StateFile: t.TempDir() + "/schedule.json",
		Users:     3,
	})
}

func TestRunProducesStableReportAndPersistsIt(t *testing.T) {
	srv := healthyStorefront(t, http.StatusBadRequest)
	fs, err := store.NewFileStore(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	s := newTestScheduler(t, srv.URL, fs)

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.ReportStable, report.Status)
	assert.Len(t, report.UserFlow, 11)
	assert.Len(t, report.AdminFlow, 5)
	for name, passed := range report.UserFlow {
		assert.True(t, passed, "user checkpoint %q", name)
	}
	for name, passed := range report.AdminFlow {
		assert.True(t, passed, "admin checkpoint %q", name)
	}
	assert.Nil(t, report.Comparison, "first run has no baseline")
	assert.Greater(t, report.Performance.PageLoadMs, int64(-1))

	persisted, err := fs.LatestReports(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, report.ID, persisted[0].ID)
}

func TestSecondRunComparesAgainstFirst(t *testing.T) {
	srv := healthyStorefront(t, http.StatusBadRequest)
	fs, err := store.NewFileStore(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	s := newTestScheduler(t, srv.URL, fs)

	first, err := s.RunNow(context.Background())
	require.NoError(t, err)

	second, err := s.RunNow(context.Background())
	require.NoError(t, err)

	require.NotNil(t, second.Comparison)
	assert.Equal(t, first.ID, second.Comparison.PreviousReportID)
}

func TestCriticalRunEscalatesOnce(t *testing.T) {
	srv := healthyStorefront(t, http.StatusInternalServerError)
	fs, err := store.NewFileStore(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	s := newTestScheduler(t, srv.URL, fs)

	esc := &countingEscalator{}
	s.escalator = esc

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.ReportCritical, report.Status)
	assert.False(t, report.UserFlow["Ir a checkout"])
	assert.Equal(t, 1, esc.reportCalls, "exactly one escalation per critical report")
}

type countingEscalator struct {
	reportCalls int
}

func (c *countingEscalator) Report(string, schemas.Impact, string, map[string]any) {
	c.reportCalls++
}

func TestConcurrentRunGuardReturnsLastReport(t *testing.T) {
	s := &Scheduler{logger: zap.NewNop(), now: time.Now}
	last := &schemas.DailyReport{ID: "previous"}
	s.running = true
	s.lastReport = last

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, last, report)
}

func TestDiffReportsSetArithmetic(t *testing.T) {
	previous := &schemas.DailyReport{
		ID: "prev",
		Errors: []schemas.ReportError{
			{Message: "a"}, {Message: "b"}, {Message: "c"},
		},
		Performance: schemas.PerformanceMetrics{PageLoadMs: 200},
	}
	current := &schemas.DailyReport{
		ID: "cur",
		Errors: []schemas.ReportError{
			{Message: "b"}, {Message: "c"}, {Message: "d"}, {Message: "e"},
		},
		Performance: schemas.PerformanceMetrics{PageLoadMs: 100},
	}

	got := diffReports(previous, current)
	want := &schemas.Comparison{
		PreviousReportID:              "prev",
		NewErrors:                     2, // d, e
		PersistentErrors:              2, // b, c
		PerformanceImprovementPercent: 50,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("comparison mismatch (-want +got):\n%s", diff)
	}
}

func TestRollupStatusBoundaries(t *testing.T) {
	errs := func(n int, severity schemas.Severity) []schemas.ReportError {
		out := make([]schemas.ReportError, n)
		for i := range out {
			out[i] = schemas.ReportError{Severity: severity, Message: "x"}
		}
		return out
	}

	assert.Equal(t, schemas.ReportStable, rollupStatus(&schemas.DailyReport{Errors: errs(5, schemas.SeverityError)}))
	assert.Equal(t, schemas.ReportWarning, rollupStatus(&schemas.DailyReport{Errors: errs(6, schemas.SeverityError)}))
	assert.Equal(t, schemas.ReportCritical, rollupStatus(&schemas.DailyReport{Errors: errs(1, schemas.SeverityCritical)}))
}

func TestNextRunAfterHonorsConfiguredHour(t *testing.T) {
	s := &Scheduler{opts: Options{Hour: 5}}

	before := time.Date(2026, 9, 1, 3, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 9, 1, 5, 0, 0, 0, time.Local), s.nextRunAfter(before))

	after := time.Date(2026, 9, 1, 6, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 9, 2, 5, 0, 0, 0, time.Local), s.nextRunAfter(after))
}

func TestLoadNextRunRestoresDurableState(t *testing.T) {
	stateFile := t.TempDir() + "/schedule.json"
	s := &Scheduler{logger: zap.NewNop(), opts: Options{Hour: 5, StateFile: stateFile}, now: time.Now}

	// Future timestamp is honored as-is.
	future := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	s.persistNextRun(future)
	assert.True(t, s.loadNextRun().Equal(future))

	// Past timestamp means a missed run: due immediately.
	s.persistNextRun(time.Now().Add(-time.Hour))
	due := s.loadNextRun()
	assert.WithinDuration(t, time.Now(), due, time.Minute)

	// Missing state starts a fresh schedule at the configured hour.
	require.NoError(t, os.Remove(stateFile))
	fresh := s.loadNextRun()
	assert.Equal(t, 5, fresh.Hour())
}

func TestSchedulerLifecycleLeaksNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &Scheduler{
		logger: zap.NewNop(),
		opts:   Options{Hour: 5, StateFile: t.TempDir() + "/schedule.json"},
		now:    time.Now,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
}
