// File: internal/guardian/guardian_test.go
package guardian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// recordingSink captures persisted alerts so tests can count escalations.
type recordingSink struct {
	mu     sync.Mutex
	alerts []schemas.Alert
	fail   bool
}

func (s *recordingSink) SaveAlert(_ context.Context, alert *schemas.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func newTestGuardian(t *testing.T, sink schemas.AlertSink) *Guardian {
	t.Helper()
	return New(zap.NewNop(), sink, 3, 1000)
}

func TestDetectErrorDeduplication(t *testing.T) {
	t.Run("N repeated detections yield one alert with count N", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		const n = 7
		var last schemas.Alert
		for i := 0; i < n; i++ {
			last = g.DetectError(schemas.SeverityWarning, schemas.CategoryStock, "stock desynchronized for SKU-001", nil)
		}

		active := g.ActiveAlerts()
		require.Len(t, active, 1)
		assert.Equal(t, n, active[0].OccurrenceCount)
		assert.Equal(t, last.ID, active[0].ID)
	})

	t.Run("different categories with same message stay separate", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		g.DetectError(schemas.SeverityWarning, schemas.CategoryStock, "timeout", nil)
		g.DetectError(schemas.SeverityWarning, schemas.CategoryImages, "timeout", nil)

		assert.Len(t, g.ActiveAlerts(), 2)
	})

	t.Run("messages identical in the first 50 chars share identity", func(t *testing.T) {
		prefix := "checkout failed for order with very long identifie"
		require.Len(t, prefix, 50)

		g := newTestGuardian(t, nil)
		g.DetectError(schemas.SeverityError, schemas.CategoryCheckout, prefix+"r-AAA", nil)
		g.DetectError(schemas.SeverityError, schemas.CategoryCheckout, prefix+"r-BBB", nil)

		active := g.ActiveAlerts()
		require.Len(t, active, 1)
		assert.Equal(t, 2, active[0].OccurrenceCount)
	})

	t.Run("concurrent detections never lose increments", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		const workers = 50
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				g.DetectError(schemas.SeverityWarning, schemas.CategoryAPI, "listing endpoint slow", nil)
			}()
		}
		wg.Wait()

		active := g.ActiveAlerts()
		require.Len(t, active, 1)
		assert.Equal(t, workers, active[0].OccurrenceCount)
	})
}

func TestEscalation(t *testing.T) {
	t.Run("critical escalates on first occurrence", func(t *testing.T) {
		sink := &recordingSink{}
		g := newTestGuardian(t, sink)

		g.DetectError(schemas.SeverityCritical, schemas.CategoryCheckout, "checkout returns 500", nil)
		assert.Equal(t, 1, sink.count())
	})

	t.Run("non-critical escalates exactly once at the threshold", func(t *testing.T) {
		sink := &recordingSink{}
		g := newTestGuardian(t, sink)

		for i := 0; i < 2; i++ {
			g.DetectError(schemas.SeverityError, schemas.CategoryImages, "image 404", nil)
		}
		assert.Equal(t, 0, sink.count(), "below threshold, nothing escalates")

		g.DetectError(schemas.SeverityError, schemas.CategoryImages, "image 404", nil)
		assert.Equal(t, 1, sink.count(), "third occurrence crosses the threshold")

		for i := 0; i < 5; i++ {
			g.DetectError(schemas.SeverityError, schemas.CategoryImages, "image 404", nil)
		}
		assert.Equal(t, 1, sink.count(), "the same crossing never escalates twice")
	})

	t.Run("resolving re-arms the threshold escalation", func(t *testing.T) {
		sink := &recordingSink{}
		g := newTestGuardian(t, sink)

		var id string
		for i := 0; i < 3; i++ {
			id = g.DetectError(schemas.SeverityError, schemas.CategoryVariants, "variant without stock map", nil).ID
		}
		require.Equal(t, 1, sink.count())
		require.True(t, g.Resolve(id))

		for i := 0; i < 3; i++ {
			g.DetectError(schemas.SeverityError, schemas.CategoryVariants, "variant without stock map", nil)
		}
		assert.Equal(t, 2, sink.count(), "a re-opened alert escalates on a fresh crossing")
	})

	t.Run("sink failure is swallowed", func(t *testing.T) {
		sink := &recordingSink{fail: true}
		g := newTestGuardian(t, sink)

		assert.NotPanics(t, func() {
			g.DetectError(schemas.SeverityCritical, schemas.CategoryDatabase, "connection refused", nil)
		})
	})
}

func TestAutoFixCallback(t *testing.T) {
	t.Run("successful fix flips the AutoFixed flag", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		alert := g.DetectError(schemas.SeverityWarning, schemas.CategoryCORS, "missing CORS header", &DetectOptions{
			AutoFix: func() error { return nil },
		})
		got, ok := g.Get(alert.ID)
		require.True(t, ok)
		assert.True(t, got.AutoFixed)
	})

	t.Run("failing fix leaves the flag unset", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		alert := g.DetectError(schemas.SeverityWarning, schemas.CategoryCORS, "missing CORS header", &DetectOptions{
			AutoFix: func() error { return errors.New("no dice") },
		})
		got, _ := g.Get(alert.ID)
		assert.False(t, got.AutoFixed)
	})

	t.Run("panicking fix never propagates", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		assert.NotPanics(t, func() {
			g.DetectError(schemas.SeverityWarning, schemas.CategoryComponents, "render boundary tripped", &DetectOptions{
				AutoFix: func() error { panic("boom") },
			})
		})
	})
}

func TestResolveAndHistory(t *testing.T) {
	t.Run("resolved alerts leave the active set but keep identity", func(t *testing.T) {
		g := newTestGuardian(t, nil)

		alert := g.DetectError(schemas.SeverityError, schemas.CategoryRoutes, "route /productos 404", nil)
		require.True(t, g.Resolve(alert.ID))
		assert.Empty(t, g.ActiveAlerts())
		assert.False(t, g.Resolve(alert.ID), "double resolve is a no-op")

		// Re-detection reopens the same identity with a fresh count.
		reopened := g.DetectError(schemas.SeverityError, schemas.CategoryRoutes, "route /productos 404", nil)
		assert.Equal(t, alert.ID, reopened.ID)
		assert.Equal(t, 1, reopened.OccurrenceCount)
	})

	t.Run("history ring evicts oldest beyond the cap", func(t *testing.T) {
		g := New(zap.NewNop(), nil, 3, 5)

		for i := 0; i < 8; i++ {
			g.DetectError(schemas.SeverityInfo, schemas.CategoryAPI, fmt.Sprintf("probe %d", i), nil)
		}
		history := g.History(0)
		require.Len(t, history, 5)
		assert.Equal(t, "probe 3", history[0].Message, "oldest entries are evicted first")
		assert.Equal(t, "probe 7", history[4].Message)

		limited := g.History(2)
		require.Len(t, limited, 2)
		assert.Equal(t, "probe 6", limited[0].Message)
	})
}
