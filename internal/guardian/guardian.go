// File: internal/guardian/guardian.go
// Description: Process-wide alert store with deduplication and escalation.
// All mutation goes through one mutex-owned map so concurrent probes raising
// the same alert never lose increments.
package guardian

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
)

// DetectOptions carries the optional context a caller can attach to a
// detection. AutoFix, when set, is attempted exactly once on the first
// occurrence of the alert; panics and errors are captured, never propagated.
type DetectOptions struct {
	Details      map[string]any
	SourceFile   string
	SourceLine   int
	Solution     string
	RelatedFiles []string
	AutoFix      func() error
}

// entry is the internal alert record plus escalation bookkeeping.
type entry struct {
	alert schemas.Alert
	// escalated latches so one threshold crossing escalates exactly once.
	// Resolving clears it, letting a re-opened alert escalate on a fresh
	// crossing.
	escalated bool
}

// Guardian is the process-wide alert store. Construct one at the entry point
// and inject it into every probe and actor; there is no hidden global.
type Guardian struct {
	logger    *zap.Logger
	sink      schemas.AlertSink
	threshold int
	historyCap int

	mu      sync.Mutex
	alerts  map[string]*entry
	history []schemas.Alert
}

// New creates a Guardian. sink may be nil, in which case escalations are
// console-only. threshold is the occurrence count at which non-critical
// alerts escalate; historyCap bounds the history ring buffer.
func New(logger *zap.Logger, sink schemas.AlertSink, threshold, historyCap int) *Guardian {
	if threshold < 1 {
		threshold = 3
	}
	if historyCap < 1 {
		historyCap = 1000
	}
	return &Guardian{
		logger:     logger.Named("guardian"),
		sink:       sink,
		threshold:  threshold,
		historyCap: historyCap,
		alerts:     make(map[string]*entry),
	}
}

func (g *Guardian) lock()   { g.mu.Lock() }
func (g *Guardian) unlock() { g.mu.Unlock() }

// DetectError records a detected problem. The first detection of a
// (category, message) identity creates the alert, escalates immediately when
// severity is critical, and attempts the optional auto-fix callback.
// Repeated detections increment the occurrence count and escalate exactly
// once when the count crosses the configured threshold. The updated alert
// snapshot is returned.
func (g *Guardian) DetectError(severity schemas.Severity, category schemas.Category, message string, opts *DetectOptions) schemas.Alert {
	if opts == nil {
		opts = &DetectOptions{}
	}
	now := time.Now()
	key := schemas.AlertKey(category, message)

	g.lock()
	e, seen := g.alerts[key]
	var escalate bool
	var runAutoFix bool

	switch {
	case !seen:
		e = &entry{alert: schemas.Alert{
			ID:              key,
			Severity:        severity,
			Category:        category,
			Message:         message,
			Details:         opts.Details,
			SourceFile:      opts.SourceFile,
			SourceLine:      opts.SourceLine,
			Solution:        opts.Solution,
			RelatedFiles:    opts.RelatedFiles,
			OccurrenceCount: 1,
			FirstOccurrence: now,
			LastOccurrence:  now,
		}}
		g.alerts[key] = e
		g.pushHistory(e.alert)
		runAutoFix = opts.AutoFix != nil
		// Critical alerts surface immediately. The escalated latch is not
		// consumed here: it guards the threshold crossing only, so a
		// critical alert still re-escalates once when the count crosses.
		escalate = severity == schemas.SeverityCritical
	case e.alert.Resolved:
		// A resolved identity re-detected is a fresh incident: reopen with
		// transient state cleared so the count and the escalation latch
		// start over.
		e.alert.Resolved = false
		e.alert.AutoFixed = false
		e.alert.OccurrenceCount = 1
		e.alert.FirstOccurrence = now
		e.alert.LastOccurrence = now
		e.alert.Severity = severity
		e.alert.Details = opts.Details
		e.escalated = false
		g.pushHistory(e.alert)
		runAutoFix = opts.AutoFix != nil
		escalate = severity == schemas.SeverityCritical
	default:
		e.alert.OccurrenceCount++
		e.alert.LastOccurrence = now
		if !e.escalated && e.alert.OccurrenceCount >= g.threshold {
			escalate = true
			e.escalated = true
		}
	}
	snapshot := e.alert
	g.unlock()

	observability.AlertsTotal.WithLabelValues(string(category), string(severity)).Inc()

	if runAutoFix {
		if g.attemptAutoFix(category, message, opts.AutoFix) {
			g.lock()
			e.alert.AutoFixed = true
			snapshot = e.alert
			g.unlock()
		}
	}

	if escalate {
		g.escalate(snapshot)
	}
	return snapshot
}

// attemptAutoFix runs the caller-supplied fix callback. It never lets a
// panic or error escape; the outcome only flips the AutoFixed flag.
func (g *Guardian) attemptAutoFix(category schemas.Category, message string, fix func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("Auto-fix callback panicked",
				zap.String("category", string(category)),
				zap.Any("panic", r))
			ok = false
		}
	}()
	if err := fix(); err != nil {
		g.logger.Debug("Auto-fix callback failed",
			zap.String("category", string(category)),
			zap.String("message", message),
			zap.Error(err))
		return false
	}
	observability.AutoFixesApplied.WithLabelValues("alert_callback").Inc()
	return true
}

// escalate surfaces an alert to the operator channel: an error-level log
// plus best-effort durable persistence. Persistence failures are swallowed
// and logged, never fatal.
func (g *Guardian) escalate(alert schemas.Alert) {
	g.logger.Error("Alert escalated",
		zap.String("alert_id", alert.ID),
		zap.String("category", string(alert.Category)),
		zap.String("severity", string(alert.Severity)),
		zap.String("message", alert.Message),
		zap.Int("occurrences", alert.OccurrenceCount))

	if g.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.sink.SaveAlert(ctx, &alert); err != nil {
		g.logger.Warn("Failed to persist escalated alert; continuing console-only",
			zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

// pushHistory appends to the bounded history ring, evicting the oldest
// entries first. Caller must hold the lock.
func (g *Guardian) pushHistory(alert schemas.Alert) {
	g.history = append(g.history, alert)
	if len(g.history) > g.historyCap {
		g.history = g.history[len(g.history)-g.historyCap:]
	}
}

// ActiveAlerts returns snapshots of every unresolved alert.
func (g *Guardian) ActiveAlerts() []schemas.Alert {
	g.lock()
	defer g.unlock()
	var active []schemas.Alert
	for _, e := range g.alerts {
		if !e.alert.Resolved {
			active = append(active, e.alert)
		}
	}
	return active
}

// History returns up to limit entries from the history ring, newest last.
// A non-positive limit returns the whole ring.
func (g *Guardian) History(limit int) []schemas.Alert {
	g.lock()
	defer g.unlock()
	if limit <= 0 || limit > len(g.history) {
		limit = len(g.history)
	}
	out := make([]schemas.Alert, limit)
	copy(out, g.history[len(g.history)-limit:])
	return out
}

// Resolve marks an alert resolved. The identity entry persists so future
// detections of the same (category, message) still deduplicate against it.
func (g *Guardian) Resolve(id string) bool {
	g.lock()
	defer g.unlock()
	e, ok := g.alerts[id]
	if !ok || e.alert.Resolved {
		return false
	}
	e.alert.Resolved = true
	e.escalated = false
	return true
}

// Get returns the alert with the given id, if present.
func (g *Guardian) Get(id string) (schemas.Alert, bool) {
	g.lock()
	defer g.unlock()
	e, ok := g.alerts[id]
	if !ok {
		return schemas.Alert{}, false
	}
	return e.alert, true
}
