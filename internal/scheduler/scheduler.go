// File: internal/scheduler/scheduler.go
// Description: Daily report scheduler. Fires at a fixed local hour and every
// 24h after, with the next-run-at timestamp persisted so a process restart
// neither skips nor double-runs a daily report.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/audit"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/qa"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/simulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Scheduler.
type Options struct {
	// Hour is the local wall-clock hour of the daily run.
	Hour int
	// StateFile persists the next-run-at timestamp across restarts.
	StateFile string
	// Users is the virtual-user batch size per run.
	Users int
}

// Scheduler drives the daily monitoring run.
type Scheduler struct {
	logger    *zap.Logger
	engine    *simulation.Engine
	auditor   *audit.Auditor
	qa        *qa.ContinuousQA
	client    *apiclient.Client
	store     schemas.ReportStore
	escalator schemas.Escalator
	opts      Options

	// now is replaceable in tests.
	now func() time.Time

	mu         sync.Mutex
	running    bool
	lastReport *schemas.DailyReport
}

// New creates a Scheduler.
func New(logger *zap.Logger, engine *simulation.Engine, auditor *audit.Auditor, qaOrch *qa.ContinuousQA,
	client *apiclient.Client, reportStore schemas.ReportStore, escalator schemas.Escalator, opts Options) *Scheduler {
	return &Scheduler{
		logger:    logger.Named("scheduler"),
		engine:    engine,
		auditor:   auditor,
		qa:        qaOrch,
		client:    client,
		store:     reportStore,
		escalator: escalator,
		opts:      opts,
		now:       time.Now,
	}
}

type schedulerState struct {
	NextRunAt time.Time `json:"next_run_at"`
}

// nextRunAfter computes the next firing strictly after t: today at the
// configured hour if still ahead, otherwise tomorrow.
func (s *Scheduler) nextRunAfter(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.opts.Hour, 0, 0, 0, t.Location())
	if !next.After(t) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// loadNextRun restores the persisted next-run-at. A timestamp already in the
// past means the process was down across a scheduled firing: the run is due
// now. Missing or unreadable state starts a fresh schedule.
func (s *Scheduler) loadNextRun() time.Time {
	now := s.now()

	data, err := os.ReadFile(s.opts.StateFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Cannot read scheduler state; starting fresh", zap.Error(err))
		}
		return s.nextRunAfter(now)
	}

	var state schedulerState
	if err := json.Unmarshal(data, &state); err != nil || state.NextRunAt.IsZero() {
		s.logger.Warn("Scheduler state unreadable; starting fresh", zap.Error(err))
		return s.nextRunAfter(now)
	}

	if !state.NextRunAt.After(now) {
		s.logger.Info("A scheduled run was missed while the process was down; running now",
			zap.Time("was_due_at", state.NextRunAt))
		return now
	}
	return state.NextRunAt
}

func (s *Scheduler) persistNextRun(next time.Time) {
	data, err := json.Marshal(schedulerState{NextRunAt: next})
	if err == nil {
		err = os.WriteFile(s.opts.StateFile, data, 0o644)
	}
	if err != nil {
		// Losing the state file only costs restart durability, never a run.
		s.logger.Warn("Cannot persist scheduler state", zap.Error(err))
	}
}

// Start launches the scheduling loop in its own goroutine. It runs until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	next := s.loadNextRun()
	s.persistNextRun(next)

	for {
		s.logger.Info("Next daily report scheduled", zap.Time("next_run_at", next))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopping.")
			return
		case <-timer.C:
			if _, err := s.RunNow(ctx); err != nil {
				s.logger.Error("Daily run failed", zap.Error(err))
			}
			next = s.nextRunAfter(s.now())
			s.persistNextRun(next)
		}
	}
}

// RunNow executes one daily run immediately. If a run is already in
// progress, the last finished report is returned unchanged instead of
// starting a second run.
func (s *Scheduler) RunNow(ctx context.Context) (*schemas.DailyReport, error) {
	s.mu.Lock()
	if s.running {
		last := s.lastReport
		s.mu.Unlock()
		s.logger.Warn("Daily run already in progress; returning last report")
		if last == nil {
			return nil, fmt.Errorf("a run is in progress and no previous report exists")
		}
		return last, nil
	}
	s.running = true
	s.mu.Unlock()

	report := s.runOnce(ctx)

	s.mu.Lock()
	s.running = false
	s.lastReport = report
	s.mu.Unlock()

	observability.SchedulerRuns.WithLabelValues(string(report.Status)).Inc()
	return report, nil
}

// LastReport returns the most recent report produced by this process.
func (s *Scheduler) LastReport() *schemas.DailyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}
