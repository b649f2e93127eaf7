// File: cmd/services.go
// Description: Shared service construction for the subcommands. Every command
// builds the same graph: HTTP client -> alert store -> escalation channel ->
// simulation/audit/QA -> scheduler, all on top of whichever report store
// Open() could reach.
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/audit"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/escalation"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/guardian"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/qa"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/scheduler"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/simulation"
)

// services bundles the wired pipeline components a subcommand works with.
type services struct {
	cfg    *config.Config
	logger *zap.Logger

	store    schemas.ReportStore
	guardian *guardian.Guardian
	severe   *escalation.SevereAlerts
	client   *apiclient.Client
	engine   *simulation.Engine
	auditor  *audit.Auditor
	qa       *qa.ContinuousQA
	sched    *scheduler.Scheduler
}

// storeOpener is replaceable in tests so service construction never needs a
// reachable database.
type storeOpener func(ctx context.Context, logger *zap.Logger, cfg config.DatabaseConfig) schemas.ReportStore

// buildServices wires the full pipeline from configuration.
func buildServices(ctx context.Context, cfg *config.Config, openStore storeOpener) (*services, error) {
	logger := observability.GetLogger()

	reportStore := openStore(ctx, logger, cfg.Database)

	g := guardian.New(logger, reportStore, cfg.Guardian.EscalationThreshold, cfg.Guardian.HistoryCap)
	severe := escalation.New(logger, g)

	client, err := apiclient.New(logger, cfg.Target)
	if err != nil {
		reportStore.Close()
		return nil, fmt.Errorf("failed to build storefront client: %w", err)
	}

	engine := simulation.NewEngine(logger, client, severe, cfg.Target.AdminUser, cfg.Target.AdminSecret)
	auditor := audit.New(logger, client, cfg.Target.AdminUser, cfg.Target.AdminSecret)
	qaOrch := qa.New(logger, client, engine, cfg.Simulation.Users)

	sched := scheduler.New(logger, engine, auditor, qaOrch, client, reportStore, severe, scheduler.Options{
		Hour:      cfg.Scheduler.Hour,
		StateFile: cfg.Scheduler.StateFile,
		Users:     cfg.Simulation.Users,
	})

	return &services{
		cfg:      cfg,
		logger:   logger,
		store:    reportStore,
		guardian: g,
		severe:   severe,
		client:   client,
		engine:   engine,
		auditor:  auditor,
		qa:       qaOrch,
		sched:    sched,
	}, nil
}

// Close releases the persistence backend.
func (s *services) Close() {
	s.store.Close()
}
