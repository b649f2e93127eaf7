// File: internal/simulation/batch.go
// Description: Concurrent virtual-user batches. A batch never fails fast;
// every actor finishes or is recorded as a failed run, and step failures
// shared by a majority of actors are promoted to critical failures.
package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
)

// stepModules maps a failing step to the escalation module that owns it.
// Steps without an entry escalate through the generic simulation module.
var stepModules = map[string]string{
	StepGoToCheckout:       "checkout",
	StepAdminLogin:         "integracion_externa",
	StepAdminCreateProduct: "stock",
}

// Engine owns the virtual-user fleet.
type Engine struct {
	logger    *zap.Logger
	client    *apiclient.Client
	escalator schemas.Escalator

	adminUser   string
	adminSecret string
}

// NewEngine creates the synthetic actor engine.
func NewEngine(logger *zap.Logger, client *apiclient.Client, escalator schemas.Escalator, adminUser, adminSecret string) *Engine {
	return &Engine{
		logger:      logger.Named("simulation"),
		client:      client,
		escalator:   escalator,
		adminUser:   adminUser,
		adminSecret: adminSecret,
	}
}

// RunRepetitiveAudit runs n virtual users concurrently: 60% purchase actors
// (rounded up) and the remainder admin actors. Individual actor failures
// never abort the batch. Afterwards, step failures are grouped by step name
// and any step failing for more than half of n is promoted to a
// CriticalFailure with lethal impact, each raising one escalation alert.
func (e *Engine) RunRepetitiveAudit(ctx context.Context, n int) schemas.BatchResult {
	if n < 1 {
		n = 1
	}
	purchase := (3*n + 4) / 5 // ceil(0.6n)

	e.logger.Info("Starting repetitive audit batch",
		zap.Int("users", n),
		zap.Int("purchase_actors", purchase),
		zap.Int("admin_actors", n-purchase))

	batch := schemas.BatchResult{
		Runs:      make([]schemas.ActorRun, n),
		StartedAt: time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		flow := schemas.FlowAdmin
		if i < purchase {
			flow = schemas.FlowPurchase
		}
		g.Go(func() error {
			user := NewVirtualUser(e.logger, e.client, e.adminUser, e.adminSecret)
			defer func() {
				if r := recover(); r != nil {
					// A crashed actor is a failed run with no steps.
					e.logger.Error("Actor crashed before finishing",
						zap.String("actor_id", user.ID), zap.Any("panic", r))
					batch.Runs[i] = schemas.ActorRun{
						ActorID: user.ID,
						Flow:    flow,
						Status:  schemas.RunFailed,
					}
				}
			}()
			switch flow {
			case schemas.FlowPurchase:
				batch.Runs[i] = user.RunPurchaseFlow(gctx)
			default:
				batch.Runs[i] = user.RunAdminFlow(gctx)
			}
			return nil
		})
	}
	g.Wait()

	batch.Duration = time.Since(batch.StartedAt)
	batch.CriticalFailures = e.promoteCriticalFailures(batch.Runs, n)

	e.logger.Info("Repetitive audit batch finished",
		zap.Int("failed_runs", batch.FailedRuns()),
		zap.Int("critical_failures", len(batch.CriticalFailures)),
		zap.Duration("duration", batch.Duration))
	return batch
}

type stepFailures struct {
	count  int
	errors []string
}

// promoteCriticalFailures groups failed steps by name and promotes any step
// failing for more than half of the batch. Promotion order follows first
// appearance so output is stable for a given batch.
func (e *Engine) promoteCriticalFailures(runs []schemas.ActorRun, total int) []schemas.CriticalFailure {
	byStep := make(map[string]*stepFailures)
	var order []string

	for _, run := range runs {
		for _, step := range run.Steps {
			if step.Success {
				continue
			}
			f, ok := byStep[step.Name]
			if !ok {
				f = &stepFailures{}
				byStep[step.Name] = f
				order = append(order, step.Name)
			}
			f.count++
			if step.Error != "" {
				f.errors = append(f.errors, step.Error)
			}
		}
	}

	var failures []schemas.CriticalFailure
	for _, name := range order {
		f := byStep[name]
		if f.count*2 <= total {
			continue
		}
		failure := schemas.CriticalFailure{
			Step:          name,
			AffectedUsers: f.count,
			TotalUsers:    total,
			Impact:        schemas.ImpactLethal,
			Errors:        f.errors,
		}
		failures = append(failures, failure)
		e.escalate(failure)
	}
	return failures
}

func (e *Engine) escalate(failure schemas.CriticalFailure) {
	if e.escalator == nil {
		return
	}
	module, ok := stepModules[failure.Step]
	if !ok {
		module = "simulacion"
	}
	e.escalator.Report(module, failure.Impact,
		fmt.Sprintf("El paso %q falló para %d de %d usuarios simulados", failure.Step, failure.AffectedUsers, failure.TotalUsers),
		map[string]any{
			"step":           failure.Step,
			"affected_users": failure.AffectedUsers,
			"total_users":    failure.TotalUsers,
			"errors":         failure.Errors,
		})
}
