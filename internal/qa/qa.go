// File: internal/qa/qa.go
// Description: Continuous QA orchestrator. One cycle runs the virtual-user
// batch plus a metrics-oriented check suite, then re-probes a fixed set of
// critical routes to detect behavior changes.
package qa

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/simulation"
)

// Check names. Stable identifiers: the daily report references them.
const (
	CheckLoadTime = "Tiempo de carga"
	CheckFilters  = "Filtros y búsqueda"
	CheckImages   = "Accesibilidad de imágenes"
	CheckVariants = "Estructura de variantes y stock"
	CheckRoutes   = "Rutas alcanzables"
)

// loadTimeBudget is the page-load ceiling for the load-time check.
const loadTimeBudget = 3 * time.Second

// routeSweep is the fixed set of public routes the reachability check walks.
var routeSweep = []string{"/", "/productos", "/checkout"}

// ContinuousQA runs QA cycles against the storefront.
type ContinuousQA struct {
	logger *zap.Logger
	client *apiclient.Client
	engine *simulation.Engine
	users  int
}

// New creates a ContinuousQA orchestrator. users is the virtual-user batch
// size per cycle.
func New(logger *zap.Logger, client *apiclient.Client, engine *simulation.Engine, users int) *ContinuousQA {
	return &ContinuousQA{
		logger: logger.Named("qa"),
		client: client,
		engine: engine,
		users:  users,
	}
}

// RunCycle executes one full QA cycle: actor batch, metrics checks, and
// change detection, rolled up into a QAReport.
func (q *ContinuousQA) RunCycle(ctx context.Context) *schemas.QAReport {
	start := time.Now()

	var batch schemas.BatchResult
	var checks []schemas.QACheck
	var changes []schemas.ChangeDetection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		batch = q.engine.RunRepetitiveAudit(gctx, q.users)
		return nil
	})
	g.Go(func() error {
		checks = q.RunMetricsChecks(gctx)
		return nil
	})
	g.Wait()

	changes = q.detectChanges(ctx)

	report := &schemas.QAReport{
		Batch:      batch,
		Checks:     checks,
		Changes:    changes,
		ExecutedAt: start,
		Duration:   time.Since(start),
	}
	report.Status = q.rollup(report)

	q.logger.Info("QA cycle finished",
		zap.String("status", string(report.Status)),
		zap.Int("failed_checks", report.FailedChecks()),
		zap.Int("failed_runs", batch.FailedRuns()),
		zap.Int("changes", len(changes)))
	return report
}

// rollup: stable needs zero failures and zero critical changes; any critical
// change or failures beyond half of the total tests means failed; anything
// in between is unstable.
func (q *ContinuousQA) rollup(report *schemas.QAReport) schemas.QAStatus {
	criticalChanges := 0
	for _, c := range report.Changes {
		if c.Critical {
			criticalChanges++
		}
	}
	failures := report.FailedChecks() + report.Batch.FailedRuns()
	total := len(report.Checks) + len(report.Batch.Runs)

	switch {
	case criticalChanges > 0 || (total > 0 && failures*2 > total):
		return schemas.QAFailed
	case failures == 0:
		return schemas.QAStable
	default:
		return schemas.QAUnstable
	}
}

// RunMetricsChecks executes the metrics-oriented suite. Each check converts
// its own failures into a failed QACheck; the suite itself never errors.
func (q *ContinuousQA) RunMetricsChecks(ctx context.Context) []schemas.QACheck {
	return []schemas.QACheck{
		q.checkLoadTime(ctx),
		q.checkFilters(ctx),
		q.checkImages(ctx),
		q.checkVariants(ctx),
		q.checkRoutes(ctx),
	}
}

func runCheck(name string, fn func() (string, map[string]any, error)) schemas.QACheck {
	start := time.Now()
	check := schemas.QACheck{Name: name}

	detail, data, err := fn()
	check.DurationMs = time.Since(start).Milliseconds()
	check.Detail = detail
	check.Data = data
	check.Passed = err == nil
	if err != nil {
		check.Detail = err.Error()
	}
	return check
}

func (q *ContinuousQA) checkLoadTime(ctx context.Context) schemas.QACheck {
	return runCheck(CheckLoadTime, func() (string, map[string]any, error) {
		resp, err := q.client.Home(ctx)
		if err != nil {
			return "", nil, err
		}
		data := map[string]any{"load_ms": resp.Duration.Milliseconds()}
		if !resp.OK() {
			return "", data, fmt.Errorf("la página principal devolvió estado %d", resp.Status)
		}
		if resp.Duration > loadTimeBudget {
			return "", data, fmt.Errorf("la carga tardó %s, por encima del presupuesto de %s", resp.Duration, loadTimeBudget)
		}
		return fmt.Sprintf("carga en %dms", resp.Duration.Milliseconds()), data, nil
	})
}

func (q *ContinuousQA) checkFilters(ctx context.Context) schemas.QACheck {
	return runCheck(CheckFilters, func() (string, map[string]any, error) {
		resp, err := q.client.Products(ctx, url.Values{"busqueda": {"remera"}})
		if err != nil {
			return "", nil, err
		}
		if !resp.OK() {
			return "", nil, fmt.Errorf("el listado filtrado devolvió estado %d", resp.Status)
		}
		var products []map[string]any
		if err := resp.JSON(&products); err != nil {
			return "", nil, fmt.Errorf("el listado filtrado no devuelve un array")
		}
		return fmt.Sprintf("%d resultados filtrados", len(products)), map[string]any{"results": len(products)}, nil
	})
}

func (q *ContinuousQA) checkImages(ctx context.Context) schemas.QACheck {
	return runCheck(CheckImages, func() (string, map[string]any, error) {
		resp, err := q.client.Products(ctx, nil)
		if err != nil || !resp.OK() {
			return "", nil, fmt.Errorf("no se pudo obtener el listado para revisar imágenes")
		}
		var products []map[string]any
		if err := resp.JSON(&products); err != nil {
			return "", nil, fmt.Errorf("el listado no devuelve un array")
		}

		checked, broken := 0, 0
		for _, p := range products {
			if checked >= 5 {
				break
			}
			img, ok := p["imagen"].(string)
			if !ok || img == "" {
				continue
			}
			checked++
			u, err := url.Parse(img)
			if err != nil {
				broken++
				continue
			}
			imgResp, err := q.client.Get(ctx, u.Path)
			if err != nil || !imgResp.OK() {
				broken++
			}
		}
		data := map[string]any{"checked": checked, "broken": broken}
		if broken > 0 {
			return "", data, fmt.Errorf("%d de %d imágenes no son accesibles", broken, checked)
		}
		return fmt.Sprintf("%d imágenes accesibles", checked), data, nil
	})
}

func (q *ContinuousQA) checkVariants(ctx context.Context) schemas.QACheck {
	return runCheck(CheckVariants, func() (string, map[string]any, error) {
		resp, err := q.client.Products(ctx, nil)
		if err != nil || !resp.OK() {
			return "", nil, fmt.Errorf("no se pudo obtener el listado para revisar variantes")
		}
		var products []map[string]any
		if err := resp.JSON(&products); err != nil {
			return "", nil, fmt.Errorf("el listado no devuelve un array")
		}

		for _, p := range products {
			if _, ok := p["stock"].(float64); !ok {
				return "", nil, fmt.Errorf("el producto %v no expone stock numérico", p["id"])
			}
			if variants, present := p["variantes"]; present {
				if _, ok := variants.([]any); !ok {
					return "", nil, fmt.Errorf("el producto %v tiene variantes con estructura inválida", p["id"])
				}
			}
		}
		return fmt.Sprintf("%d productos con estructura válida", len(products)), nil, nil
	})
}

func (q *ContinuousQA) checkRoutes(ctx context.Context) schemas.QACheck {
	return runCheck(CheckRoutes, func() (string, map[string]any, error) {
		var unreachable []string
		for _, route := range routeSweep {
			resp, err := q.client.Get(ctx, route)
			if err != nil || resp.ServerError() || resp.Status == 404 {
				unreachable = append(unreachable, route)
			}
		}
		data := map[string]any{"swept": len(routeSweep), "unreachable": unreachable}
		if len(unreachable) > 0 {
			return "", data, fmt.Errorf("rutas inaccesibles: %v", unreachable)
		}
		return fmt.Sprintf("%d rutas alcanzables", len(routeSweep)), data, nil
	})
}

// detectChanges re-probes the critical surface and records any behavior that
// moved from its expected baseline. Home and checkout regressions are
// critical; the rest are informational.
func (q *ContinuousQA) detectChanges(ctx context.Context) []schemas.ChangeDetection {
	var changes []schemas.ChangeDetection
	record := func(target, expected, observed string, critical bool) {
		if expected == observed {
			return
		}
		changes = append(changes, schemas.ChangeDetection{
			Target:     target,
			Expected:   expected,
			Observed:   observed,
			Critical:   critical,
			DetectedAt: time.Now(),
		})
	}

	if resp, err := q.client.Home(ctx); err != nil {
		record("GET /", "2xx", fmt.Sprintf("error: %v", err), true)
	} else {
		record("GET /", "2xx", statusClass(resp.Status), !resp.OK())
	}

	if resp, err := q.client.Products(ctx, nil); err != nil {
		record("GET /api/products", "2xx array", fmt.Sprintf("error: %v", err), true)
	} else {
		var products []map[string]any
		observed := statusClass(resp.Status)
		if resp.OK() && resp.JSON(&products) == nil {
			observed = "2xx array"
		}
		record("GET /api/products", "2xx array", observed, observed != "2xx array")
	}

	if resp, err := q.client.Checkout(ctx, map[string]any{"items": []any{}}); err != nil {
		record("POST /api/checkout", "4xx", fmt.Sprintf("error: %v", err), true)
	} else {
		record("POST /api/checkout", "4xx", statusClass(resp.Status), resp.ServerError())
	}

	return changes
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
