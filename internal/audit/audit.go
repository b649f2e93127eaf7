// File: internal/audit/audit.go
// Description: Full-system auditor. Eight subsystem probes run concurrently,
// each converting every failure into AuditIssues; a probe never returns an
// error and never poisons the others.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
)

// unstableErrorThreshold is the error-issue count above which a non-critical
// audit rolls up as unstable.
const unstableErrorThreshold = 5

// Auditor runs the fixed probe set against the storefront surface.
type Auditor struct {
	logger *zap.Logger
	client *apiclient.Client

	adminUser   string
	adminSecret string
}

// New creates an Auditor.
func New(logger *zap.Logger, client *apiclient.Client, adminUser, adminSecret string) *Auditor {
	return &Auditor{
		logger:      logger.Named("audit"),
		client:      client,
		adminUser:   adminUser,
		adminSecret: adminSecret,
	}
}

type probe struct {
	module string
	run    func(ctx context.Context) []schemas.AuditIssue
}

func (a *Auditor) probes() []probe {
	return []probe{
		{"home", a.probeHome},
		{"product", a.probeProduct},
		{"cart", a.probeCart},
		{"checkout", a.probeCheckout},
		{"payment", a.probePayment},
		{"post_payment", a.probePostPayment},
		{"shipping", a.probeShipping},
		{"admin", a.probeAdmin},
	}
}

// RunFullAudit executes every probe concurrently and rolls the findings up.
// The join tolerates individual probe failure: a panicked probe becomes a
// critical finding for its module, nothing more.
func (a *Auditor) RunFullAudit(ctx context.Context) *schemas.FullAuditReport {
	start := time.Now()
	probes := a.probes()
	results := make([]schemas.AuditResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			results[i] = a.runProbe(gctx, p)
			return nil
		})
	}
	g.Wait()

	report := &schemas.FullAuditReport{
		Results:    results,
		ExecutedAt: start,
		Duration:   time.Since(start),
	}
	report.Status = a.rollup(results)

	a.logger.Info("Full audit finished",
		zap.String("status", string(report.Status)),
		zap.Int("issues", len(report.Issues())),
		zap.Duration("duration", report.Duration))
	return report
}

func (a *Auditor) runProbe(ctx context.Context, p probe) (result schemas.AuditResult) {
	start := time.Now()
	result = schemas.AuditResult{Module: p.module}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Probe panicked", zap.String("module", p.module), zap.Any("panic", r))
			result.Issues = append(result.Issues, schemas.AuditIssue{
				Code:        "PROBE_PANICKED",
				Severity:    schemas.SeverityCritical,
				Description: fmt.Sprintf("probe for module %s panicked: %v", p.module, r),
				Impact:      schemas.ImpactHigh,
			})
		}
		result.Duration = time.Since(start)
		result.Status = schemas.RollupStatus(result.Issues)
		observability.ProbeDuration.WithLabelValues(p.module).Observe(result.Duration.Seconds())
	}()

	result.Issues = p.run(ctx)
	return result
}

// rollup computes the global audit status: critical if any issue is
// critical, unstable if error-severity issues exceed the threshold, stable
// otherwise.
func (a *Auditor) rollup(results []schemas.AuditResult) schemas.AuditStatus {
	errorCount := 0
	for _, r := range results {
		for _, issue := range r.Issues {
			if issue.Severity == schemas.SeverityCritical {
				return schemas.AuditCritical
			}
			if issue.Severity == schemas.SeverityError {
				errorCount++
			}
		}
	}
	if errorCount > unstableErrorThreshold {
		return schemas.AuditUnstable
	}
	return schemas.AuditStable
}

// ApplyAutoFixes walks the auto-fixable issues and records which fixes were
// applied versus left pending. No issue type currently implements a real
// fix, so everything lands in PendingFixes; the dispatch below is the
// extension point for types that grow one.
func (a *Auditor) ApplyAutoFixes(report *schemas.FullAuditReport) {
	for _, issue := range report.Issues() {
		if !issue.CanAutoFix {
			continue
		}
		applied := a.applyFix(issue)
		if applied {
			report.AppliedFixes = append(report.AppliedFixes, issue.Code)
			observability.AutoFixesApplied.WithLabelValues(issue.Code).Inc()
			continue
		}
		report.PendingFixes = append(report.PendingFixes, issue.Code)
	}

	if len(report.PendingFixes) > 0 {
		a.logger.Info("Auto-fix pass finished",
			zap.Int("applied", len(report.AppliedFixes)),
			zap.Int("pending", len(report.PendingFixes)))
	}
}

// RunCheckoutMonitor probes only the checkout flow, for the focused monitor
// view.
func (a *Auditor) RunCheckoutMonitor(ctx context.Context) schemas.AuditResult {
	return a.runProbe(ctx, probe{"checkout", a.probeCheckout})
}

func (a *Auditor) applyFix(schemas.AuditIssue) bool {
	// No audit issue type implements an automated fix yet.
	return false
}
