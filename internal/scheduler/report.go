// File: internal/scheduler/report.go
// Description: One daily run: actor flows mapped to checkpoints, full audit,
// QA metrics, flattened errors, timed performance fetches, day-over-day
// diff, persistence, and the single critical escalation.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/simulation"
)

// warningErrorThreshold is the flattened-error count above which a
// non-critical report rolls up as warning.
const warningErrorThreshold = 5

// User-flow checkpoint names beyond the purchase steps. Together with the
// five purchase steps they form the eleven user-flow checkpoints.
const (
	CheckpointLoadTime       = "Tiempo de carga"
	CheckpointFilters        = "Filtros y búsqueda"
	CheckpointImages         = "Accesibilidad de imágenes"
	CheckpointVariants       = "Estructura de variantes y stock"
	CheckpointRoutes         = "Rutas alcanzables"
	CheckpointPaymentGateway = "Pasarela de pago configurada"
)

// Admin-flow checkpoints beyond the admin steps.
const (
	CheckpointAdminPanel     = "Panel de administración accesible"
	CheckpointPaymentWebhook = "Webhook de pagos operativo"
)

func (s *Scheduler) runOnce(ctx context.Context) *schemas.DailyReport {
	start := s.now()
	report := &schemas.DailyReport{
		ID:         uuid.NewString(),
		Date:       start.Format("2006-01-02"),
		ExecutedAt: start,
	}

	s.logger.Info("Daily report run starting", zap.String("report_id", report.ID))

	batch := s.engine.RunRepetitiveAudit(ctx, s.opts.Users)
	auditReport := s.auditor.RunFullAudit(ctx)
	s.auditor.ApplyAutoFixes(auditReport)
	checks := s.qa.RunMetricsChecks(ctx)

	report.UserFlow, report.AdminFlow = buildFlowChecks(batch, auditReport, checks)
	report.Errors = flattenErrors(batch, auditReport, checks)
	report.AppliedFixes = auditReport.AppliedFixes
	report.Recommendations = buildRecommendations(report.Errors, auditReport)
	report.Performance = s.measurePerformance(ctx)
	report.Status = rollupStatus(report)
	report.Comparison = s.compareWithPrevious(ctx, report)
	report.Duration = time.Since(start)

	if err := s.store.SaveReport(ctx, report); err != nil {
		// Persistence is best-effort; the report still reaches the caller.
		s.logger.Error("Cannot persist daily report", zap.Error(err))
	}

	if report.Status == schemas.ReportCritical && s.escalator != nil {
		s.escalator.Report("monitoreo", schemas.ImpactLethal,
			fmt.Sprintf("El reporte diario detectó %d errores críticos", report.CriticalErrors()),
			map[string]any{"report_id": report.ID, "total_errors": len(report.Errors)})
	}

	s.logger.Info("Daily report run finished",
		zap.String("report_id", report.ID),
		zap.String("status", string(report.Status)),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration))
	return report
}

// stepPassedForAll reports whether every actor that ran the named step
// succeeded on it. A step nobody reached counts as failed: the flow never
// got that far.
func stepPassedForAll(batch schemas.BatchResult, flow schemas.FlowKind, step string) bool {
	ran := false
	for _, run := range batch.Runs {
		if run.Flow != flow {
			continue
		}
		for _, s := range run.Steps {
			if s.Name != step {
				continue
			}
			ran = true
			if !s.Success {
				return false
			}
		}
	}
	return ran
}

func checkPassed(checks []schemas.QACheck, name string) bool {
	for _, c := range checks {
		if c.Name == name {
			return c.Passed
		}
	}
	return false
}

func moduleClean(auditReport *schemas.FullAuditReport, module string, excludeCodes ...string) bool {
	excluded := make(map[string]bool, len(excludeCodes))
	for _, c := range excludeCodes {
		excluded[c] = true
	}
	for _, r := range auditReport.Results {
		if r.Module != module {
			continue
		}
		for _, issue := range r.Issues {
			if !excluded[issue.Code] {
				return false
			}
		}
		return true
	}
	return false
}

// buildFlowChecks maps the run's evidence onto the eleven user-flow and five
// admin-flow checkpoints of the daily report.
func buildFlowChecks(batch schemas.BatchResult, auditReport *schemas.FullAuditReport, checks []schemas.QACheck) (schemas.FlowChecks, schemas.FlowChecks) {
	user := schemas.FlowChecks{
		simulation.StepLoadHome:      stepPassedForAll(batch, schemas.FlowPurchase, simulation.StepLoadHome),
		simulation.StepListProducts:  stepPassedForAll(batch, schemas.FlowPurchase, simulation.StepListProducts),
		simulation.StepProductDetail: stepPassedForAll(batch, schemas.FlowPurchase, simulation.StepProductDetail),
		simulation.StepAddToCart:     stepPassedForAll(batch, schemas.FlowPurchase, simulation.StepAddToCart),
		simulation.StepGoToCheckout:  stepPassedForAll(batch, schemas.FlowPurchase, simulation.StepGoToCheckout),
		CheckpointLoadTime:           checkPassed(checks, CheckpointLoadTime),
		CheckpointFilters:            checkPassed(checks, CheckpointFilters),
		CheckpointImages:             checkPassed(checks, CheckpointImages),
		CheckpointVariants:           checkPassed(checks, CheckpointVariants),
		CheckpointRoutes:             checkPassed(checks, CheckpointRoutes),
		CheckpointPaymentGateway:     moduleClean(auditReport, "payment"),
	}
	admin := schemas.FlowChecks{
		simulation.StepAdminLogin:         stepPassedForAll(batch, schemas.FlowAdmin, simulation.StepAdminLogin),
		simulation.StepAdminListProducts:  stepPassedForAll(batch, schemas.FlowAdmin, simulation.StepAdminListProducts),
		simulation.StepAdminCreateProduct: stepPassedForAll(batch, schemas.FlowAdmin, simulation.StepAdminCreateProduct),
		CheckpointAdminPanel:              moduleClean(auditReport, "admin"),
		CheckpointPaymentWebhook:          moduleClean(auditReport, "payment", "PAYMENT_GATEWAY_MISCONFIGURED", "PAYMENT_CONFIG_DOWN", "PAYMENT_CONFIG_STATUS"),
	}
	return user, admin
}

// categoryForModule maps an audited module to the alert category its errors
// file under.
func categoryForModule(module string) schemas.Category {
	switch module {
	case "home", "product", "cart":
		return schemas.CategoryRoutes
	case "checkout", "shipping":
		return schemas.CategoryCheckout
	case "payment", "post_payment":
		return schemas.CategoryPaymentGateway
	case "admin":
		return schemas.CategoryAPI
	default:
		return schemas.CategoryAPI
	}
}

// flattenErrors collects every failure discovered during the run into the
// report's single error list.
func flattenErrors(batch schemas.BatchResult, auditReport *schemas.FullAuditReport, checks []schemas.QACheck) []schemas.ReportError {
	var errs []schemas.ReportError

	for _, failure := range batch.CriticalFailures {
		errs = append(errs, schemas.ReportError{
			Severity: schemas.SeverityCritical,
			Category: schemas.CategoryCheckout,
			Message:  fmt.Sprintf("El paso %q falló para %d de %d usuarios simulados", failure.Step, failure.AffectedUsers, failure.TotalUsers),
			Source:   "simulacion",
		})
	}

	for _, result := range auditReport.Results {
		for _, issue := range result.Issues {
			errs = append(errs, schemas.ReportError{
				Severity: issue.Severity,
				Category: categoryForModule(result.Module),
				Message:  issue.Description,
				Source:   "auditoria:" + result.Module,
			})
		}
	}

	for _, check := range checks {
		if check.Passed {
			continue
		}
		errs = append(errs, schemas.ReportError{
			Severity: schemas.SeverityWarning,
			Category: schemas.CategoryAPI,
			Message:  fmt.Sprintf("%s: %s", check.Name, check.Detail),
			Source:   "qa",
		})
	}
	return errs
}

func buildRecommendations(errs []schemas.ReportError, auditReport *schemas.FullAuditReport) []string {
	var recs []string
	seen := make(map[string]bool)

	for _, issue := range auditReport.Issues() {
		if issue.Severity != schemas.SeverityCritical || issue.Solution == "" || seen[issue.Solution] {
			continue
		}
		seen[issue.Solution] = true
		recs = append(recs, issue.Solution)
	}

	critical := 0
	for _, e := range errs {
		if e.Severity == schemas.SeverityCritical {
			critical++
		}
	}
	switch {
	case critical > 0:
		recs = append(recs, fmt.Sprintf("Atender de inmediato los %d errores críticos: el flujo de compra está comprometido", critical))
	case len(errs) > 0:
		recs = append(recs, "Revisar los errores no críticos antes de la próxima corrida diaria")
	default:
		recs = append(recs, "Sin acciones pendientes: el storefront está estable")
	}
	return recs
}

func rollupStatus(report *schemas.DailyReport) schemas.ReportStatus {
	if report.CriticalErrors() > 0 {
		return schemas.ReportCritical
	}
	if len(report.Errors) > warningErrorThreshold {
		return schemas.ReportWarning
	}
	return schemas.ReportStable
}

// measurePerformance takes the three directly timed fetches.
func (s *Scheduler) measurePerformance(ctx context.Context) schemas.PerformanceMetrics {
	var metrics schemas.PerformanceMetrics

	if resp, err := s.client.Home(ctx); err == nil {
		metrics.PageLoadMs = resp.Duration.Milliseconds()
	}

	var imagePath string
	if resp, err := s.client.Products(ctx, nil); err == nil {
		metrics.APITimeMs = resp.Duration.Milliseconds()
		var products []map[string]any
		if resp.JSON(&products) == nil && len(products) > 0 {
			imagePath, _ = products[0]["imagen"].(string)
		}
	}

	if imagePath != "" {
		if resp, err := s.client.Get(ctx, imagePath); err == nil {
			metrics.ImageTimeMs = resp.Duration.Milliseconds()
		}
	}
	return metrics
}

// compareWithPrevious diffs the new report against the single most recent
// persisted one. Two persisted reports sharing the same execution timestamp
// make "previous" ambiguous; that is flagged, not tie-broken.
func (s *Scheduler) compareWithPrevious(ctx context.Context, report *schemas.DailyReport) *schemas.Comparison {
	previous, err := s.store.LatestReports(ctx, 2)
	if err != nil {
		s.logger.Warn("Cannot load previous report for comparison", zap.Error(err))
		return nil
	}
	if len(previous) == 0 {
		return nil
	}
	if len(previous) > 1 && previous[0].ExecutedAt.Equal(previous[1].ExecutedAt) {
		s.logger.Warn("Two persisted reports share the same execution timestamp; comparison baseline is ambiguous",
			zap.String("report_a", previous[0].ID),
			zap.String("report_b", previous[1].ID))
	}
	return diffReports(&previous[0], report)
}

// diffReports computes the comparison block over the two reports' error
// message sets and page-load times.
func diffReports(previous, current *schemas.DailyReport) *schemas.Comparison {
	prevSet := previous.ErrorMessages()
	curSet := current.ErrorMessages()

	cmp := &schemas.Comparison{PreviousReportID: previous.ID}
	for msg := range curSet {
		if _, ok := prevSet[msg]; ok {
			cmp.PersistentErrors++
		} else {
			cmp.NewErrors++
		}
	}

	if previous.Performance.PageLoadMs > 0 && current.Performance.PageLoadMs > 0 {
		prev := float64(previous.Performance.PageLoadMs)
		cur := float64(current.Performance.PageLoadMs)
		cmp.PerformanceImprovementPercent = (prev - cur) / prev * 100
	}
	return cmp
}
