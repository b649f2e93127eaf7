// File: internal/reporting/markdown.go
// Description: Markdown generators for the operator-facing reports. Every
// generator emits the same section order: summary counts, per-module detail,
// affected files, recommendations, applied/pending fixes.
package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

func header(b *strings.Builder, title string, at time.Time) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "_Generado: %s_\n\n", at.Format("2006-01-02 15:04:05"))
}

func checkbox(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// FullAudit renders the full-system audit report.
func FullAudit(report *schemas.FullAuditReport) string {
	var b strings.Builder
	header(&b, "Auditoría completa del sistema", report.ExecutedAt)

	issues := report.Issues()
	critical, errors, warnings := countBySeverity(issues)
	b.WriteString("## Resumen\n\n")
	fmt.Fprintf(&b, "- Estado general: **%s**\n", report.Status)
	fmt.Fprintf(&b, "- Problemas críticos: %d\n", critical)
	fmt.Fprintf(&b, "- Errores: %d\n", errors)
	fmt.Fprintf(&b, "- Advertencias: %d\n", warnings)
	fmt.Fprintf(&b, "- Duración: %s\n\n", report.Duration.Round(time.Millisecond))

	b.WriteString("## Detalle por módulo\n\n")
	for _, result := range report.Results {
		fmt.Fprintf(&b, "### %s - %s\n\n", result.Module, result.Status)
		if len(result.Issues) == 0 {
			b.WriteString("Sin problemas detectados.\n\n")
			continue
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "- **[%s]** `%s`: %s\n", issue.Severity, issue.Code, issue.Description)
			if issue.Solution != "" {
				fmt.Fprintf(&b, "  - Solución: %s\n", issue.Solution)
			}
		}
		b.WriteString("\n")
	}

	writeAffectedFiles(&b, issues)

	b.WriteString("## Recomendaciones\n\n")
	if critical > 0 {
		b.WriteString("- Atender los problemas críticos antes de la próxima corrida.\n")
	} else {
		b.WriteString("- Sin acciones urgentes.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Correcciones automáticas\n\n")
	writeFixLists(&b, report.AppliedFixes, report.PendingFixes)
	return b.String()
}

// ContinuousQA renders one QA cycle.
func ContinuousQA(report *schemas.QAReport) string {
	var b strings.Builder
	header(&b, "QA continuo", report.ExecutedAt)

	b.WriteString("## Resumen\n\n")
	fmt.Fprintf(&b, "- Estado: **%s**\n", report.Status)
	fmt.Fprintf(&b, "- Usuarios simulados: %d (fallidos: %d)\n", len(report.Batch.Runs), report.Batch.FailedRuns())
	fmt.Fprintf(&b, "- Chequeos de métricas: %d (fallidos: %d)\n", len(report.Checks), report.FailedChecks())
	fmt.Fprintf(&b, "- Cambios detectados: %d\n\n", len(report.Changes))

	b.WriteString("## Chequeos\n\n")
	for _, check := range report.Checks {
		fmt.Fprintf(&b, "- %s %s (%dms)", checkbox(check.Passed), check.Name, check.DurationMs)
		if check.Detail != "" {
			fmt.Fprintf(&b, " - %s", check.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(report.Changes) > 0 {
		b.WriteString("## Cambios detectados\n\n")
		for _, change := range report.Changes {
			marker := ""
			if change.Critical {
				marker = " **[crítico]**"
			}
			fmt.Fprintf(&b, "- %s: esperado %s, observado %s%s\n", change.Target, change.Expected, change.Observed, marker)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Fallas críticas de la simulación\n\n")
	writeCriticalFailures(&b, report.Batch.CriticalFailures)
	return b.String()
}

// ActorBatch renders a virtual-user batch result.
func ActorBatch(batch schemas.BatchResult) string {
	var b strings.Builder
	header(&b, "Corrida de usuarios virtuales", batch.StartedAt)

	b.WriteString("## Resumen\n\n")
	fmt.Fprintf(&b, "- Usuarios: %d\n", len(batch.Runs))
	fmt.Fprintf(&b, "- Corridas fallidas: %d\n", batch.FailedRuns())
	fmt.Fprintf(&b, "- Fallas críticas: %d\n", len(batch.CriticalFailures))
	fmt.Fprintf(&b, "- Duración: %s\n\n", batch.Duration.Round(time.Millisecond))

	b.WriteString("## Detalle por actor\n\n")
	for _, run := range batch.Runs {
		fmt.Fprintf(&b, "### %s (%s) - %s\n\n", run.ActorID, run.Flow, run.Status)
		for _, step := range run.Steps {
			fmt.Fprintf(&b, "- %s %s (%dms)", checkbox(step.Success), step.Name, step.DurationMs)
			if step.Error != "" {
				fmt.Fprintf(&b, " - %s", step.Error)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Fallas críticas\n\n")
	writeCriticalFailures(&b, batch.CriticalFailures)
	return b.String()
}

// Daily renders a persisted daily report.
func Daily(report *schemas.DailyReport) string {
	var b strings.Builder
	header(&b, "Reporte diario "+report.Date, report.ExecutedAt)

	b.WriteString("## Resumen\n\n")
	fmt.Fprintf(&b, "- Estado general: **%s**\n", report.Status)
	fmt.Fprintf(&b, "- Errores: %d (críticos: %d)\n", len(report.Errors), report.CriticalErrors())
	fmt.Fprintf(&b, "- Duración: %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Carga de página: %dms | API: %dms | Imágenes: %dms\n\n",
		report.Performance.PageLoadMs, report.Performance.APITimeMs, report.Performance.ImageTimeMs)

	if report.Comparison != nil {
		fmt.Fprintf(&b, "- Comparado con %s: %d errores nuevos, %d persistentes, rendimiento %+.1f%%\n\n",
			report.Comparison.PreviousReportID, report.Comparison.NewErrors,
			report.Comparison.PersistentErrors, report.Comparison.PerformanceImprovementPercent)
	}

	b.WriteString("## Flujo de usuario\n\n")
	writeFlowChecks(&b, report.UserFlow)
	b.WriteString("\n## Flujo de administración\n\n")
	writeFlowChecks(&b, report.AdminFlow)

	if len(report.Errors) > 0 {
		b.WriteString("\n## Errores\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "- **[%s]** (%s) %s", e.Severity, e.Category, e.Message)
			if e.Source != "" {
				fmt.Fprintf(&b, " _(%s)_", e.Source)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Recomendaciones\n\n")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	b.WriteString("\n## Correcciones automáticas\n\n")
	writeFixLists(&b, report.AppliedFixes, nil)
	return b.String()
}

// CheckoutMonitor renders the checkout module's audit result on its own, for
// the focused checkout monitor view.
func CheckoutMonitor(result schemas.AuditResult) string {
	var b strings.Builder
	header(&b, "Monitor de checkout", time.Now())

	b.WriteString("## Resumen\n\n")
	fmt.Fprintf(&b, "- Estado: **%s**\n", result.Status)
	fmt.Fprintf(&b, "- Problemas: %d\n\n", len(result.Issues))

	b.WriteString("## Detalle\n\n")
	if len(result.Issues) == 0 {
		b.WriteString("El flujo de checkout responde correctamente.\n")
	}
	for _, issue := range result.Issues {
		fmt.Fprintf(&b, "- **[%s]** `%s`: %s\n", issue.Severity, issue.Code, issue.Description)
		if issue.Solution != "" {
			fmt.Fprintf(&b, "  - Solución: %s\n", issue.Solution)
		}
	}
	return b.String()
}

func countBySeverity(issues []schemas.AuditIssue) (critical, errors, warnings int) {
	for _, issue := range issues {
		switch issue.Severity {
		case schemas.SeverityCritical:
			critical++
		case schemas.SeverityError:
			errors++
		case schemas.SeverityWarning:
			warnings++
		}
	}
	return critical, errors, warnings
}

func writeAffectedFiles(b *strings.Builder, issues []schemas.AuditIssue) {
	files := make(map[string]bool)
	for _, issue := range issues {
		if issue.File != "" {
			files[issue.File] = true
		}
	}
	b.WriteString("## Archivos afectados\n\n")
	if len(files) == 0 {
		b.WriteString("Ninguno.\n\n")
		return
	}
	sorted := make([]string, 0, len(files))
	for f := range files {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)
	for _, f := range sorted {
		fmt.Fprintf(b, "- `%s`\n", f)
	}
	b.WriteString("\n")
}

func writeFixLists(b *strings.Builder, applied, pending []string) {
	if len(applied) == 0 && len(pending) == 0 {
		b.WriteString("Ninguna.\n")
		return
	}
	for _, fix := range applied {
		fmt.Fprintf(b, "- ✅ %s\n", fix)
	}
	for _, fix := range pending {
		fmt.Fprintf(b, "- ⏳ %s (pendiente)\n", fix)
	}
}

func writeFlowChecks(b *strings.Builder, checks schemas.FlowChecks) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "- %s %s\n", checkbox(checks[name]), name)
	}
}

func writeCriticalFailures(b *strings.Builder, failures []schemas.CriticalFailure) {
	if len(failures) == 0 {
		b.WriteString("Ninguna.\n")
		return
	}
	for _, f := range failures {
		fmt.Fprintf(b, "- **%s**: falló para %d de %d usuarios (impacto %s)\n",
			f.Step, f.AffectedUsers, f.TotalUsers, f.Impact)
	}
}
