// File: internal/reporting/markdown_test.go
package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// sectionOrder asserts the named sections appear in the given order.
func sectionOrder(t *testing.T, doc string, sections ...string) {
	t.Helper()
	last := -1
	for _, section := range sections {
		idx := strings.Index(doc, section)
		require.GreaterOrEqual(t, idx, 0, "section %q missing", section)
		assert.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}
}

func TestFullAuditSectionOrdering(t *testing.T) {
	report := &schemas.FullAuditReport{
		Status:     schemas.AuditCritical,
		ExecutedAt: time.Now(),
		Results: []schemas.AuditResult{{
			Module: "checkout",
			Status: schemas.AuditCritical,
			Issues: []schemas.AuditIssue{{
				Code:        "CHECKOUT_API_500",
				Severity:    schemas.SeverityCritical,
				Description: "el checkout devolvió estado 500 para un carrito válido",
				File:        "api/checkout.ts",
				Impact:      schemas.ImpactLethal,
				Solution:    "Revisar el endpoint de checkout",
			}},
		}},
		PendingFixes: []string{"PAYMENT_GATEWAY_MISCONFIGURED"},
	}

	doc := FullAudit(report)
	sectionOrder(t, doc,
		"## Resumen",
		"## Detalle por módulo",
		"## Archivos afectados",
		"## Recomendaciones",
		"## Correcciones automáticas")
	assert.Contains(t, doc, "CHECKOUT_API_500")
	assert.Contains(t, doc, "`api/checkout.ts`")
	assert.Contains(t, doc, "⏳ PAYMENT_GATEWAY_MISCONFIGURED (pendiente)")
}

func TestDailyReportRendersComparisonAndFlows(t *testing.T) {
	report := &schemas.DailyReport{
		ID:         "r2",
		Date:       "2026-09-01",
		ExecutedAt: time.Now(),
		Status:     schemas.ReportWarning,
		UserFlow:   schemas.FlowChecks{"Ir a checkout": false, "Cargar página principal": true},
		AdminFlow:  schemas.FlowChecks{"Login de administrador": true},
		Errors: []schemas.ReportError{
			{Severity: schemas.SeverityError, Category: schemas.CategoryCheckout, Message: "checkout devolvió 500", Source: "auditoria:checkout"},
		},
		Recommendations: []string{"Revisar los errores no críticos antes de la próxima corrida diaria"},
		Comparison: &schemas.Comparison{
			PreviousReportID:              "r1",
			NewErrors:                     1,
			PersistentErrors:              0,
			PerformanceImprovementPercent: 12.5,
		},
	}

	doc := Daily(report)
	sectionOrder(t, doc,
		"## Resumen",
		"## Flujo de usuario",
		"## Flujo de administración",
		"## Errores",
		"## Recomendaciones",
		"## Correcciones automáticas")
	assert.Contains(t, doc, "❌ Ir a checkout")
	assert.Contains(t, doc, "✅ Cargar página principal")
	assert.Contains(t, doc, "Comparado con r1")
	assert.Contains(t, doc, "+12.5%")
}

func TestActorBatchAndQADocuments(t *testing.T) {
	batch := schemas.BatchResult{
		StartedAt: time.Now(),
		Runs: []schemas.ActorRun{{
			ActorID: "actor-1",
			Flow:    schemas.FlowPurchase,
			Status:  schemas.RunFailed,
			Steps: []schemas.Step{
				{Name: "Ir a checkout", Success: false, Error: "status 500"},
			},
		}},
		CriticalFailures: []schemas.CriticalFailure{
			{Step: "Ir a checkout", AffectedUsers: 3, TotalUsers: 5, Impact: schemas.ImpactLethal},
		},
	}

	doc := ActorBatch(batch)
	sectionOrder(t, doc, "## Resumen", "## Detalle por actor", "## Fallas críticas")
	assert.Contains(t, doc, "falló para 3 de 5 usuarios")

	qaDoc := ContinuousQA(&schemas.QAReport{
		Status:     schemas.QAFailed,
		Batch:      batch,
		ExecutedAt: time.Now(),
		Checks:     []schemas.QACheck{{Name: "Tiempo de carga", Passed: true, DurationMs: 40}},
		Changes: []schemas.ChangeDetection{
			{Target: "POST /api/checkout", Expected: "4xx", Observed: "5xx", Critical: true},
		},
	})
	sectionOrder(t, qaDoc, "## Resumen", "## Chequeos", "## Cambios detectados", "## Fallas críticas de la simulación")
	assert.Contains(t, qaDoc, "**[crítico]**")
}

func TestOpenOutput(t *testing.T) {
	w, err := OpenOutput("stdout")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "report.md")
	w, err = OpenOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("# hola\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# hola\n", string(data))
}
