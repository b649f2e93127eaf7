// File: internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the pipeline's metrics registry, exposed by the serve command
// at /metrics. A dedicated registry keeps default Go collectors out of tests.
var Registry = prometheus.NewRegistry()

var (
	// AlertsTotal counts alerts raised per category and severity.
	AlertsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_alerts_total",
		Help: "Alerts raised by the guardian, by category and severity.",
	}, []string{"category", "severity"})

	// ProbeDuration observes audit probe latency per module.
	ProbeDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guardian_probe_duration_seconds",
		Help:    "Duration of full-audit probes, by module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})

	// SchedulerRuns counts daily scheduler firings by resulting status.
	SchedulerRuns = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_scheduler_runs_total",
		Help: "Daily report runs, by rollup status.",
	}, []string{"status"})

	// AutoFixesApplied counts remediation actions taken by the fix registry.
	AutoFixesApplied = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_autofix_applied_total",
		Help: "Auto-fix actions applied, by action tag.",
	}, []string{"action"})
)
