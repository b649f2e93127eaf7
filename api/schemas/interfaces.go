package schemas

import "context"

// -- Persistence Ports --

// ReportStore defines the persistence contract for daily reports and
// escalated alerts. This abstraction allows the pipeline to be independent
// of the specific backend (PostgreSQL when available, an append-only file
// store otherwise).
type ReportStore interface {
	// SaveReport persists a finished daily report. Reports are immutable
	// after this call.
	SaveReport(ctx context.Context, report *DailyReport) error
	// LatestReports returns up to n persisted reports ordered by execution
	// time descending.
	LatestReports(ctx context.Context, n int) ([]DailyReport, error)
	// SaveAlert persists an escalated alert for the operator record.
	SaveAlert(ctx context.Context, alert *Alert) error
	// Close releases any underlying resources.
	Close()
}

// AlertSink receives every escalated alert. Implementations must be
// best-effort: a sink failure is logged by the caller and never propagates.
type AlertSink interface {
	SaveAlert(ctx context.Context, alert *Alert) error
}

// Escalator is the narrow surface the simulation and scheduler use to raise
// severity-tagged alerts without depending on the escalation package.
type Escalator interface {
	// Report raises one alert for a domain failure in the named module.
	Report(module string, impact Impact, message string, details map[string]any)
}
