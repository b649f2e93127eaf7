package schemas

import "time"

// -- Daily Report Schemas --

// ReportStatus is the rollup status of a persisted daily report.
type ReportStatus string

// Constants for daily report rollup status. A report is critical iff any
// critical-severity error is present; warning when more than five errors
// accumulated; stable otherwise.
const (
	ReportStable   ReportStatus = "stable"
	ReportWarning  ReportStatus = "warning"
	ReportCritical ReportStatus = "critical"
)

// ReportError is one flattened error entry inside a daily report.
type ReportError struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Source   string   `json:"source,omitempty"`
}

// FlowChecks maps a flow's named checkpoints to pass/fail. The user flow
// carries eleven checkpoints and the admin flow five.
type FlowChecks map[string]bool

// PerformanceMetrics holds the three directly timed measurements taken at
// report time.
type PerformanceMetrics struct {
	PageLoadMs  int64 `json:"page_load_ms"`
	APITimeMs   int64 `json:"api_time_ms"`
	ImageTimeMs int64 `json:"image_time_ms"`
}

// Comparison is the day-over-day diff against the immediately preceding
// persisted report, computed over error-message sets.
type Comparison struct {
	PreviousReportID string `json:"previous_report_id"`

	// NewErrors counts messages present today but absent yesterday.
	NewErrors int `json:"new_errors"`
	// PersistentErrors counts messages present in both runs.
	PersistentErrors int `json:"persistent_errors"`

	// PerformanceImprovementPercent is the page-load delta relative to the
	// previous run; positive means today is faster.
	PerformanceImprovementPercent float64 `json:"performance_improvement_percent"`
}

// DailyReport is a persisted, timestamped bundle of one monitoring run.
// Reports are written once and never mutated; the next run reads the most
// recent one back only to compute its Comparison block.
type DailyReport struct {
	ID         string       `json:"id"`
	Date       string       `json:"date"` // YYYY-MM-DD, local time.
	ExecutedAt time.Time    `json:"executed_at"`
	Duration   time.Duration `json:"duration"`
	Status     ReportStatus `json:"status"`

	UserFlow  FlowChecks `json:"user_flow"`
	AdminFlow FlowChecks `json:"admin_flow"`

	Errors          []ReportError `json:"errors"`
	AppliedFixes    []string      `json:"applied_fixes"`
	Recommendations []string      `json:"recommendations"`

	Performance PerformanceMetrics `json:"performance"`
	Comparison  *Comparison        `json:"comparison,omitempty"`
}

// CriticalErrors counts errors carrying critical severity.
func (r DailyReport) CriticalErrors() int {
	n := 0
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// ErrorMessages returns the set of error messages for diffing.
func (r DailyReport) ErrorMessages() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Errors))
	for _, e := range r.Errors {
		set[e.Message] = struct{}{}
	}
	return set
}
