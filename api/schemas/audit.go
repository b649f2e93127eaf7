package schemas

import "time"

// -- Full Audit Schemas --

// AuditStatus is the rollup status of an audited module or of the whole
// system audit.
type AuditStatus string

// Constants for audit rollup status.
const (
	AuditStable   AuditStatus = "stable"
	AuditUnstable AuditStatus = "unstable"
	AuditCritical AuditStatus = "critical"
)

// AuditIssue is a single finding from the full-system auditor.
type AuditIssue struct {
	// Code is a stable machine-readable identifier, e.g. "CHECKOUT_API_500".
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
	Impact      Impact   `json:"impact"`
	Solution    string   `json:"solution,omitempty"`
	CanAutoFix  bool     `json:"can_auto_fix"`
}

// AuditResult aggregates the issues found for one audited module. Status is
// the worst issue severity rolled up.
type AuditResult struct {
	Module   string        `json:"module"`
	Status   AuditStatus   `json:"status"`
	Issues   []AuditIssue  `json:"issues"`
	Duration time.Duration `json:"duration"`
}

// RollupStatus computes a module status from its issues: critical if any
// critical issue exists, unstable if anything else is wrong, stable otherwise.
func RollupStatus(issues []AuditIssue) AuditStatus {
	status := AuditStable
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return AuditCritical
		}
		if issue.Severity == SeverityError || issue.Severity == SeverityWarning {
			status = AuditUnstable
		}
	}
	return status
}

// FullAuditReport is the combined output of all subsystem probes plus the
// auto-fix pass bookkeeping.
type FullAuditReport struct {
	Status      AuditStatus   `json:"status"`
	Results     []AuditResult `json:"results"`
	AppliedFixes []string     `json:"applied_fixes"`
	PendingFixes []string     `json:"pending_fixes"`
	ExecutedAt  time.Time     `json:"executed_at"`
	Duration    time.Duration `json:"duration"`
}

// Issues flattens every module's issues into one list.
func (r FullAuditReport) Issues() []AuditIssue {
	var all []AuditIssue
	for _, res := range r.Results {
		all = append(all, res.Issues...)
	}
	return all
}

// -- Continuous QA Schemas --

// QAStatus is the rollup of one continuous-QA cycle.
type QAStatus string

// Constants for continuous-QA rollup status.
const (
	QAStable   QAStatus = "stable"
	QAUnstable QAStatus = "unstable"
	QAFailed   QAStatus = "failed"
)

// QACheck is one metrics-oriented check result (load time, filters, images,
// variants/stock structure, route reachability).
type QACheck struct {
	Name       string         `json:"name"`
	Passed     bool           `json:"passed"`
	DurationMs int64          `json:"duration_ms"`
	Detail     string         `json:"detail,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// ChangeDetection records a critical route or endpoint whose behavior moved
// since the pipeline last looked at it.
type ChangeDetection struct {
	Target     string `json:"target"`
	Expected   string `json:"expected"`
	Observed   string `json:"observed"`
	Critical   bool   `json:"critical"`
	DetectedAt time.Time `json:"detected_at"`
}

// QAReport is the combined output of one continuous-QA cycle.
type QAReport struct {
	Status     QAStatus          `json:"status"`
	Batch      BatchResult       `json:"batch"`
	Checks     []QACheck         `json:"checks"`
	Changes    []ChangeDetection `json:"changes"`
	ExecutedAt time.Time         `json:"executed_at"`
	Duration   time.Duration     `json:"duration"`
}

// FailedChecks counts checks that did not pass.
func (r QAReport) FailedChecks() int {
	n := 0
	for _, c := range r.Checks {
		if !c.Passed {
			n++
		}
	}
	return n
}
