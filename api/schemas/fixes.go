package schemas

import "time"

// -- Remediation Schemas --

// FixResult is the outcome of running a single fix rule against an error.
// Exactly one rule produces a FixResult per error; the catch-all rule
// guarantees a result always exists even when nothing matched.
type FixResult struct {
	Success bool `json:"success"`

	// Action is a stable tag naming the remediation taken (or recommended),
	// e.g. "clear_render_cache" or "manual_review".
	Action  string `json:"action"`
	Message string `json:"message"`

	// RequiresRestart signals that the fix cannot take effect in-process and
	// the render boundary must present a restart-required state.
	RequiresRestart bool `json:"requires_restart"`

	// Patch optionally carries a suggested change in unified diff format.
	Patch string `json:"patch,omitempty"`

	Data map[string]any `json:"data,omitempty"`
}

// RepairIssueType categorizes what kind of structural problem the self-repair
// scanner found in a source file.
type RepairIssueType string

// Constants for the recognized repair issue types.
const (
	RepairIssueImport   RepairIssueType = "import"
	RepairIssueFunction RepairIssueType = "function"
	RepairIssueEndpoint RepairIssueType = "endpoint"
	RepairIssueHook     RepairIssueType = "hook"
	RepairIssueProp     RepairIssueType = "prop"
	RepairIssueUnknown  RepairIssueType = "unknown"
)

// RepairIssue is a single structural finding from the self-repair scanner.
type RepairIssue struct {
	Type        RepairIssueType `json:"type"`
	File        string          `json:"file"`
	Line        int             `json:"line,omitempty"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	CanAutoFix  bool            `json:"can_auto_fix"`
}

// RepairResult describes one repair attempt. BackupPath is always set when a
// backup was taken, even if the repair itself failed and was rolled back.
type RepairResult struct {
	Issue       RepairIssue `json:"issue"`
	Repaired    bool        `json:"repaired"`
	Message     string      `json:"message"`
	BackupPath  string      `json:"backup_path,omitempty"`
	AttemptedAt time.Time   `json:"attempted_at"`
}
