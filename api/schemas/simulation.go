package schemas

import "time"

// -- Synthetic Actor Schemas --

// FlowKind selects which scripted journey a virtual user executes.
type FlowKind string

// Constants for the two scripted flows.
const (
	FlowPurchase FlowKind = "purchase"
	FlowAdmin    FlowKind = "admin"
)

// Step is the uniformly wrapped result of one action inside a flow. Steps
// never throw past their boundary: any panic or error inside the action is
// captured here.
type Step struct {
	Name       string         `json:"name"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// RunStatus is the rollup status of a single actor run.
type RunStatus string

// Constants for actor run rollup status.
const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ActorRun is the full record of one virtual user executing one flow. An
// actor that panicked before producing steps is recorded as a failed run
// with an empty step list.
type ActorRun struct {
	ActorID   string    `json:"actor_id"`
	Flow      FlowKind  `json:"flow"`
	Steps     []Step    `json:"steps"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether any step in the run failed.
func (r ActorRun) Failed() bool {
	if r.Status == RunFailed {
		return true
	}
	for _, s := range r.Steps {
		if !s.Success {
			return true
		}
	}
	return false
}

// CriticalFailure is a step promoted for escalation because it failed for
// more than half of a batch of virtual users.
type CriticalFailure struct {
	Step          string   `json:"step"`
	AffectedUsers int      `json:"affected_users"`
	TotalUsers    int      `json:"total_users"`
	Impact        Impact   `json:"impact"`
	Errors        []string `json:"errors,omitempty"`
}

// BatchResult aggregates a batch of concurrent actor runs.
type BatchResult struct {
	Runs             []ActorRun        `json:"runs"`
	CriticalFailures []CriticalFailure `json:"critical_failures"`
	StartedAt        time.Time         `json:"started_at"`
	Duration         time.Duration     `json:"duration"`
}

// FailedRuns counts runs with at least one failed step (or no steps at all).
func (b BatchResult) FailedRuns() int {
	n := 0
	for _, r := range b.Runs {
		if r.Failed() {
			n++
		}
	}
	return n
}
