package schemas

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// -- Alert Schemas --

// Severity represents how badly a detected problem hurts the storefront.
// The values are lowercase to align with database ENUMs.
type Severity string

// Constants defining the standard severity levels for alerts.
const (
	SeverityCritical Severity = "critical" // Blocks checkout/payment or makes the home/listing unreachable.
	SeverityError    Severity = "error"    // A broken feature that does not block the purchase path.
	SeverityWarning  Severity = "warning"  // Degraded behavior worth operator attention.
	SeverityInfo     Severity = "info"     // Informational only.
)

// Impact classifies a domain failure by how much revenue it puts at risk.
// It is mapped onto Severity when an alert is raised.
type Impact string

// Constants for the impact scale used by the escalation channel.
const (
	ImpactLethal Impact = "lethal"
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// SeverityForImpact maps the escalation impact scale onto alert severity:
// lethal failures are critical, high-impact failures are errors, and
// everything else is a warning.
func SeverityForImpact(impact Impact) Severity {
	switch impact {
	case ImpactLethal:
		return SeverityCritical
	case ImpactHigh:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Category is the closed set of storefront subsystems an alert can belong to.
type Category string

// Constants for every alert category the pipeline recognizes.
const (
	CategoryCheckout       Category = "checkout"
	CategoryDatabase       Category = "database"
	CategoryImages         Category = "images"
	CategoryPaymentGateway Category = "payment_gateway"
	CategoryCORS           Category = "cors"
	CategoryRoutes         Category = "routes"
	CategoryComponents     Category = "components"
	CategoryAPI            Category = "api"
	CategoryStock          Category = "stock"
	CategoryVariants       Category = "variants"
)

// Alert is a deduplicated record of a detected problem. Repeated detections
// of the same (category, message) pair increment OccurrenceCount on the one
// stored entry instead of creating duplicates.
type Alert struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`

	// Details carries optional structured context captured at detection time.
	Details map[string]any `json:"details,omitempty"`

	// SourceFile and SourceLine point at the code location that produced the
	// error, when known.
	SourceFile string `json:"source_file,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`

	Solution     string   `json:"solution,omitempty"`
	RelatedFiles []string `json:"related_files,omitempty"`

	OccurrenceCount int       `json:"occurrence_count"`
	FirstOccurrence time.Time `json:"first_occurrence"`
	LastOccurrence  time.Time `json:"last_occurrence"`

	Resolved  bool `json:"resolved"`
	AutoFixed bool `json:"auto_fixed"`
}

// alertKeyMessageLen bounds how much of the message participates in the
// dedup identity. Longer messages often embed volatile data (ids, addresses)
// past this point.
const alertKeyMessageLen = 50

// AlertKey computes the stable dedup identity for a (category, message)
// pair: a sha1 over the category and the first 50 characters of the message.
func AlertKey(category Category, message string) string {
	truncated := message
	if len(truncated) > alertKeyMessageLen {
		truncated = truncated[:alertKeyMessageLen]
	}
	sum := sha1.Sum([]byte(string(category) + "|" + truncated))
	return hex.EncodeToString(sum[:])
}

// TriageStatus tracks the operator-facing lifecycle of an escalated alert,
// independent of the alert store's resolved flag.
type TriageStatus string

// Constants for the triage lifecycle.
const (
	TriagePending    TriageStatus = "pending"
	TriageInProgress TriageStatus = "in_progress"
	TriageResolved   TriageStatus = "resolved"
)

// TriageEntry is one operator-facing record kept by the escalation channel.
type TriageEntry struct {
	ID        string       `json:"id"`
	Module    string       `json:"module"`
	Impact    Impact       `json:"impact"`
	Message   string       `json:"message"`
	Solution  string       `json:"solution"`
	Status    TriageStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
