// File: internal/fixregistry/registry.go
// Description: Priority-ordered, pattern-matched remediation rules for
// intercepted runtime errors. Exactly one rule fires per error: the highest
// priority rule whose pattern matches; the catch-all rule guarantees a
// result is always produced.
package fixregistry

import (
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
)

// ErrorEvent is the normalized input to the registry: a message plus an
// optional stack. Intercepted log lines and caught errors both reduce to it.
type ErrorEvent struct {
	Message string
	Stack   string
}

// Rule is a single pattern-matched remediation handler.
type Rule struct {
	// ID is a stable identifier used in logs and metrics.
	ID string
	// Priority orders application; higher is tried first. Ties preserve
	// registration order.
	Priority int
	// Description explains what class of error this rule handles.
	Description string
	// Patterns are tested against both the message and the stack.
	Patterns []*regexp.Regexp
	// Apply produces the fix result for a matched event.
	Apply func(event ErrorEvent) schemas.FixResult
}

// matches reports whether any pattern hits the event's message or stack.
func (r *Rule) matches(event ErrorEvent) bool {
	for _, p := range r.Patterns {
		if p.MatchString(event.Message) || (event.Stack != "" && p.MatchString(event.Stack)) {
			return true
		}
	}
	return false
}

// Registry holds the rule table. Registration is append-only; the applied
// order is a stable sort by priority descending.
type Registry struct {
	logger *zap.Logger
	rules  []*Rule
}

// NewRegistry creates a registry preloaded with the built-in rules.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{logger: logger.Named("fix-registry")}
	for _, rule := range builtinRules() {
		r.Register(rule)
	}
	return r
}

// Register appends a rule and re-sorts the table. The sort is stable so
// rules with equal priority keep their registration order.
func (r *Registry) Register(rule *Rule) {
	r.rules = append(r.rules, rule)
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority > r.rules[j].Priority
	})
}

// Rules returns the table in application order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// FindAndApplyFix selects the highest-priority matching rule for the error
// and returns its result. The catch-all rule means a result always exists.
func (r *Registry) FindAndApplyFix(err error) schemas.FixResult {
	return r.Apply(ErrorEvent{Message: err.Error()})
}

// Apply runs the rule table against a normalized event.
func (r *Registry) Apply(event ErrorEvent) schemas.FixResult {
	for _, rule := range r.rules {
		matched := rule.matches(event)
		r.logger.Debug("Fix rule tested",
			zap.String("rule", rule.ID),
			zap.Int("priority", rule.Priority),
			zap.Bool("matched", matched))
		if !matched {
			continue
		}
		result := rule.Apply(event)
		r.logger.Info("Fix rule applied",
			zap.String("rule", rule.ID),
			zap.String("action", result.Action),
			zap.Bool("success", result.Success),
			zap.Bool("requires_restart", result.RequiresRestart))
		if result.Success {
			observability.AutoFixesApplied.WithLabelValues(result.Action).Inc()
		}
		return result
	}

	// Unreachable while the catch-all rule is registered; kept as a guard
	// for registries built without the builtins.
	return schemas.FixResult{
		Success: false,
		Action:  "manual_review",
		Message: "no fix rule matched",
	}
}
