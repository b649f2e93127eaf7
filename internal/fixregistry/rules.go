// File: internal/fixregistry/rules.go
package fixregistry

import (
	"regexp"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// builtinRules returns the ten rule categories the pipeline ships with. The
// storefront is a JavaScript single-page application, so the patterns target
// the error shapes its runtime emits.
func builtinRules() []*Rule {
	return []*Rule{
		hydrationMismatch(),
		missingModule(),
		nullAccess(),
		undeclaredVariable(),
		hookMisuse(),
		typeError(),
		methodNotAllowed(),
		unresolvedImport(),
		contextMisuse(),
		catchAll(),
	}
}

func hydrationMismatch() *Rule {
	return &Rule{
		ID:          "hydration_mismatch",
		Priority:    100,
		Description: "Server-rendered markup does not match the client render",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)hydration failed`),
			regexp.MustCompile(`(?i)text content does not match server-rendered`),
			regexp.MustCompile(`(?i)there was an error while hydrating`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "force_client_render",
				Message: "Markup mismatch detected; the affected subtree should re-render client-side.",
			}
		},
	}
}

func missingModule() *Rule {
	return &Rule{
		ID:          "missing_module",
		Priority:    95,
		Description: "A required module is not installed or not found",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)cannot find module '([^']+)'`),
			regexp.MustCompile(`(?i)module not found: (error: )?can't resolve`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success:         true,
				Action:          "reinstall_dependencies",
				Message:         "A module is missing from the build; dependencies must be reinstalled.",
				RequiresRestart: true,
			}
		},
	}
}

func nullAccess() *Rule {
	return &Rule{
		ID:          "null_access",
		Priority:    90,
		Description: "Property access on null or undefined",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)cannot read propert(y|ies) of (null|undefined)`),
			regexp.MustCompile(`(?i)cannot destructure property .* of .* as it is (null|undefined)`),
			regexp.MustCompile(`(?i)(null|undefined) is not an object`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "add_null_guard",
				Message: "Unguarded access on a nullable value; add an optional-chaining guard at the reported site.",
				Patch:   "- const value = data.field\n+ const value = data?.field",
			}
		},
	}
}

func undeclaredVariable() *Rule {
	return &Rule{
		ID:          "undeclared_variable",
		Priority:    85,
		Description: "Reference to an undeclared variable or use before initialization",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\w+ is not defined`),
			regexp.MustCompile(`(?i)cannot access '[^']+' before initialization`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "declare_before_use",
				Message: "An identifier is referenced before its declaration; hoist or declare it first.",
			}
		},
	}
}

func hookMisuse() *Rule {
	return &Rule{
		ID:          "hook_misuse",
		Priority:    80,
		Description: "A hook called outside a component or in a changing order",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)invalid hook call`),
			regexp.MustCompile(`(?i)rendered more hooks than during the previous render`),
			regexp.MustCompile(`(?i)hooks can only be called inside`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "move_hook_to_top_level",
				Message: "A hook runs conditionally or outside a component; move it to the component's top level.",
			}
		},
	}
}

func typeError() *Rule {
	return &Rule{
		ID:          "type_error",
		Priority:    75,
		Description: "A value used with an incompatible type",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\w+ is not a function`),
			regexp.MustCompile(`(?i)is not iterable`),
			regexp.MustCompile(`(?i)typeerror`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "check_value_shape",
				Message: "A value does not have the expected shape; validate the API payload feeding it.",
			}
		},
	}
}

func methodNotAllowed() *Rule {
	return &Rule{
		ID:          "method_not_allowed",
		Priority:    70,
		Description: "An API route rejected the HTTP method",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)method not allowed`),
			regexp.MustCompile(`\b405\b`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "register_http_method",
				Message: "The route handler does not accept the method used; register the handler for it.",
			}
		},
	}
}

func unresolvedImport() *Rule {
	return &Rule{
		ID:          "unresolved_import",
		Priority:    65,
		Description: "An import path does not resolve to a file",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)failed to resolve import`),
			regexp.MustCompile(`(?i)could not resolve "`),
			regexp.MustCompile(`(?i)unresolved import`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success:         true,
				Action:          "fix_import_path",
				Message:         "An import points at a missing file; correct the path or restore the file.",
				RequiresRestart: true,
			}
		},
	}
}

func contextMisuse() *Rule {
	return &Rule{
		ID:          "context_misuse",
		Priority:    60,
		Description: "A framework context consumed outside its provider",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)must be used within a? ?\w*provider`),
			regexp.MustCompile(`(?i)useContext.*outside`),
			regexp.MustCompile(`(?i)could not find .* context`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: true,
				Action:  "wrap_with_provider",
				Message: "A component consumes a context without its provider; wrap the tree with the provider.",
			}
		},
	}
}

// catchAll is the universal fallback. Priority 1 and a match-everything
// pattern guarantee every error produces a result, flagged for manual review.
func catchAll() *Rule {
	return &Rule{
		ID:          "manual_review",
		Priority:    1,
		Description: "Unclassified error requiring human attention",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?s).`),
		},
		Apply: func(event ErrorEvent) schemas.FixResult {
			return schemas.FixResult{
				Success: false,
				Action:  "manual_review",
				Message: "No automated remediation matched this error; review it manually.",
				Data:    map[string]any{"message": event.Message},
			}
		},
	}
}
