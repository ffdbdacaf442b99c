// Package planning validates plans before they can be approved for
// execution. Validators are pluggable and run in priority order.
package planning

import (
	"context"
	"sort"

	"github.com/capstanhq/capstan/internal/types"
)

// Validator is the interface for pluggable plan validation.
type Validator interface {
	// Name returns a unique identifier for this validator.
	Name() string

	// Priority determines execution order (lower values run first).
	// Suggested priorities:
	//   1-9:   Critical structural checks (ordering, cycle detection)
	//   10-99: Content quality checks (step structure, titles)
	Priority() int

	// Validate checks the plan and returns any errors or warnings found.
	Validate(ctx context.Context, plan *types.Plan, vctx *ValidationContext) ValidationResult
}

// ValidationContext provides surrounding state to validators.
type ValidationContext struct {
	// Intent is the plan's parent intent, nil when it could not be loaded.
	Intent *types.Intent

	// ExistingPlans are prior plan iterations for the same intent.
	ExistingPlans []*types.Plan
}

// ValidationResult contains errors and warnings from validation.
type ValidationResult struct {
	// Errors are blocking issues that must be fixed before approval.
	Errors []ValidationError

	// Warnings are recommended fixes that can be overridden with --force.
	Warnings []ValidationWarning
}

// ValidationError represents a blocking validation failure.
type ValidationError struct {
	// Code is a machine-readable error identifier (e.g., "STEP_CYCLE_DETECTED").
	Code string

	// Message is a human-readable error description.
	Message string

	// Location indicates where in the plan the error occurs (e.g., "step-2").
	Location string

	// Details provides additional context as key-value pairs.
	Details map[string]interface{}
}

// ValidationWarning represents a recommended fix that doesn't block approval.
type ValidationWarning struct {
	Code     string
	Message  string
	Location string
	Severity WarningSeverity
}

// WarningSeverity indicates the importance of a warning.
type WarningSeverity int

const (
	WarningSeverityLow WarningSeverity = iota
	WarningSeverityMedium
	WarningSeverityHigh
)

// String returns the string representation of the severity.
func (s WarningSeverity) String() string {
	switch s {
	case WarningSeverityLow:
		return "LOW"
	case WarningSeverityMedium:
		return "MEDIUM"
	case WarningSeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ValidatorRegistry manages a collection of validators and orchestrates validation.
type ValidatorRegistry struct {
	validators []Validator
}

// NewValidatorRegistry creates a new empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make([]Validator, 0),
	}
}

// DefaultRegistry returns a registry with the standard validators.
func DefaultRegistry() *ValidatorRegistry {
	r := NewValidatorRegistry()
	r.Register(&OrderingValidator{})
	r.Register(&CycleDetector{})
	r.Register(&StepValidator{})
	return r
}

// Register adds a validator to the registry.
// Validators are automatically sorted by priority after registration.
func (r *ValidatorRegistry) Register(v Validator) {
	r.validators = append(r.validators, v)
	sort.Slice(r.validators, func(i, j int) bool {
		return r.validators[i].Priority() < r.validators[j].Priority()
	})
}

// ValidateAll runs all registered validators against the plan.
// Validators run in priority order (lowest first).
// All validators run even if earlier ones fail (collect all issues).
func (r *ValidatorRegistry) ValidateAll(ctx context.Context, plan *types.Plan, vctx *ValidationContext) ValidationResult {
	result := ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]ValidationWarning, 0),
	}

	for _, v := range r.validators {
		vr := v.Validate(ctx, plan, vctx)
		result.Errors = append(result.Errors, vr.Errors...)
		result.Warnings = append(result.Warnings, vr.Warnings...)
	}

	return result
}

// HasErrors returns true if the validation result contains any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the validation result contains any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// IsValid returns true if there are no errors (warnings are acceptable).
func (r ValidationResult) IsValid() bool {
	return !r.HasErrors()
}
