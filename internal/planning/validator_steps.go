package planning

import (
	"context"
	"fmt"
	"strings"

	"github.com/capstanhq/capstan/internal/types"
)

// maxRecommendedSteps is the step count above which a plan is probably
// covering more than one logical change.
const maxRecommendedSteps = 12

// StepValidator checks step structure: indices must be 1-based and
// strictly sequential, titles present, and dependencies must point at
// earlier steps only.
type StepValidator struct{}

// Name returns the validator identifier.
func (v *StepValidator) Name() string {
	return "steps"
}

// Priority returns 10 (content quality check).
func (v *StepValidator) Priority() int {
	return 10
}

// Validate checks the plan's step list.
func (v *StepValidator) Validate(ctx context.Context, plan *types.Plan, vctx *ValidationContext) ValidationResult {
	result := ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]ValidationWarning, 0),
	}

	if len(plan.Steps) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "NO_STEPS",
			Message:  "plan has no steps",
			Location: "steps",
		})
		return result
	}

	for i, step := range plan.Steps {
		loc := fmt.Sprintf("step-%d", step.Index)

		if step.Index != i+1 {
			result.Errors = append(result.Errors, ValidationError{
				Code:     "NON_SEQUENTIAL_STEPS",
				Message:  fmt.Sprintf("step at position %d has index %d; indices must be 1-based and sequential", i+1, step.Index),
				Location: loc,
			})
		}

		if strings.TrimSpace(step.Title) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Code:     "UNTITLED_STEP",
				Message:  fmt.Sprintf("step %d has no title", step.Index),
				Location: loc,
			})
		}

		for _, dep := range step.DependsOn {
			switch {
			case dep == step.Index:
				result.Errors = append(result.Errors, ValidationError{
					Code:     "SELF_DEPENDENCY",
					Message:  fmt.Sprintf("step %d depends on itself", step.Index),
					Location: loc,
				})
			case dep < 1 || dep > len(plan.Steps):
				result.Errors = append(result.Errors, ValidationError{
					Code:     "DANGLING_DEPENDENCY",
					Message:  fmt.Sprintf("step %d depends on nonexistent step %d", step.Index, dep),
					Location: loc,
				})
			case dep > step.Index:
				result.Errors = append(result.Errors, ValidationError{
					Code:     "FORWARD_DEPENDENCY",
					Message:  fmt.Sprintf("step %d depends on later step %d; dependencies must point backward", step.Index, dep),
					Location: loc,
				})
			}
		}
	}

	if len(plan.Steps) > maxRecommendedSteps {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Code:     "PLAN_TOO_LARGE",
			Message:  fmt.Sprintf("plan has %d steps; consider splitting into separate intents", len(plan.Steps)),
			Location: "steps",
			Severity: WarningSeverityMedium,
		})
	}

	return result
}
