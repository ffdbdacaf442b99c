package planning

import (
	"context"
	"fmt"

	"github.com/capstanhq/capstan/internal/types"
)

// OrderingValidator enforces the planning hierarchy: a plan must follow
// from a recorded intent that is still open for work. Intent comes
// first, then plan, then tasks.
type OrderingValidator struct{}

// Name returns the validator identifier.
func (v *OrderingValidator) Name() string {
	return "ordering"
}

// Priority returns 1 (runs first, before structural checks).
func (v *OrderingValidator) Priority() int {
	return 1
}

// Validate checks that the plan's intent exists and can still accept plans.
func (v *OrderingValidator) Validate(ctx context.Context, plan *types.Plan, vctx *ValidationContext) ValidationResult {
	result := ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]ValidationWarning, 0),
	}

	if plan.IntentID == "" {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "MISSING_INTENT",
			Message:  "plan has no intent: record the intent before planning",
			Location: "intent_id",
		})
		return result
	}

	if vctx == nil || vctx.Intent == nil {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "INTENT_NOT_FOUND",
			Message:  fmt.Sprintf("intent %s does not exist", plan.IntentID),
			Location: "intent_id",
		})
		return result
	}

	intent := vctx.Intent
	if intent.ID != plan.IntentID {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "INTENT_MISMATCH",
			Message:  fmt.Sprintf("plan references intent %s but context carries %s", plan.IntentID, intent.ID),
			Location: "intent_id",
		})
		return result
	}

	if intent.Status.Terminal() {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "INTENT_CLOSED",
			Message:  fmt.Sprintf("intent %s is %s and cannot accept new plans", intent.ID, intent.Status),
			Location: "intent_id",
			Details: map[string]interface{}{
				"intent_status": string(intent.Status),
			},
		})
	}

	// Repeated draft iterations suggest the intent itself needs rework.
	if len(vctx.ExistingPlans) >= 3 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Code:     "MANY_ITERATIONS",
			Message:  fmt.Sprintf("intent %s already has %d plan iterations; consider revising the intent", intent.ID, len(vctx.ExistingPlans)),
			Location: "intent_id",
			Severity: WarningSeverityMedium,
		})
	}

	return result
}
