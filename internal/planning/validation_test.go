package planning

import (
	"context"
	"testing"

	"github.com/capstanhq/capstan/internal/types"
)

func mkPlan(steps ...types.Step) *types.Plan {
	return &types.Plan{
		ID:       "cap-2",
		IntentID: "cap-1",
		Title:    "test plan",
		Steps:    steps,
		Status:   types.PlanStatusDraft,
	}
}

func mkIntent(status types.IntentStatus) *types.Intent {
	return &types.Intent{
		ID:     "cap-1",
		Prompt: "test intent",
		Status: status,
	}
}

func hasError(result ValidationResult, code string) bool {
	for _, e := range result.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func hasWarning(result ValidationResult, code string) bool {
	for _, w := range result.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestOrderingValidator(t *testing.T) {
	ctx := context.Background()
	v := &OrderingValidator{}

	t.Run("missing intent id", func(t *testing.T) {
		plan := mkPlan(types.Step{Index: 1, Title: "a"})
		plan.IntentID = ""
		result := v.Validate(ctx, plan, &ValidationContext{})
		if !hasError(result, "MISSING_INTENT") {
			t.Errorf("expected MISSING_INTENT, got %+v", result.Errors)
		}
	})

	t.Run("intent not found", func(t *testing.T) {
		result := v.Validate(ctx, mkPlan(), &ValidationContext{Intent: nil})
		if !hasError(result, "INTENT_NOT_FOUND") {
			t.Errorf("expected INTENT_NOT_FOUND, got %+v", result.Errors)
		}
	})

	t.Run("closed intent rejects plans", func(t *testing.T) {
		vctx := &ValidationContext{Intent: mkIntent(types.IntentStatusCompleted)}
		result := v.Validate(ctx, mkPlan(), vctx)
		if !hasError(result, "INTENT_CLOSED") {
			t.Errorf("expected INTENT_CLOSED, got %+v", result.Errors)
		}
	})

	t.Run("active intent passes", func(t *testing.T) {
		vctx := &ValidationContext{Intent: mkIntent(types.IntentStatusActive)}
		result := v.Validate(ctx, mkPlan(), vctx)
		if result.HasErrors() {
			t.Errorf("expected no errors, got %+v", result.Errors)
		}
	})

	t.Run("many iterations warns", func(t *testing.T) {
		vctx := &ValidationContext{
			Intent:        mkIntent(types.IntentStatusActive),
			ExistingPlans: []*types.Plan{mkPlan(), mkPlan(), mkPlan()},
		}
		result := v.Validate(ctx, mkPlan(), vctx)
		if !hasWarning(result, "MANY_ITERATIONS") {
			t.Errorf("expected MANY_ITERATIONS warning, got %+v", result.Warnings)
		}
	})
}

func TestCycleDetector(t *testing.T) {
	ctx := context.Background()
	d := &CycleDetector{}
	vctx := &ValidationContext{Intent: mkIntent(types.IntentStatusActive)}

	t.Run("acyclic plan passes", func(t *testing.T) {
		plan := mkPlan(
			types.Step{Index: 1, Title: "a"},
			types.Step{Index: 2, Title: "b", DependsOn: []int{1}},
			types.Step{Index: 3, Title: "c", DependsOn: []int{1, 2}},
		)
		result := d.Validate(ctx, plan, vctx)
		if result.HasErrors() {
			t.Errorf("expected no errors, got %+v", result.Errors)
		}
	})

	t.Run("cycle is detected", func(t *testing.T) {
		plan := mkPlan(
			types.Step{Index: 1, Title: "a", DependsOn: []int{3}},
			types.Step{Index: 2, Title: "b", DependsOn: []int{1}},
			types.Step{Index: 3, Title: "c", DependsOn: []int{2}},
		)
		result := d.Validate(ctx, plan, vctx)
		if !hasError(result, "STEP_CYCLE_DETECTED") {
			t.Errorf("expected STEP_CYCLE_DETECTED, got %+v", result.Errors)
		}
	})

	t.Run("self cycle is detected", func(t *testing.T) {
		plan := mkPlan(types.Step{Index: 1, Title: "a", DependsOn: []int{1}})
		result := d.Validate(ctx, plan, vctx)
		if !hasError(result, "STEP_CYCLE_DETECTED") {
			t.Errorf("expected STEP_CYCLE_DETECTED, got %+v", result.Errors)
		}
	})

	t.Run("dangling reference is not a cycle", func(t *testing.T) {
		plan := mkPlan(types.Step{Index: 1, Title: "a", DependsOn: []int{9}})
		result := d.Validate(ctx, plan, vctx)
		if result.HasErrors() {
			t.Errorf("dangling deps belong to the step validator, got %+v", result.Errors)
		}
	})
}

func TestStepValidator(t *testing.T) {
	ctx := context.Background()
	v := &StepValidator{}
	vctx := &ValidationContext{Intent: mkIntent(types.IntentStatusActive)}

	t.Run("empty plan", func(t *testing.T) {
		result := v.Validate(ctx, mkPlan(), vctx)
		if !hasError(result, "NO_STEPS") {
			t.Errorf("expected NO_STEPS, got %+v", result.Errors)
		}
	})

	t.Run("non-sequential indices", func(t *testing.T) {
		plan := mkPlan(
			types.Step{Index: 1, Title: "a"},
			types.Step{Index: 3, Title: "b"},
		)
		result := v.Validate(ctx, plan, vctx)
		if !hasError(result, "NON_SEQUENTIAL_STEPS") {
			t.Errorf("expected NON_SEQUENTIAL_STEPS, got %+v", result.Errors)
		}
	})

	t.Run("untitled step", func(t *testing.T) {
		plan := mkPlan(types.Step{Index: 1, Title: "   "})
		result := v.Validate(ctx, plan, vctx)
		if !hasError(result, "UNTITLED_STEP") {
			t.Errorf("expected UNTITLED_STEP, got %+v", result.Errors)
		}
	})

	t.Run("forward dependency", func(t *testing.T) {
		plan := mkPlan(
			types.Step{Index: 1, Title: "a", DependsOn: []int{2}},
			types.Step{Index: 2, Title: "b"},
		)
		result := v.Validate(ctx, plan, vctx)
		if !hasError(result, "FORWARD_DEPENDENCY") {
			t.Errorf("expected FORWARD_DEPENDENCY, got %+v", result.Errors)
		}
	})

	t.Run("dangling dependency", func(t *testing.T) {
		plan := mkPlan(types.Step{Index: 1, Title: "a", DependsOn: []int{7}})
		result := v.Validate(ctx, plan, vctx)
		if !hasError(result, "DANGLING_DEPENDENCY") {
			t.Errorf("expected DANGLING_DEPENDENCY, got %+v", result.Errors)
		}
	})

	t.Run("oversized plan warns", func(t *testing.T) {
		var steps []types.Step
		for i := 1; i <= maxRecommendedSteps+1; i++ {
			steps = append(steps, types.Step{Index: i, Title: "step"})
		}
		result := v.Validate(ctx, mkPlan(steps...), vctx)
		if !hasWarning(result, "PLAN_TOO_LARGE") {
			t.Errorf("expected PLAN_TOO_LARGE warning, got %+v", result.Warnings)
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	ctx := context.Background()
	registry := DefaultRegistry()

	plan := mkPlan(
		types.Step{Index: 1, Title: "extract helper"},
		types.Step{Index: 2, Title: "wire helper in", DependsOn: []int{1}},
	)
	vctx := &ValidationContext{Intent: mkIntent(types.IntentStatusActive)}

	result := registry.ValidateAll(ctx, plan, vctx)
	if !result.IsValid() {
		t.Errorf("expected valid plan, got errors: %+v", result.Errors)
	}

	// all validators run: a broken plan collects errors from several
	broken := mkPlan(types.Step{Index: 2, Title: "", DependsOn: []int{2}})
	broken.IntentID = ""
	result = registry.ValidateAll(ctx, broken, &ValidationContext{})
	if len(result.Errors) < 3 {
		t.Errorf("expected errors from multiple validators, got %+v", result.Errors)
	}
}
