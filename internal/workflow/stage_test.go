package workflow

import "testing"

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from    Stage
		to      Stage
		allowed bool
	}{
		{StagePending, StagePlanning, true},
		{StagePlanning, StageImplementing, true},
		{StageImplementing, StageTesting, true},
		{StageTesting, StageLinting, true},
		{StageLinting, StageCommitting, true},
		{StageCommitting, StageCompleted, true},
		{StagePending, StageFailed, true},
		{StageTesting, StageFailed, true},
		{StageCommitting, StageFailed, true},

		{StagePending, StageTesting, false},
		{StageTesting, StageCommitting, false},
		{StageCompleted, StagePlanning, false},
		{StageFailed, StagePending, false},
		{StageLinting, StageTesting, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	if !StageCompleted.Terminal() || !StageFailed.Terminal() {
		t.Error("completed and failed are terminal")
	}
	if StagePending.Terminal() || StageTesting.Terminal() {
		t.Error("intermediate stages are not terminal")
	}
}

func TestStageIsValid(t *testing.T) {
	for _, s := range []Stage{StagePending, StagePlanning, StageImplementing,
		StageTesting, StageLinting, StageCommitting, StageCompleted, StageFailed} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Stage("bogus").IsValid() {
		t.Error("bogus should not be valid")
	}
}
