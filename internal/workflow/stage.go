// Package workflow drives a task through the five-step change
// workflow: analyze and plan, implement, test, lint, commit. Each run
// is a state machine; quality gates guard the test and lint stages.
package workflow

// Stage represents the state of a workflow run
type Stage string

const (
	StagePending      Stage = "pending"      // Initial state (not yet started)
	StagePlanning     Stage = "planning"     // Verifying the task and its plan
	StageImplementing Stage = "implementing" // Work in progress on the branch
	StageTesting      Stage = "testing"      // Running test-stage gates
	StageLinting      Stage = "linting"      // Running lint-stage gates and message checks
	StageCommitting   Stage = "committing"   // Committing changes
	StageCompleted    Stage = "completed"    // Successfully completed
	StageFailed       Stage = "failed"       // Failed (terminal state)
)

// IsValid checks if the stage value is valid
func (s Stage) IsValid() bool {
	switch s {
	case StagePending, StagePlanning, StageImplementing, StageTesting,
		StageLinting, StageCommitting, StageCompleted, StageFailed:
		return true
	}
	return false
}

// ValidTransitions defines the valid stage transitions for a workflow run.
//
// Stage diagram:
//
//	pending → planning → implementing → testing → linting → committing → completed
//	    ↓        ↓            ↓            ↓         ↓           ↓
//	  failed   failed       failed       failed    failed      failed
func (s Stage) ValidTransitions() []Stage {
	switch s {
	case StagePending:
		return []Stage{StagePlanning, StageFailed}
	case StagePlanning:
		return []Stage{StageImplementing, StageFailed}
	case StageImplementing:
		return []Stage{StageTesting, StageFailed}
	case StageTesting:
		return []Stage{StageLinting, StageFailed}
	case StageLinting:
		return []Stage{StageCommitting, StageFailed}
	case StageCommitting:
		return []Stage{StageCompleted, StageFailed}
	case StageCompleted:
		return []Stage{} // Terminal state
	case StageFailed:
		return []Stage{} // Terminal state
	default:
		return []Stage{}
	}
}

// CanTransitionTo checks if a transition from this stage to the target is valid
func (s Stage) CanTransitionTo(target Stage) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage is final.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}
