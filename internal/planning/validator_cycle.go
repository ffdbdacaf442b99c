package planning

import (
	"context"
	"fmt"

	"github.com/capstanhq/capstan/internal/types"
)

// CycleDetector validates that step dependencies form a directed acyclic
// graph. Circular dependencies would make the plan unexecutable.
type CycleDetector struct{}

// Name returns the validator identifier.
func (d *CycleDetector) Name() string {
	return "cycle_detector"
}

// Priority returns 2 (critical structural check, after ordering).
func (d *CycleDetector) Priority() int {
	return 2
}

// Validate checks for circular dependencies among plan steps.
func (d *CycleDetector) Validate(ctx context.Context, plan *types.Plan, vctx *ValidationContext) ValidationResult {
	result := ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]ValidationWarning, 0),
	}

	if cycle := detectStepCycle(plan.Steps); len(cycle) > 0 {
		result.Errors = append(result.Errors, ValidationError{
			Code:     "STEP_CYCLE_DETECTED",
			Message:  fmt.Sprintf("circular step dependency detected: %s", formatCycle(cycle)),
			Location: "steps",
			Details: map[string]interface{}{
				"cycle": cycle,
			},
		})
	}

	return result
}

// detectStepCycle uses DFS to detect cycles in step dependencies.
// Returns the cycle path if found, nil otherwise.
func detectStepCycle(steps []types.Step) []int {
	graph := make(map[int][]int)
	for _, step := range steps {
		graph[step.Index] = step.DependsOn
	}

	visited := make(map[int]bool)
	recStack := make(map[int]bool)
	var path []int

	var dfs func(int) bool
	dfs = func(node int) bool {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, neighbor := range graph[node] {
			if _, known := graph[neighbor]; !known {
				// Dangling references are reported by the step validator.
				continue
			}
			if !visited[neighbor] {
				if dfs(neighbor) {
					return true
				}
			} else if recStack[neighbor] {
				// Found a cycle - extract the cycle path
				cycleStart := 0
				for i, p := range path {
					if p == neighbor {
						cycleStart = i
						break
					}
				}
				path = append(path[cycleStart:], neighbor) // Close the cycle
				return true
			}
		}

		recStack[node] = false
		path = path[:len(path)-1] // Backtrack
		return false
	}

	for _, step := range steps {
		if !visited[step.Index] {
			path = make([]int, 0)
			if dfs(step.Index) {
				return path
			}
		}
	}

	return nil
}

func formatCycle(cycle []int) string {
	out := ""
	for i, n := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += fmt.Sprintf("step-%d", n)
	}
	return out
}
