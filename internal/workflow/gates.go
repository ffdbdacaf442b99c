package workflow

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/capstanhq/capstan/internal/config"
)

// GateResult represents the outcome of one quality gate.
type GateResult struct {
	Name     string
	Stage    string
	Passed   bool
	Output   string
	Duration time.Duration
	Err      error
}

// GateProvider runs quality gates for a stage. Pluggable so tests can
// substitute canned results.
type GateProvider interface {
	// Run executes every gate assigned to the given stage.
	// Returns the results and whether all gates passed.
	Run(ctx context.Context, stage string) ([]*GateResult, bool)
}

// GateRunner executes configured gate commands in a working directory.
type GateRunner struct {
	workingDir string
	gates      []config.GateCommand
	parallel   bool
}

// NewGateRunner creates a gate runner for the given configuration.
func NewGateRunner(workingDir string, gates []config.GateCommand, parallel bool) *GateRunner {
	if workingDir == "" {
		workingDir = "."
	}
	return &GateRunner{
		workingDir: workingDir,
		gates:      gates,
		parallel:   parallel,
	}
}

// Run executes all gates for a stage. Every gate runs even when an
// earlier one fails so the caller gets the full picture.
func (r *GateRunner) Run(ctx context.Context, stage string) ([]*GateResult, bool) {
	selected := make([]config.GateCommand, 0, len(r.gates))
	for _, g := range r.gates {
		gateStage := g.Stage
		if gateStage == "" {
			gateStage = "test"
		}
		if gateStage == stage {
			selected = append(selected, g)
		}
	}

	if r.parallel {
		return r.runParallel(ctx, stage, selected)
	}

	var results []*GateResult
	allPassed := true
	for _, gate := range selected {
		result := r.runGate(ctx, stage, gate)
		results = append(results, result)
		if !result.Passed {
			allPassed = false
		}
	}
	return results, allPassed
}

// runParallel runs the stage's gates concurrently. Results keep the
// configured gate order regardless of completion order.
func (r *GateRunner) runParallel(ctx context.Context, stage string, gates []config.GateCommand) ([]*GateResult, bool) {
	results := make([]*GateResult, len(gates))
	var mu sync.Mutex
	allPassed := true

	g, gctx := errgroup.WithContext(ctx)
	for i, gate := range gates {
		i, gate := i, gate
		g.Go(func() error {
			result := r.runGate(gctx, stage, gate)
			mu.Lock()
			results[i] = result
			if !result.Passed {
				allPassed = false
			}
			mu.Unlock()
			// Gate failures are results, not errors: let the rest finish.
			return nil
		})
	}
	_ = g.Wait()

	return results, allPassed
}

// runGate executes one gate command.
func (r *GateRunner) runGate(ctx context.Context, stage string, gate config.GateCommand) *GateResult {
	result := &GateResult{Name: gate.Name, Stage: stage}

	start := time.Now()
	cmd := exec.CommandContext(ctx, gate.Command, gate.Args...)
	cmd.Dir = r.workingDir

	output, err := cmd.CombinedOutput()
	result.Output = string(output)
	result.Duration = time.Since(start)

	if err != nil {
		result.Passed = false
		result.Err = err
		return result
	}

	result.Passed = true
	return result
}
