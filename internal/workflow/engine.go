package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/policy"
	"github.com/capstanhq/capstan/internal/storage"
	"github.com/capstanhq/capstan/internal/types"
)

// Run records one pass of a task through the workflow.
type Run struct {
	ID          string
	TaskID      string
	Stage       Stage
	StartedAt   time.Time
	FinishedAt  time.Time
	CommitHash  string
	GateResults []*GateResult
	Error       string
}

// Config holds workflow engine configuration.
type Config struct {
	Store    storage.Storage
	Git      git.Operations
	Gates    GateProvider
	Checker  *policy.Checker
	Rules    commit.Rules
	RepoPath string
	Actor    string
}

// Engine drives tasks through the workflow stages.
type Engine struct {
	store    storage.Storage
	git      git.Operations
	gates    GateProvider
	checker  *policy.Checker
	rules    commit.Rules
	repoPath string
	actor    string
}

// NewEngine creates a workflow engine.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Git == nil {
		return nil, fmt.Errorf("git operations are required")
	}
	if cfg.Gates == nil {
		return nil, fmt.Errorf("gate provider is required")
	}
	if cfg.Checker == nil {
		return nil, fmt.Errorf("policy checker is required")
	}
	repoPath := cfg.RepoPath
	if repoPath == "" {
		repoPath = "."
	}

	return &Engine{
		store:    cfg.Store,
		git:      cfg.Git,
		gates:    cfg.Gates,
		checker:  cfg.Checker,
		rules:    cfg.Rules,
		repoPath: repoPath,
		actor:    cfg.Actor,
	}, nil
}

// Execute runs a task through the full workflow: verify the task and
// its plan, confirm work exists on a feature branch, run test gates,
// run lint gates and the commit message check, then commit. The run
// stops at the first failing stage.
func (e *Engine) Execute(ctx context.Context, taskID, message string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Stage:     StagePending,
		StartedAt: time.Now(),
	}

	task, err := e.planStage(ctx, run, taskID)
	if err != nil {
		return e.fail(ctx, run, err)
	}

	if err := e.implementStage(ctx, run); err != nil {
		return e.fail(ctx, run, err)
	}

	if err := e.gateStage(ctx, run, task, StageTesting, "test"); err != nil {
		return e.fail(ctx, run, err)
	}

	if err := e.lintStage(ctx, run, task, message); err != nil {
		return e.fail(ctx, run, err)
	}

	if err := e.commitStage(ctx, run, task, message); err != nil {
		return e.fail(ctx, run, err)
	}

	e.advance(run, StageCompleted)
	run.FinishedAt = time.Now()
	return run, nil
}

// advance moves the run to the next stage, panicking on a transition
// the state machine forbids. Stage sequencing is internal to Execute,
// so an invalid transition is a programming error.
func (e *Engine) advance(run *Run, next Stage) {
	if !run.Stage.CanTransitionTo(next) {
		panic(fmt.Sprintf("invalid stage transition %s -> %s", run.Stage, next))
	}
	run.Stage = next
}

func (e *Engine) fail(ctx context.Context, run *Run, cause error) (*Run, error) {
	run.Stage = StageFailed
	run.Error = cause.Error()
	run.FinishedAt = time.Now()

	comment := fmt.Sprintf("workflow run %s failed: %v", run.ID, cause)
	if err := e.store.AddComment(ctx, run.TaskID, e.actor, comment); err != nil {
		// The run outcome matters more than the audit comment.
		fmt.Printf("warning: failed to record run failure: %v\n", err)
	}

	return run, cause
}

// planStage verifies the task exists, is open for work, and that any
// linked plan has been approved. It also confirms work is happening on
// a feature branch.
func (e *Engine) planStage(ctx context.Context, run *Run, taskID string) (*types.Task, error) {
	e.advance(run, StagePlanning)

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if task.Status == types.TaskStatusClosed {
		return nil, fmt.Errorf("task %s is already closed", taskID)
	}
	if task.Status == types.TaskStatusBlocked {
		return nil, fmt.Errorf("task %s is blocked", taskID)
	}

	if task.PlanID != "" {
		plan, err := e.store.GetPlan(ctx, task.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, fmt.Errorf("plan %s not found", task.PlanID)
		}
		if plan.Status != types.PlanStatusApproved {
			return nil, fmt.Errorf("plan %s is %s; approve it before executing tasks", plan.ID, plan.Status)
		}
	}

	branch, err := e.checker.CheckWorkingBranch(ctx, e.repoPath)
	if err != nil {
		return nil, err
	}
	if !branch.OK() {
		return nil, fmt.Errorf("%s", branch.Errors[0].Message)
	}

	if task.Status == types.TaskStatusOpen {
		updates := map[string]interface{}{"status": string(types.TaskStatusInProgress)}
		if err := e.store.UpdateTask(ctx, taskID, updates, e.actor); err != nil {
			return nil, fmt.Errorf("failed to mark task in progress: %w", err)
		}
	}

	return task, nil
}

// implementStage confirms there is work in the tree to carry forward.
func (e *Engine) implementStage(ctx context.Context, run *Run) error {
	e.advance(run, StageImplementing)

	dirty, err := e.git.HasUncommittedChanges(ctx, e.repoPath)
	if err != nil {
		return err
	}
	if !dirty {
		return fmt.Errorf("working tree is clean: nothing to test or commit")
	}
	return nil
}

// gateStage runs the gates assigned to a workflow stage. On failure it
// files a blocking task for each failed gate and marks the original
// task blocked.
func (e *Engine) gateStage(ctx context.Context, run *Run, task *types.Task, stage Stage, gateStage string) error {
	e.advance(run, stage)

	results, allPassed := e.gates.Run(ctx, gateStage)
	run.GateResults = append(run.GateResults, results...)

	for _, result := range results {
		if err := e.store.AddComment(ctx, task.ID, e.actor, formatGateResult(result)); err != nil {
			fmt.Printf("warning: failed to log gate result: %v\n", err)
		}
	}

	if allPassed {
		return nil
	}

	var created []string
	for _, result := range results {
		if result.Passed {
			continue
		}
		blockerID, err := e.createBlockingTask(ctx, task, result)
		if err != nil {
			return err
		}
		created = append(created, blockerID)
	}

	updates := map[string]interface{}{"status": string(types.TaskStatusBlocked)}
	if err := e.store.UpdateTask(ctx, task.ID, updates, e.actor); err != nil {
		return fmt.Errorf("failed to mark task blocked: %w", err)
	}

	return fmt.Errorf("%s gates failed; created blocking task(s): %s",
		gateStage, strings.Join(created, ", "))
}

// lintStage runs lint gates and checks the commit message.
func (e *Engine) lintStage(ctx context.Context, run *Run, task *types.Task, message string) error {
	// Gate failures take the blocking-task path; a malformed message
	// just stops the run.
	if err := e.gateStage(ctx, run, task, StageLinting, "lint"); err != nil {
		return err
	}

	if violations := commit.Lint(message, e.rules); len(violations) > 0 {
		lines := make([]string, 0, len(violations))
		for _, v := range violations {
			lines = append(lines, fmt.Sprintf("%s: %s", v.Code, v.Message))
		}
		return fmt.Errorf("commit message rejected:\n  %s", strings.Join(lines, "\n  "))
	}

	return nil
}

// commitStage commits the working tree and closes the task.
func (e *Engine) commitStage(ctx context.Context, run *Run, task *types.Task, message string) error {
	e.advance(run, StageCommitting)

	hash, err := e.git.CommitChanges(ctx, e.repoPath, git.CommitOptions{
		Message: message,
		AddAll:  true,
	})
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	run.CommitHash = hash

	reason := fmt.Sprintf("completed in run %s (commit %.12s)", run.ID, hash)
	if err := e.store.CloseTask(ctx, task.ID, reason, e.actor); err != nil {
		return fmt.Errorf("failed to close task: %w", err)
	}

	return nil
}

// createBlockingTask files a task for a failed gate, in the same
// intent as the original work.
func (e *Engine) createBlockingTask(ctx context.Context, original *types.Task, result *GateResult) (string, error) {
	output := result.Output
	if len(output) > 1000 {
		output = output[:1000] + "\n... (truncated)"
	}

	blocker := &types.Task{
		Title: fmt.Sprintf("Gate failure: %s for %s", result.Name, original.ID),
		Description: fmt.Sprintf("The %s gate failed while running %s.\n\nError: %v\n\nOutput:\n```\n%s\n```",
			result.Name, original.ID, result.Err, output),
		Status:    types.TaskStatusOpen,
		Priority:  original.Priority,
		IntentID:  original.IntentID,
		CreatedBy: original.CreatedBy,
	}

	if err := e.store.CreateTask(ctx, blocker, e.actor); err != nil {
		return "", fmt.Errorf("failed to create blocking task: %w", err)
	}

	return blocker.ID, nil
}

// formatGateResult formats a gate result for the audit trail.
func formatGateResult(result *GateResult) string {
	status := "PASSED"
	if !result.Passed {
		status = "FAILED"
	}

	output := result.Output
	if len(output) > 500 {
		output = output[:500] + "\n... (truncated, see blocking task for full output)"
	}

	comment := fmt.Sprintf("gate %s (%s stage): %s in %s", result.Name, result.Stage, status, result.Duration.Round(time.Millisecond))
	if !result.Passed && result.Err != nil {
		comment += fmt.Sprintf("\nerror: %v", result.Err)
	}
	if output != "" {
		comment += fmt.Sprintf("\noutput:\n%s", output)
	}
	return comment
}
