package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/policy"
	"github.com/capstanhq/capstan/internal/types"
)

// fakeStore is an in-memory storage.Storage for engine tests.
type fakeStore struct {
	tasks    map[string]*types.Task
	plans    map[string]*types.Plan
	intents  map[string]*types.Intent
	comments []string
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:   make(map[string]*types.Task),
		plans:   make(map[string]*types.Plan),
		intents: make(map[string]*types.Intent),
		nextID:  100,
	}
}

func (s *fakeStore) CreateIntent(ctx context.Context, intent *types.Intent, actor string) error {
	s.intents[intent.ID] = intent
	return nil
}

func (s *fakeStore) GetIntent(ctx context.Context, id string) (*types.Intent, error) {
	return s.intents[id], nil
}

func (s *fakeStore) ListIntents(ctx context.Context, status *types.IntentStatus, limit int) ([]*types.Intent, error) {
	return nil, nil
}

func (s *fakeStore) UpdateIntentStatus(ctx context.Context, id string, status types.IntentStatus, actor string) error {
	return nil
}

func (s *fakeStore) CloseIntent(ctx context.Context, id string, status types.IntentStatus, reason, actor string) error {
	return nil
}

func (s *fakeStore) CreatePlan(ctx context.Context, plan *types.Plan, actor string) error {
	s.plans[plan.ID] = plan
	return nil
}

func (s *fakeStore) GetPlan(ctx context.Context, id string) (*types.Plan, error) {
	return s.plans[id], nil
}

func (s *fakeStore) GetPlansByIntent(ctx context.Context, intentID string) ([]*types.Plan, error) {
	return nil, nil
}

func (s *fakeStore) UpdatePlanStatus(ctx context.Context, id string, status types.PlanStatus, actor string) error {
	if p, ok := s.plans[id]; ok {
		p.Status = status
	}
	return nil
}

func (s *fakeStore) CreateTask(ctx context.Context, task *types.Task, actor string) error {
	s.nextID++
	task.ID = fmt.Sprintf("cap-%d", s.nextID)
	s.tasks[task.ID] = task
	return nil
}

func (s *fakeStore) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return s.tasks[id], nil
}

func (s *fakeStore) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	return nil, nil
}

func (s *fakeStore) UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if status, ok := updates["status"].(string); ok {
		task.Status = types.TaskStatus(status)
	}
	return nil
}

func (s *fakeStore) CloseTask(ctx context.Context, id, reason, actor string) error {
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	task.Status = types.TaskStatusClosed
	return nil
}

func (s *fakeStore) AddComment(ctx context.Context, objectID, actor, comment string) error {
	s.comments = append(s.comments, comment)
	return nil
}

func (s *fakeStore) GetEvents(ctx context.Context, objectID string, limit int) ([]*types.Event, error) {
	return nil, nil
}

func (s *fakeStore) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	return &types.Statistics{}, nil
}

func (s *fakeStore) GetConfig(ctx context.Context, key string) (string, error) { return "", nil }
func (s *fakeStore) SetConfig(ctx context.Context, key, value string) error   { return nil }
func (s *fakeStore) Close() error                                             { return nil }

// fakeGit is a canned git.Operations.
type fakeGit struct {
	branch string
	dirty  bool
	hash   string
}

func (f *fakeGit) HasUncommittedChanges(ctx context.Context, repoPath string) (bool, error) {
	return f.dirty, nil
}

func (f *fakeGit) GetStatus(ctx context.Context, repoPath string) (*git.Status, error) {
	return &git.Status{HasChanges: f.dirty}, nil
}

func (f *fakeGit) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	return f.branch, nil
}

func (f *fakeGit) CommitChanges(ctx context.Context, repoPath string, opts git.CommitOptions) (string, error) {
	return f.hash, nil
}

func (f *fakeGit) Log(ctx context.Context, repoPath string, opts git.LogOptions) ([]git.Commit, error) {
	return nil, nil
}

func (f *fakeGit) MergeBase(ctx context.Context, repoPath, a, b string) (string, error) {
	return "", nil
}

func (f *fakeGit) ResolveRevision(ctx context.Context, repoPath, rev string) (string, error) {
	return f.hash, nil
}

func (f *fakeGit) ListBranches(ctx context.Context, repoPath string) ([]string, error) {
	return nil, nil
}

func (f *fakeGit) ListMergedBranches(ctx context.Context, repoPath, target string) ([]string, error) {
	return nil, nil
}

func (f *fakeGit) DeleteBranch(ctx context.Context, repoPath, branch string) error { return nil }

func (f *fakeGit) Rebase(ctx context.Context, repoPath string, opts git.RebaseOptions) (*git.RebaseResult, error) {
	return &git.RebaseResult{Success: true}, nil
}

func (f *fakeGit) DiffStat(ctx context.Context, repoPath, base, head string) (string, error) {
	return "", nil
}

// fakeGates returns canned results per stage.
type fakeGates struct {
	results map[string][]*GateResult
}

func (f *fakeGates) Run(ctx context.Context, stage string) ([]*GateResult, bool) {
	results := f.results[stage]
	passed := true
	for _, r := range results {
		if !r.Passed {
			passed = false
		}
	}
	return results, passed
}

func passingGates() *fakeGates {
	return &fakeGates{results: map[string][]*GateResult{
		"test": {{Name: "test", Stage: "test", Passed: true}},
		"lint": {{Name: "lint", Stage: "lint", Passed: true}},
	}}
}

func newTestEngine(t *testing.T, store *fakeStore, g *fakeGit, gates GateProvider) *Engine {
	t.Helper()
	checker := policy.NewChecker(g, "main", commit.DefaultRules())
	engine, err := NewEngine(&Config{
		Store:   store,
		Git:     g,
		Gates:   gates,
		Checker: checker,
		Rules:   commit.DefaultRules(),
		Actor:   "human:alice",
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func seedTask(store *fakeStore, status types.TaskStatus, planID string) *types.Task {
	task := &types.Task{
		ID:       "cap-1",
		Title:    "do the work",
		Status:   status,
		Priority: 2,
		PlanID:   planID,
	}
	store.tasks[task.ID] = task
	return task
}

func TestExecuteHappyPath(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedTask(store, types.TaskStatusOpen, "")
	g := &fakeGit{branch: "feature/work", dirty: true, hash: "abc123def456"}
	engine := newTestEngine(t, store, g, passingGates())

	run, err := engine.Execute(ctx, "cap-1", "feat: add retry backoff to fetch client")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if run.Stage != StageCompleted {
		t.Errorf("expected completed, got %s", run.Stage)
	}
	if run.CommitHash != "abc123def456" {
		t.Errorf("unexpected commit hash: %s", run.CommitHash)
	}
	if run.ID == "" {
		t.Error("run should have an ID")
	}
	if store.tasks["cap-1"].Status != types.TaskStatusClosed {
		t.Errorf("task should be closed, got %s", store.tasks["cap-1"].Status)
	}
}

func TestExecuteRejectsMainBranch(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedTask(store, types.TaskStatusOpen, "")
	g := &fakeGit{branch: "main", dirty: true}
	engine := newTestEngine(t, store, g, passingGates())

	run, err := engine.Execute(ctx, "cap-1", "feat: add thing")
	if err == nil {
		t.Fatal("expected failure on main branch")
	}
	if run.Stage != StageFailed {
		t.Errorf("expected failed stage, got %s", run.Stage)
	}
}

func TestExecuteRequiresApprovedPlan(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.plans["cap-9"] = &types.Plan{ID: "cap-9", IntentID: "cap-8", Title: "draft plan", Status: types.PlanStatusDraft}
	seedTask(store, types.TaskStatusOpen, "cap-9")
	g := &fakeGit{branch: "feature/work", dirty: true}
	engine := newTestEngine(t, store, g, passingGates())

	_, err := engine.Execute(ctx, "cap-1", "feat: add thing")
	if err == nil || !strings.Contains(err.Error(), "approve") {
		t.Fatalf("expected unapproved-plan error, got %v", err)
	}

	// approving the plan unblocks the run
	store.plans["cap-9"].Status = types.PlanStatusApproved
	store.tasks["cap-1"].Status = types.TaskStatusOpen
	g.hash = "abc"
	if _, err := engine.Execute(ctx, "cap-1", "feat: add retry backoff"); err != nil {
		t.Fatalf("Execute with approved plan failed: %v", err)
	}
}

func TestExecuteCleanTreeFails(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedTask(store, types.TaskStatusOpen, "")
	g := &fakeGit{branch: "feature/work", dirty: false}
	engine := newTestEngine(t, store, g, passingGates())

	run, err := engine.Execute(ctx, "cap-1", "feat: add thing")
	if err == nil || !strings.Contains(err.Error(), "nothing to test or commit") {
		t.Fatalf("expected clean-tree error, got %v", err)
	}
	if run.Stage != StageFailed {
		t.Errorf("expected failed stage, got %s", run.Stage)
	}
}

func TestExecuteGateFailureBlocksTask(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedTask(store, types.TaskStatusOpen, "")
	g := &fakeGit{branch: "feature/work", dirty: true}

	gates := &fakeGates{results: map[string][]*GateResult{
		"test": {
			{Name: "build", Stage: "test", Passed: true},
			{Name: "test", Stage: "test", Passed: false, Output: "FAIL: TestThing", Err: fmt.Errorf("exit 1")},
		},
	}}
	engine := newTestEngine(t, store, g, gates)

	run, err := engine.Execute(ctx, "cap-1", "feat: add thing")
	if err == nil {
		t.Fatal("expected gate failure")
	}
	if run.Stage != StageFailed {
		t.Errorf("expected failed stage, got %s", run.Stage)
	}
	if store.tasks["cap-1"].Status != types.TaskStatusBlocked {
		t.Errorf("original task should be blocked, got %s", store.tasks["cap-1"].Status)
	}

	// one blocking task filed for the failed gate
	blockers := 0
	for id, task := range store.tasks {
		if id == "cap-1" {
			continue
		}
		blockers++
		if !strings.Contains(task.Title, "Gate failure: test") {
			t.Errorf("unexpected blocker title: %s", task.Title)
		}
	}
	if blockers != 1 {
		t.Errorf("expected 1 blocking task, got %d", blockers)
	}
}

func TestExecuteBadCommitMessage(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedTask(store, types.TaskStatusOpen, "")
	g := &fakeGit{branch: "feature/work", dirty: true}
	engine := newTestEngine(t, store, g, passingGates())

	run, err := engine.Execute(ctx, "cap-1", "Added some stuff.")
	if err == nil || !strings.Contains(err.Error(), "commit message rejected") {
		t.Fatalf("expected commit message rejection, got %v", err)
	}
	if run.Stage != StageFailed {
		t.Errorf("expected failed stage, got %s", run.Stage)
	}
	// no commit happened
	if run.CommitHash != "" {
		t.Errorf("no commit should have been made, got %s", run.CommitHash)
	}
}
