package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/capstanhq/capstan/internal/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testActor(t *testing.T) types.ActorRef {
	t.Helper()
	actor, err := types.Human("alice")
	if err != nil {
		t.Fatalf("failed to create actor: %v", err)
	}
	return actor
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{
		Prompt:    "add retry logic to the fetch client",
		CreatedBy: actor,
	}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	if intent.ID != "cap-1" {
		t.Errorf("expected generated ID cap-1, got %s", intent.ID)
	}
	if intent.Status != types.IntentStatusDraft {
		t.Errorf("expected draft status, got %s", intent.Status)
	}

	got, err := s.GetIntent(ctx, intent.ID)
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if got == nil {
		t.Fatal("intent not found after create")
	}
	if got.Prompt != intent.Prompt {
		t.Errorf("prompt mismatch: %q", got.Prompt)
	}
	if got.CreatedBy.Name != "alice" || got.CreatedBy.Kind != types.ActorHuman {
		t.Errorf("created_by round-trip failed: %+v", got.CreatedBy)
	}

	// creation must leave an audit event
	events, err := s.GetEvents(ctx, intent.ID, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != types.EventCreated {
		t.Errorf("expected one created event, got %+v", events)
	}
}

func TestCreateIntentSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	for i, want := range []string{"cap-1", "cap-2", "cap-3"} {
		intent := &types.Intent{Prompt: "do a thing", CreatedBy: actor}
		if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
			t.Fatalf("CreateIntent %d failed: %v", i, err)
		}
		if intent.ID != want {
			t.Errorf("expected ID %s, got %s", want, intent.ID)
		}
	}
}

func TestCreateIntentWithMissingParent(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{
		Prompt:    "child of nothing",
		ParentID:  "cap-999",
		CreatedBy: actor,
	}
	err := s.CreateIntent(ctx, intent, actor.String())
	if err == nil {
		t.Fatal("expected error for missing parent intent")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreatePlanRequiresIntent(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	plan := &types.Plan{
		IntentID:  "cap-999",
		Title:     "a plan without an intent",
		CreatedBy: actor,
	}
	err := s.CreatePlan(ctx, plan, actor.String())
	if err == nil {
		t.Fatal("expected error: a plan cannot precede its intent")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreatePlanAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "restructure the config loader", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	plan := &types.Plan{
		IntentID: intent.ID,
		Title:    "config loader rework",
		Steps: []types.Step{
			{Index: 1, Title: "extract defaults"},
			{Index: 2, Title: "add file overlay", DependsOn: []int{1}},
		},
		CreatedBy: actor,
	}
	if err := s.CreatePlan(ctx, plan, actor.String()); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if plan.ID != "cap-2" {
		t.Errorf("expected ID cap-2, got %s", plan.ID)
	}
	if plan.Iteration != 1 {
		t.Errorf("expected iteration 1, got %d", plan.Iteration)
	}

	got, err := s.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got == nil {
		t.Fatal("plan not found after create")
	}
	if len(got.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got.Steps))
	}
	if got.Steps[1].DependsOn[0] != 1 {
		t.Errorf("step dependencies not preserved: %+v", got.Steps[1])
	}

	plans, err := s.GetPlansByIntent(ctx, intent.ID)
	if err != nil {
		t.Fatalf("GetPlansByIntent failed: %v", err)
	}
	if len(plans) != 1 {
		t.Errorf("expected 1 plan for intent, got %d", len(plans))
	}
}

func TestCreateTaskLinkedToPlan(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "speed up startup", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	plan := &types.Plan{
		IntentID:  intent.ID,
		Title:     "startup profiling",
		Steps:     []types.Step{{Index: 1, Title: "profile init path"}},
		CreatedBy: actor,
	}
	if err := s.CreatePlan(ctx, plan, actor.String()); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	task := &types.Task{
		Title:     "profile init path",
		Priority:  1,
		PlanID:    plan.ID,
		StepIndex: 1,
		CreatedBy: actor,
	}
	if err := s.CreateTask(ctx, task, actor.String()); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// intent is inherited from the plan
	if task.IntentID != intent.ID {
		t.Errorf("expected task to inherit intent %s, got %s", intent.ID, task.IntentID)
	}

	// step index beyond the plan is rejected
	bad := &types.Task{
		Title:     "no such step",
		Priority:  2,
		PlanID:    plan.ID,
		StepIndex: 5,
		CreatedBy: actor,
	}
	if err := s.CreateTask(ctx, bad, actor.String()); err == nil {
		t.Error("expected error for step index beyond plan")
	}
}

func TestCreateTaskIntentMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intentA := &types.Intent{Prompt: "goal A", CreatedBy: actor}
	intentB := &types.Intent{Prompt: "goal B", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intentA, actor.String()); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateIntent(ctx, intentB, actor.String()); err != nil {
		t.Fatal(err)
	}
	plan := &types.Plan{
		IntentID:  intentA.ID,
		Title:     "plan for A",
		Steps:     []types.Step{{Index: 1, Title: "only step"}},
		CreatedBy: actor,
	}
	if err := s.CreatePlan(ctx, plan, actor.String()); err != nil {
		t.Fatal(err)
	}

	task := &types.Task{
		Title:     "cross-linked task",
		Priority:  2,
		IntentID:  intentB.ID,
		PlanID:    plan.ID,
		CreatedBy: actor,
	}
	if err := s.CreateTask(ctx, task, actor.String()); err == nil {
		t.Error("expected error when task intent disagrees with plan intent")
	}
}

func TestCreateStandaloneTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	// simple single-file work needs no intent or plan
	task := &types.Task{
		Title:     "fix typo in usage string",
		Priority:  3,
		CreatedBy: actor,
	}
	if err := s.CreateTask(ctx, task, actor.String()); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID != "cap-1" {
		t.Errorf("expected ID cap-1, got %s", task.ID)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil || got.Status != types.TaskStatusOpen {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	task := &types.Task{Title: "update me", Priority: 2, CreatedBy: actor}
	if err := s.CreateTask(ctx, task, actor.String()); err != nil {
		t.Fatal(err)
	}

	updates := map[string]interface{}{
		"status":   string(types.TaskStatusInProgress),
		"assignee": "agent:fixer",
	}
	if err := s.UpdateTask(ctx, task.ID, updates, actor.String()); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.TaskStatusInProgress {
		t.Errorf("expected in_progress, got %s", got.Status)
	}
	if got.Assignee != "agent:fixer" {
		t.Errorf("expected assignee agent:fixer, got %s", got.Assignee)
	}

	// unknown fields are rejected
	if err := s.UpdateTask(ctx, task.ID, map[string]interface{}{"id": "cap-99"}, actor.String()); err == nil {
		t.Error("expected error for disallowed update field")
	}
	// invalid status is rejected
	if err := s.UpdateTask(ctx, task.ID, map[string]interface{}{"status": "bogus"}, actor.String()); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestCloseTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	task := &types.Task{Title: "close me", Priority: 2, CreatedBy: actor}
	if err := s.CreateTask(ctx, task, actor.String()); err != nil {
		t.Fatal(err)
	}

	if err := s.CloseTask(ctx, task.ID, "done", actor.String()); err != nil {
		t.Fatalf("CloseTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.TaskStatusClosed {
		t.Errorf("expected closed, got %s", got.Status)
	}
	if got.ClosedAt == nil {
		t.Error("expected closed_at to be set")
	}

	if err := s.CloseTask(ctx, "cap-999", "done", actor.String()); err == nil {
		t.Error("expected error closing missing task")
	}
}

func TestListTasksFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	for _, title := range []string{"first", "second", "third"} {
		task := &types.Task{Title: title, Priority: 2, CreatedBy: actor}
		if err := s.CreateTask(ctx, task, actor.String()); err != nil {
			t.Fatal(err)
		}
	}
	one, err := s.GetTask(ctx, "cap-2")
	if err != nil || one == nil {
		t.Fatalf("GetTask cap-2: %v", err)
	}
	if err := s.CloseTask(ctx, one.ID, "done", actor.String()); err != nil {
		t.Fatal(err)
	}

	open := types.TaskStatusOpen
	tasks, err := s.ListTasks(ctx, types.TaskFilter{Status: &open})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 open tasks, got %d", len(tasks))
	}
}

func TestIntentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "life and death of an intent", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateIntentStatus(ctx, intent.ID, types.IntentStatusActive, actor.String()); err != nil {
		t.Fatalf("UpdateIntentStatus failed: %v", err)
	}

	// close requires a terminal status
	if err := s.CloseIntent(ctx, intent.ID, types.IntentStatusActive, "nope", actor.String()); err == nil {
		t.Error("expected error closing with non-terminal status")
	}

	if err := s.CloseIntent(ctx, intent.ID, types.IntentStatusCompleted, "all done", actor.String()); err != nil {
		t.Fatalf("CloseIntent failed: %v", err)
	}

	got, err := s.GetIntent(ctx, intent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.IntentStatusCompleted || got.ClosedAt == nil {
		t.Errorf("unexpected intent after close: %+v", got)
	}

	events, err := s.GetEvents(ctx, intent.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events (created, status_changed, closed), got %d", len(events))
	}
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "commented intent", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatal(err)
	}

	if err := s.AddComment(ctx, intent.ID, actor.String(), "looks good"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if err := s.AddComment(ctx, "cap-999", actor.String(), "ghost"); err == nil {
		t.Error("expected error commenting on missing object")
	}

	events, err := s.GetEvents(ctx, intent.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != types.EventCommented {
		t.Fatalf("expected newest event to be a comment, got %+v", events)
	}
	if events[0].Comment == nil || *events[0].Comment != "looks good" {
		t.Errorf("comment not preserved: %+v", events[0])
	}
}

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "stats intent", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateIntentStatus(ctx, intent.ID, types.IntentStatusActive, actor.String()); err != nil {
		t.Fatal(err)
	}
	plan := &types.Plan{
		IntentID:  intent.ID,
		Title:     "stats plan",
		Steps:     []types.Step{{Index: 1, Title: "only step"}},
		CreatedBy: actor,
	}
	if err := s.CreatePlan(ctx, plan, actor.String()); err != nil {
		t.Fatal(err)
	}
	task := &types.Task{Title: "stats task", Priority: 2, CreatedBy: actor}
	if err := s.CreateTask(ctx, task, actor.String()); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalIntents != 1 || stats.ActiveIntents != 1 {
		t.Errorf("unexpected intent counts: %+v", stats)
	}
	if stats.TotalPlans != 1 || stats.ApprovedPlans != 0 {
		t.Errorf("unexpected plan counts: %+v", stats)
	}
	if stats.TotalTasks != 1 || stats.OpenTasks != 1 {
		t.Errorf("unexpected task counts: %+v", stats)
	}
}

func TestIDPrefixOverride(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	if err := s.SetConfig(ctx, "id_prefix", "sbx"); err != nil {
		t.Fatal(err)
	}
	// prefix is read at open time; simulate by setting directly
	s.idPrefix = "sbx"

	intent := &types.Intent{Prompt: "sandboxed intent", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatal(err)
	}
	if intent.ID != "sbx-1" {
		t.Errorf("expected sbx-1, got %s", intent.ID)
	}
}

func TestInMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	actor := testActor(t)

	intent := &types.Intent{Prompt: "exercise the pool", CreatedBy: actor}
	if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}

	// An in-memory database must present one schema to every caller,
	// including writers holding a pinned connection while readers query.
	const workers = 8
	errs := make(chan error, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			task := &types.Task{
				Title:     fmt.Sprintf("concurrent task %d", n),
				Status:    types.TaskStatusOpen,
				Priority:  2,
				IntentID:  intent.ID,
				CreatedBy: actor,
			}
			errs <- s.CreateTask(ctx, task, actor.String())

			got, err := s.GetIntent(ctx, intent.ID)
			if err == nil && got == nil {
				err = fmt.Errorf("intent %s vanished", intent.ID)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent access failed: %v", err)
		}
	}

	status := types.TaskStatusOpen
	tasks, err := s.ListTasks(ctx, types.TaskFilter{Status: &status})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != workers {
		t.Errorf("expected %d tasks, got %d", workers, len(tasks))
	}
}
