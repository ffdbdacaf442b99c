// Package types defines the planning hierarchy tracked by capstan:
// Intents capture high-level goals, Plans break an Intent into ordered
// Steps, and Tasks are executable units of work optionally tied to one
// Plan step.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Intent represents a recorded high-level goal. Complex (multi-file)
// changes start with an Intent; planning and tasks follow from it.
type Intent struct {
	ID        string       `json:"id"`
	Prompt    string       `json:"prompt"`
	Status    IntentStatus `json:"status"`
	ParentID  string       `json:"parent_id,omitempty"`
	CreatedBy ActorRef     `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
}

// Validate checks if the intent has valid field values
func (i *Intent) Validate() error {
	if strings.TrimSpace(i.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	if len(i.Prompt) > 2000 {
		return fmt.Errorf("prompt must be 2000 characters or less (got %d)", len(i.Prompt))
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if err := i.CreatedBy.Validate(); err != nil {
		return fmt.Errorf("invalid created_by: %w", err)
	}
	return nil
}

// IntentStatus represents the lifecycle state of an intent
type IntentStatus string

const (
	IntentStatusDraft     IntentStatus = "draft"
	IntentStatusActive    IntentStatus = "active"
	IntentStatusCompleted IntentStatus = "completed"
	IntentStatusAbandoned IntentStatus = "abandoned"
)

// IsValid checks if the intent status value is valid
func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentStatusDraft, IntentStatusActive, IntentStatusCompleted, IntentStatusAbandoned:
		return true
	}
	return false
}

// Terminal reports whether the status is a final state.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusCompleted || s == IntentStatusAbandoned
}

// Plan is an ordered breakdown of an Intent into sequential Steps.
// A Plan always references an existing Intent; the storage layer
// rejects plans whose intent is missing.
type Plan struct {
	ID        string     `json:"id"`
	IntentID  string     `json:"intent_id"`
	Title     string     `json:"title"`
	Steps     []Step     `json:"steps"`
	Status    PlanStatus `json:"status"`
	Iteration int        `json:"iteration"`
	CreatedBy ActorRef   `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks if the plan has valid field values.
// Structural step checks (sequencing, cycles) live in the planning package.
func (p *Plan) Validate() error {
	if p.IntentID == "" {
		return fmt.Errorf("intent_id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(p.Title))
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	if p.Iteration < 0 {
		return fmt.Errorf("iteration cannot be negative")
	}
	return nil
}

// PlanStatus represents the lifecycle state of a plan
type PlanStatus string

const (
	// PlanStatusDraft is the initial state when a plan is first created.
	PlanStatusDraft PlanStatus = "draft"

	// PlanStatusValidated indicates the plan has passed validation checks.
	PlanStatusValidated PlanStatus = "validated"

	// PlanStatusApproved indicates the plan is ready for execution.
	PlanStatusApproved PlanStatus = "approved"
)

// IsValid checks if the plan status value is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusValidated, PlanStatusApproved:
		return true
	}
	return false
}

// Step is a single ordered entry in a Plan. Index is 1-based and
// strictly sequential within the plan. DependsOn lists indices of
// earlier steps that must complete first.
type Step struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DependsOn   []int  `json:"depends_on,omitempty"`
}

// Task represents an executable unit of work. A Task may be linked to
// one Plan step (PlanID + StepIndex), or created directly for simple
// single-file changes.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	IntentID    string     `json:"intent_id,omitempty"`
	PlanID      string     `json:"plan_id,omitempty"`
	StepIndex   int        `json:"step_index,omitempty"` // 1-based; 0 means no step link
	Assignee    string     `json:"assignee,omitempty"`
	CreatedBy   ActorRef   `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	if t.Priority < 0 || t.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", t.Priority)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.StepIndex < 0 {
		return fmt.Errorf("step_index cannot be negative")
	}
	if t.StepIndex > 0 && t.PlanID == "" {
		return fmt.Errorf("step_index requires a plan_id")
	}
	return nil
}

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusClosed     TaskStatus = "closed"
)

// IsValid checks if the task status value is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusBlocked, TaskStatusClosed:
		return true
	}
	return false
}

// TaskFilter is used to filter task queries
type TaskFilter struct {
	Status   *TaskStatus
	Priority *int
	IntentID *string
	PlanID   *string
	Assignee *string
	Limit    int
}

// Event represents an audit trail entry
type Event struct {
	ID        int64     `json:"id"`
	ObjectID  string    `json:"object_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType categorizes audit trail events
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventCommented     EventType = "commented"
	EventClosed        EventType = "closed"
	EventReopened      EventType = "reopened"
)

// Statistics provides aggregate metrics across the tracker
type Statistics struct {
	TotalIntents  int `json:"total_intents"`
	ActiveIntents int `json:"active_intents"`
	TotalPlans    int `json:"total_plans"`
	ApprovedPlans int `json:"approved_plans"`
	TotalTasks    int `json:"total_tasks"`
	OpenTasks     int `json:"open_tasks"`
	BlockedTasks  int `json:"blocked_tasks"`
	ClosedTasks   int `json:"closed_tasks"`
}
