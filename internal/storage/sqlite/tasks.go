package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/capstanhq/capstan/internal/types"
)

// CreateTask creates a new task. A task linked to a plan must agree
// with the plan about its intent, and a linked step index must exist
// in the plan. Tasks without a plan link are allowed for simple
// single-file work.
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *types.Task, actor string) error {
	if task.Status == "" {
		task.Status = types.TaskStatusOpen
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	conn, commit, cleanup, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if task.IntentID != "" {
		var id string
		err := conn.QueryRowContext(ctx,
			"SELECT id FROM intents WHERE id = ?", task.IntentID).Scan(&id)
		if err == sql.ErrNoRows {
			return fmt.Errorf("intent %s not found", task.IntentID)
		}
		if err != nil {
			return fmt.Errorf("failed to look up intent: %w", err)
		}
	}

	if task.PlanID != "" {
		var planIntentID string
		var steps string
		err := conn.QueryRowContext(ctx,
			"SELECT intent_id, steps FROM plans WHERE id = ?", task.PlanID).
			Scan(&planIntentID, &steps)
		if err == sql.ErrNoRows {
			return fmt.Errorf("plan %s not found", task.PlanID)
		}
		if err != nil {
			return fmt.Errorf("failed to look up plan: %w", err)
		}

		if task.IntentID == "" {
			task.IntentID = planIntentID
		} else if task.IntentID != planIntentID {
			return fmt.Errorf("task intent %s does not match plan intent %s",
				task.IntentID, planIntentID)
		}

		if task.StepIndex > 0 {
			var planSteps []types.Step
			if err := json.Unmarshal([]byte(steps), &planSteps); err != nil {
				return fmt.Errorf("bad steps on plan %s: %w", task.PlanID, err)
			}
			if task.StepIndex > len(planSteps) {
				return fmt.Errorf("plan %s has no step %d (steps: %d)",
					task.PlanID, task.StepIndex, len(planSteps))
			}
		}
	}

	if task.ID == "" {
		id, err := s.nextID(ctx, conn)
		if err != nil {
			return err
		}
		task.ID = id
	}

	var intentID, planID, assignee sql.NullString
	if task.IntentID != "" {
		intentID = sql.NullString{String: task.IntentID, Valid: true}
	}
	if task.PlanID != "" {
		planID = sql.NullString{String: task.PlanID, Valid: true}
	}
	if task.Assignee != "" {
		assignee = sql.NullString{String: task.Assignee, Valid: true}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority,
			intent_id, plan_id, step_index, assignee,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.Description, task.Status, task.Priority,
		intentID, planID, task.StepIndex, assignee,
		task.CreatedBy.String(), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	data, _ := json.Marshal(task)
	dataStr := string(data)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, new_value)
		VALUES (?, ?, ?, ?)
	`, task.ID, types.EventCreated, actor, dataStr)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return commit()
}

func scanTask(row rowScanner) (*types.Task, error) {
	var task types.Task
	var intentID, planID, assignee sql.NullString
	var createdBy string
	var closedAt sql.NullTime

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&intentID, &planID, &task.StepIndex, &assignee,
		&createdBy, &task.CreatedAt, &task.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	if intentID.Valid {
		task.IntentID = intentID.String
	}
	if planID.Valid {
		task.PlanID = planID.String
	}
	if assignee.Valid {
		task.Assignee = assignee.String
	}
	if closedAt.Valid {
		task.ClosedAt = &closedAt.Time
	}

	actor, err := types.ParseActor(createdBy)
	if err != nil {
		return nil, fmt.Errorf("bad created_by on %s: %w", task.ID, err)
	}
	task.CreatedBy = actor

	return &task, nil
}

const taskColumns = `id, title, description, status, priority,
       intent_id, plan_id, step_index, assignee,
       created_by, created_at, updated_at, closed_at`

// GetTask retrieves a task by ID. Returns nil when not found.
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks finds tasks matching the filter, highest priority first.
func (s *SQLiteStorage) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.Status != nil {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		whereClauses = append(whereClauses, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.IntentID != nil {
		whereClauses = append(whereClauses, "intent_id = ?")
		args = append(args, *filter.IntentID)
	}
	if filter.PlanID != nil {
		whereClauses = append(whereClauses, "plan_id = ?")
		args = append(args, *filter.PlanID)
	}
	if filter.Assignee != nil {
		whereClauses = append(whereClauses, "assignee = ?")
		args = append(args, *filter.Assignee)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		%s
		ORDER BY priority ASC, created_at DESC
		%s
	`, taskColumns, whereSQL, limitSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Allowed fields for update to prevent SQL injection
var allowedTaskUpdateFields = map[string]bool{
	"status":      true,
	"priority":    true,
	"title":       true,
	"description": true,
	"assignee":    true,
}

// UpdateTask updates fields on a task
func (s *SQLiteStorage) UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	oldTask, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if oldTask == nil {
		return fmt.Errorf("task %s not found", id)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	for key, value := range updates {
		if !allowedTaskUpdateFields[key] {
			return fmt.Errorf("invalid field for update: %s", key)
		}

		switch key {
		case "priority":
			if priority, ok := value.(int); ok {
				if priority < 0 || priority > 4 {
					return fmt.Errorf("priority must be between 0 and 4 (got %d)", priority)
				}
			}
		case "status":
			if status, ok := value.(string); ok {
				if !types.TaskStatus(status).IsValid() {
					return fmt.Errorf("invalid status: %s", status)
				}
			}
		case "title":
			if title, ok := value.(string); ok {
				if len(title) == 0 || len(title) > 500 {
					return fmt.Errorf("title must be 1-500 characters")
				}
			}
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = ?", key))
		args = append(args, value)
	}
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	oldData, _ := json.Marshal(oldTask)
	newData, _ := json.Marshal(updates)
	oldDataStr := string(oldData)
	newDataStr := string(newData)

	eventType := types.EventUpdated
	if statusVal, ok := updates["status"]; ok {
		if statusVal == string(types.TaskStatusClosed) {
			eventType = types.EventClosed
		} else {
			eventType = types.EventStatusChanged
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, old_value, new_value)
		VALUES (?, ?, ?, ?, ?)
	`, id, eventType, actor, oldDataStr, newDataStr)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}

// CloseTask closes a task with a reason
func (s *SQLiteStorage) CloseTask(ctx context.Context, id string, reason string, actor string) error {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, closed_at = ?, updated_at = ?
		WHERE id = ?
	`, types.TaskStatusClosed, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to close task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s not found", id)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, comment)
		VALUES (?, ?, ?, ?)
	`, id, types.EventClosed, actor, reason)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}
