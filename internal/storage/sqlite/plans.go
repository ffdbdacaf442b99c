package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/capstanhq/capstan/internal/types"
)

// CreatePlan creates a new plan. The referenced intent must already
// exist; a plan cannot precede its intent.
func (s *SQLiteStorage) CreatePlan(ctx context.Context, plan *types.Plan, actor string) error {
	if plan.Status == "" {
		plan.Status = types.PlanStatusDraft
	}
	if plan.Iteration == 0 {
		plan.Iteration = 1
	}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	conn, commit, cleanup, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var intentID string
	err = conn.QueryRowContext(ctx,
		"SELECT id FROM intents WHERE id = ?", plan.IntentID).Scan(&intentID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("intent %s not found: a plan requires an existing intent", plan.IntentID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up intent: %w", err)
	}

	if plan.ID == "" {
		id, err := s.nextID(ctx, conn)
		if err != nil {
			return err
		}
		plan.ID = id
	}

	steps, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO plans (id, intent_id, title, steps, status, iteration, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, plan.ID, plan.IntentID, plan.Title, string(steps), plan.Status,
		plan.Iteration, plan.CreatedBy.String(), plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	data, _ := json.Marshal(plan)
	dataStr := string(data)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, new_value)
		VALUES (?, ?, ?, ?)
	`, plan.ID, types.EventCreated, actor, dataStr)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return commit()
}

func scanPlan(row rowScanner) (*types.Plan, error) {
	var plan types.Plan
	var steps string
	var createdBy string

	err := row.Scan(
		&plan.ID, &plan.IntentID, &plan.Title, &steps, &plan.Status,
		&plan.Iteration, &createdBy, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(steps), &plan.Steps); err != nil {
		return nil, fmt.Errorf("bad steps on %s: %w", plan.ID, err)
	}

	actor, err := types.ParseActor(createdBy)
	if err != nil {
		return nil, fmt.Errorf("bad created_by on %s: %w", plan.ID, err)
	}
	plan.CreatedBy = actor

	return &plan, nil
}

// GetPlan retrieves a plan by ID. Returns nil when not found.
func (s *SQLiteStorage) GetPlan(ctx context.Context, id string) (*types.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, intent_id, title, steps, status, iteration, created_by, created_at, updated_at
		FROM plans
		WHERE id = ?
	`, id)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// GetPlansByIntent returns all plans for an intent, newest iteration first.
func (s *SQLiteStorage) GetPlansByIntent(ctx context.Context, intentID string) ([]*types.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent_id, title, steps, status, iteration, created_by, created_at, updated_at
		FROM plans
		WHERE intent_id = ?
		ORDER BY iteration DESC, created_at DESC
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans for %s: %w", intentID, err)
	}
	defer rows.Close()

	var plans []*types.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus transitions a plan to a new status.
func (s *SQLiteStorage) UpdatePlanStatus(ctx context.Context, id string, status types.PlanStatus, actor string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	old, err := s.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("plan %s not found", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE plans SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	oldStatus := string(old.Status)
	newStatus := string(status)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, old_value, new_value)
		VALUES (?, ?, ?, ?, ?)
	`, id, types.EventStatusChanged, actor, oldStatus, newStatus)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}
