package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/capstanhq/capstan/internal/types"
)

// CreateIntent creates a new intent. When ParentID is set the parent
// intent must already exist.
func (s *SQLiteStorage) CreateIntent(ctx context.Context, intent *types.Intent, actor string) error {
	if intent.Status == "" {
		intent.Status = types.IntentStatusDraft
	}
	if err := intent.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	intent.CreatedAt = now
	intent.UpdatedAt = now

	conn, commit, cleanup, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if intent.ParentID != "" {
		var parent string
		err := conn.QueryRowContext(ctx,
			"SELECT id FROM intents WHERE id = ?", intent.ParentID).Scan(&parent)
		if err == sql.ErrNoRows {
			return fmt.Errorf("parent intent %s not found", intent.ParentID)
		}
		if err != nil {
			return fmt.Errorf("failed to look up parent intent: %w", err)
		}
	}

	if intent.ID == "" {
		id, err := s.nextID(ctx, conn)
		if err != nil {
			return err
		}
		intent.ID = id
	}

	var parentID sql.NullString
	if intent.ParentID != "" {
		parentID = sql.NullString{String: intent.ParentID, Valid: true}
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO intents (id, prompt, status, parent_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, intent.ID, intent.Prompt, intent.Status, parentID,
		intent.CreatedBy.String(), intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert intent: %w", err)
	}

	data, _ := json.Marshal(intent)
	dataStr := string(data)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, new_value)
		VALUES (?, ?, ?, ?)
	`, intent.ID, types.EventCreated, actor, dataStr)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return commit()
}

// GetIntent retrieves an intent by ID. Returns nil when not found.
func (s *SQLiteStorage) GetIntent(ctx context.Context, id string) (*types.Intent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, status, parent_id, created_by, created_at, updated_at, closed_at
		FROM intents
		WHERE id = ?
	`, id)

	intent, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}
	return intent, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row rowScanner) (*types.Intent, error) {
	var intent types.Intent
	var parentID sql.NullString
	var createdBy string
	var closedAt sql.NullTime

	err := row.Scan(
		&intent.ID, &intent.Prompt, &intent.Status, &parentID,
		&createdBy, &intent.CreatedAt, &intent.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		intent.ParentID = parentID.String
	}
	if closedAt.Valid {
		intent.ClosedAt = &closedAt.Time
	}

	actor, err := types.ParseActor(createdBy)
	if err != nil {
		return nil, fmt.Errorf("bad created_by on %s: %w", intent.ID, err)
	}
	intent.CreatedBy = actor

	return &intent, nil
}

// ListIntents returns intents, optionally filtered by status, newest first.
func (s *SQLiteStorage) ListIntents(ctx context.Context, status *types.IntentStatus, limit int) ([]*types.Intent, error) {
	query := `
		SELECT id, prompt, status, parent_id, created_by, created_at, updated_at, closed_at
		FROM intents`
	args := []interface{}{}

	if status != nil {
		query += " WHERE status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}
	defer rows.Close()

	var intents []*types.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", err)
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

// UpdateIntentStatus transitions an intent to a new status.
func (s *SQLiteStorage) UpdateIntentStatus(ctx context.Context, id string, status types.IntentStatus, actor string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	old, err := s.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("intent %s not found", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE intents SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update intent: %w", err)
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

// CloseIntent moves an intent to a terminal status with a reason.
func (s *SQLiteStorage) CloseIntent(ctx context.Context, id string, status types.IntentStatus, reason string, actor string) error {
	if !status.Terminal() {
		return fmt.Errorf("close requires a terminal status, got %s", status)
	}

	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE intents SET status = ?, closed_at = ?, updated_at = ?
		WHERE id = ?
	`, status, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to close intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("intent %s not found", id)
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
