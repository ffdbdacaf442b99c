package sqlite

import (
	"context"
	"fmt"

	"github.com/capstanhq/capstan/internal/types"
)

// AddComment records a comment event against any planning object.
func (s *SQLiteStorage) AddComment(ctx context.Context, objectID, actor, comment string) error {
	kind, err := s.objectKind(ctx, objectID)
	if err != nil {
		return err
	}
	if kind == "" {
		return fmt.Errorf("object %s not found", objectID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (object_id, event_type, actor, comment)
		VALUES (?, ?, ?, ?)
	`, objectID, types.EventCommented, actor, comment)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// GetEvents returns the audit trail for an object, newest first.
func (s *SQLiteStorage) GetEvents(ctx context.Context, objectID string, limit int) ([]*types.Event, error) {
	query := `
		SELECT id, object_id, event_type, actor, old_value, new_value, comment, created_at
		FROM events
		WHERE object_id = ?
		ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var event types.Event
		err := rows.Scan(
			&event.ID, &event.ObjectID, &event.EventType, &event.Actor,
			&event.OldValue, &event.NewValue, &event.Comment, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// GetStatistics returns aggregate counts across the planning hierarchy.
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	var stats types.Statistics

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM intents),
			(SELECT COUNT(*) FROM intents WHERE status = 'active'),
			(SELECT COUNT(*) FROM plans),
			(SELECT COUNT(*) FROM plans WHERE status = 'approved'),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE status = 'open'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'blocked'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'closed')
	`).Scan(
		&stats.TotalIntents, &stats.ActiveIntents,
		&stats.TotalPlans, &stats.ApprovedPlans,
		&stats.TotalTasks, &stats.OpenTasks,
		&stats.BlockedTasks, &stats.ClosedTasks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return &stats, nil
}
