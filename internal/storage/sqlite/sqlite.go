// Package sqlite implements planning object storage on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultIDPrefix is used for generated object IDs when the config
// table does not override it.
const DefaultIDPrefix = "cap"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db       *sql.DB
	idPrefix string // Prefix for object IDs (e.g., "cap")
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency between readers and the writer
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to :memory: would open its own empty
	// database, so an in-memory store must stay on one connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Config table may override the ID prefix (sandboxes, tests)
	idPrefix := DefaultIDPrefix
	var configPrefix string
	err = db.QueryRow("SELECT value FROM config WHERE key = ?", "id_prefix").Scan(&configPrefix)
	if err == nil && configPrefix != "" {
		idPrefix = configPrefix
	} else if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read id_prefix from config: %w", err)
	}

	return &SQLiteStorage{
		db:       db,
		idPrefix: idPrefix,
	}, nil
}

// beginImmediate acquires a dedicated connection and starts an IMMEDIATE
// transaction on it. IMMEDIATE takes the write lock up front, which
// serializes ID generation across concurrent writers. database/sql cannot
// express transaction modes through BeginTx, so this runs raw SQL on a
// pinned connection; the caller must invoke cleanup exactly once and call
// commit before cleanup on the success path.
func (s *SQLiteStorage) beginImmediate(ctx context.Context) (conn *sql.Conn, commit func() error, cleanup func(), err error) {
	conn, err = s.db.Conn(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	committed := false
	commit = func() error {
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return nil
	}
	// Use context.Background() for ROLLBACK so cleanup happens even if
	// ctx is already canceled.
	cleanup = func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
		conn.Close()
	}
	return conn, commit, cleanup, nil
}

// nextID atomically increments the counter for the storage prefix and
// returns a fresh object ID. Must be called inside a BEGIN IMMEDIATE
// transaction on conn.
func (s *SQLiteStorage) nextID(ctx context.Context, conn *sql.Conn) (string, error) {
	var next int
	err := conn.QueryRowContext(ctx, `
		INSERT INTO id_counters (prefix, last_id)
		VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id
	`, s.idPrefix).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("failed to generate next ID for prefix %s: %w", s.idPrefix, err)
	}
	return fmt.Sprintf("%s-%d", s.idPrefix, next), nil
}

// objectKind reports which table an ID belongs to, for event routing
// and existence checks. Returns "" when the ID is unknown.
func (s *SQLiteStorage) objectKind(ctx context.Context, id string) (string, error) {
	for _, table := range []string{"intents", "plans", "tasks"} {
		var found string
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT id FROM %s WHERE id = ?", table), id).Scan(&found)
		if err == nil {
			return strings.TrimSuffix(table, "s"), nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to look up %s: %w", id, err)
		}
	}
	return "", nil
}

// GetConfig gets a configuration value from the config table
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig sets a configuration value in the config table
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
