// Package storage defines the persistence interface for planning objects.
package storage

import (
	"context"

	"github.com/capstanhq/capstan/internal/storage/sqlite"
	"github.com/capstanhq/capstan/internal/types"
)

// Storage defines the interface for planning object storage backends
type Storage interface {
	// Intents
	CreateIntent(ctx context.Context, intent *types.Intent, actor string) error
	GetIntent(ctx context.Context, id string) (*types.Intent, error)
	ListIntents(ctx context.Context, status *types.IntentStatus, limit int) ([]*types.Intent, error)
	UpdateIntentStatus(ctx context.Context, id string, status types.IntentStatus, actor string) error
	CloseIntent(ctx context.Context, id string, status types.IntentStatus, reason string, actor string) error

	// Plans
	CreatePlan(ctx context.Context, plan *types.Plan, actor string) error
	GetPlan(ctx context.Context, id string) (*types.Plan, error)
	GetPlansByIntent(ctx context.Context, intentID string) ([]*types.Plan, error)
	UpdatePlanStatus(ctx context.Context, id string, status types.PlanStatus, actor string) error

	// Tasks
	CreateTask(ctx context.Context, task *types.Task, actor string) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error
	CloseTask(ctx context.Context, id string, reason string, actor string) error

	// Events
	AddComment(ctx context.Context, objectID, actor, comment string) error
	GetEvents(ctx context.Context, objectID string, limit int) ([]*types.Event, error)

	// Statistics
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Config
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".capstan/capstan.db",
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".capstan/capstan.db"
	}

	return sqlite.New(cfg.Path)
}
