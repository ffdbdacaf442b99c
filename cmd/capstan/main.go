// Command capstan is a git workflow tracker: it records intents, plans,
// and tasks, lints commit messages, audits branch policy, and drives
// tasks through the test/lint/commit workflow.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/config"
	"github.com/capstanhq/capstan/internal/storage"
	"github.com/capstanhq/capstan/internal/types"
)

var (
	cfg   config.Config
	actor types.ActorRef
	store storage.Storage

	dbPathFlag string
	actorFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "capstan",
	Short: "Git workflow tracker: intents, plans, tasks, and commit policy",
	Long: `Capstan tracks the intent behind code changes and enforces a
consistent git workflow: conventional commit messages, feature branches,
quality gates before every commit, and an audit trail from high-level
intent down to individual tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(".")
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPathFlag != "" {
			cfg.DBPath = dbPathFlag
		}

		actor, err = types.ParseActor(actorName())
		if err != nil {
			return fmt.Errorf("invalid actor: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

// actorName resolves the acting identity: --actor flag, then
// CAPSTAN_ACTOR, then the OS user as a human actor.
func actorName() string {
	if actorFlag != "" {
		return actorFlag
	}
	if env := os.Getenv("CAPSTAN_ACTOR"); env != "" {
		return env
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "user"
	}
	return "human:" + user
}

// requireStore opens the tracker database on first use. Commands that
// only touch git (check, shortlog) never pay the open cost.
func requireStore(ctx context.Context) storage.Storage {
	if store != nil {
		return store
	}
	s, err := storage.NewStorage(ctx, &storage.Config{Path: cfg.DBPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'capstan init' to initialize a tracker in this directory.\n")
		os.Exit(1)
	}
	store = s
	return store
}

// commitRules builds the lint rule set from the loaded configuration.
func commitRules() commit.Rules {
	rules := commit.DefaultRules()
	if cfg.MaxSubjectLength > 0 {
		rules.MaxSubjectLength = cfg.MaxSubjectLength
	}
	if len(cfg.AllowedTypes) > 0 {
		allowed := make([]commit.Type, 0, len(cfg.AllowedTypes))
		for _, t := range cfg.AllowedTypes {
			allowed = append(allowed, commit.Type(t))
		}
		rules.AllowedTypes = allowed
	}
	return rules
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (default .capstan/capstan.db)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Acting identity, e.g. human:alice or agent:planner")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
