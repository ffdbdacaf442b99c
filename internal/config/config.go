// Package config holds workflow policy configuration: the commit
// message rules, branch policy settings, and quality gate commands.
// Values come from defaults, an optional .capstan/config.yml, and
// CAPSTAN_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GateCommand describes one quality gate invocation.
type GateCommand struct {
	// Name identifies the gate ("build", "test", "lint").
	Name string `yaml:"name"`

	// Command is the executable to run.
	Command string `yaml:"command"`

	// Args are the command arguments.
	Args []string `yaml:"args"`

	// Stage assigns the gate to a workflow stage: "test" or "lint".
	// Empty means "test".
	Stage string `yaml:"stage,omitempty"`
}

// Config is the full capstan configuration.
type Config struct {
	// DBPath is the SQLite database file path.
	// Default: ".capstan/capstan.db"
	DBPath string `yaml:"db_path"`

	// MainBranch is the integration branch no one commits to directly.
	// Default: "main"
	MainBranch string `yaml:"main_branch"`

	// MaxSubjectLength caps commit subject lines.
	// Default: 72, Range: 50-120
	MaxSubjectLength int `yaml:"max_subject_length"`

	// AllowedTypes is the commit type vocabulary.
	// Default: feat, fix, refactor, docs, test, chore, perf, ci
	AllowedTypes []string `yaml:"allowed_types"`

	// Gates are the quality gate commands run by `capstan run`,
	// in order. Defaults target a Go toolchain; projects using other
	// toolchains configure their own (e.g. cargo build/test/clippy).
	Gates []GateCommand `yaml:"gates"`

	// GatesParallel runs all gates concurrently instead of in order.
	// Default: false
	GatesParallel bool `yaml:"gates_parallel"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		DBPath:           filepath.Join(".capstan", "capstan.db"),
		MainBranch:       "main",
		MaxSubjectLength: 72,
		AllowedTypes: []string{
			"feat", "fix", "refactor", "docs", "test", "chore", "perf", "ci",
		},
		Gates: []GateCommand{
			{Name: "build", Command: "go", Args: []string{"build", "./..."}, Stage: "test"},
			{Name: "test", Command: "go", Args: []string{"test", "./..."}, Stage: "test"},
			{Name: "lint", Command: "golangci-lint", Args: []string{"run", "./..."}, Stage: "lint"},
		},
		GatesParallel: false,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MainBranch == "" {
		return fmt.Errorf("main_branch is required")
	}
	if c.MaxSubjectLength < 50 || c.MaxSubjectLength > 120 {
		return fmt.Errorf("max_subject_length must be between 50 and 120 (got %d)", c.MaxSubjectLength)
	}
	if len(c.AllowedTypes) == 0 {
		return fmt.Errorf("allowed_types cannot be empty")
	}
	for _, t := range c.AllowedTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("allowed_types contains a blank entry")
		}
	}
	for i, g := range c.Gates {
		if g.Name == "" {
			return fmt.Errorf("gate %d: name is required", i)
		}
		if g.Command == "" {
			return fmt.Errorf("gate %q: command is required", g.Name)
		}
		if g.Stage != "" && g.Stage != "test" && g.Stage != "lint" {
			return fmt.Errorf("gate %q: stage must be \"test\" or \"lint\" (got %q)", g.Name, g.Stage)
		}
	}
	return nil
}

// Load builds the configuration for a project directory: defaults,
// then .capstan/config.yml if present, then environment overrides.
func Load(projectDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(projectDir, ".capstan", "config.yml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays CAPSTAN_* environment variables:
//   - CAPSTAN_DB: database path
//   - CAPSTAN_MAIN_BRANCH: integration branch name
//   - CAPSTAN_SUBJECT_LIMIT: max commit subject length
//   - CAPSTAN_ALLOWED_TYPES: comma-separated commit type list
//   - CAPSTAN_GATES_PARALLEL: run gates concurrently
func applyEnv(cfg *Config) error {
	if err := parseEnvString("CAPSTAN_DB", &cfg.DBPath); err != nil {
		return err
	}
	if err := parseEnvString("CAPSTAN_MAIN_BRANCH", &cfg.MainBranch); err != nil {
		return err
	}
	if err := parseEnvInt("CAPSTAN_SUBJECT_LIMIT", &cfg.MaxSubjectLength); err != nil {
		return err
	}
	if err := parseEnvBool("CAPSTAN_GATES_PARALLEL", &cfg.GatesParallel); err != nil {
		return err
	}

	if value := os.Getenv("CAPSTAN_ALLOWED_TYPES"); value != "" {
		var parsed []string
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				parsed = append(parsed, t)
			}
		}
		cfg.AllowedTypes = parsed
	}

	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
