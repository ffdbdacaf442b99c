// Package profile loads and routes agent profiles: markdown files with
// YAML frontmatter that describe a specialized agent, its allowed
// tools, and its system prompt.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is a parsed agent profile.
type Profile struct {
	// Name uniquely identifies the agent.
	Name string

	// Description is used for auto-selection matching.
	Description string

	// Tools lists the tool names this agent may use.
	Tools []string

	// Model is the model preference ("default", "fast", "powerful").
	Model string

	// SystemPrompt is the markdown body after the frontmatter.
	SystemPrompt string
}

// frontmatter is the YAML header of a profile file.
type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Model       string   `yaml:"model"`
}

// Parse parses markdown with YAML frontmatter into a Profile.
//
// Expected format:
//
//	---
//	name: planner
//	description: Implementation planning specialist...
//	tools: ["read_file", "list_dir"]
//	model: default
//	---
//
//	You are an implementation planner...
func Parse(content string) (*Profile, error) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "---") {
		return nil, fmt.Errorf("profile is missing frontmatter fence")
	}

	rest := content[3:]
	end := strings.Index(rest, "---")
	if end < 0 {
		return nil, fmt.Errorf("profile frontmatter is not closed")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, fmt.Errorf("bad profile frontmatter: %w", err)
	}
	if fm.Name == "" {
		return nil, fmt.Errorf("profile has no name")
	}
	if fm.Model == "" {
		fm.Model = "default"
	}

	return &Profile{
		Name:         fm.Name,
		Description:  fm.Description,
		Tools:        fm.Tools,
		Model:        fm.Model,
		SystemPrompt: strings.TrimSpace(rest[end+3:]),
	}, nil
}

// LoadFile parses a profile from a file path.
func LoadFile(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	profile, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return profile, nil
}
