package profile

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed embedded/*.md
var embeddedFS embed.FS

// maxProfileFileBytes caps the size of a profile file on disk.
// Anything larger is almost certainly not a profile.
const maxProfileFileBytes = 1024 * 1024

// LoadEmbedded returns the built-in default profiles.
func LoadEmbedded() []*Profile {
	entries, err := embeddedFS.ReadDir("embedded")
	if err != nil {
		return nil
	}

	var profiles []*Profile
	for _, entry := range entries {
		content, err := embeddedFS.ReadFile("embedded/" + entry.Name())
		if err != nil {
			continue
		}
		profile, err := Parse(string(content))
		if err != nil {
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles
}

// Load gathers profiles from three tiers, earlier tiers shadowing
// later ones by name:
//
//  1. {projectDir}/.capstan/agents/*.md
//  2. {user config dir}/capstan/agents/*.md
//  3. embedded defaults
func Load(projectDir string) []*Profile {
	var profiles []*Profile
	seen := make(map[string]bool)

	loadDir(filepath.Join(projectDir, ".capstan", "agents"), &profiles, seen)

	if configDir, err := os.UserConfigDir(); err == nil {
		loadDir(filepath.Join(configDir, "capstan", "agents"), &profiles, seen)
	}

	for _, profile := range LoadEmbedded() {
		if !seen[profile.Name] {
			seen[profile.Name] = true
			profiles = append(profiles, profile)
		}
	}

	return profiles
}

func loadDir(dir string, profiles *[]*Profile, seen map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to stat agent profile %s: %v\n", path, err)
			continue
		}
		if info.Size() > maxProfileFileBytes {
			fmt.Fprintf(os.Stderr, "warning: skipped oversized agent profile %s (%d bytes)\n", path, info.Size())
			continue
		}

		profile, err := LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}
		if !seen[profile.Name] {
			seen[profile.Name] = true
			*profiles = append(*profiles, profile)
		}
	}
}
