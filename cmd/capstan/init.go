package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/capstanhq/capstan/internal/config"
	"github.com/capstanhq/capstan/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a capstan tracker in the current directory",
	Long: `Initialize a capstan tracker by creating a .capstan/ directory.

This creates:
  - .capstan/ directory
  - .capstan/capstan.db (SQLite database)
  - .capstan/config.yml (workflow configuration, if absent)

Example:
  cd ~/myproject
  capstan init`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
			os.Exit(1)
		}

		dir := filepath.Join(cwd, ".capstan")
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}

		configPath := filepath.Join(dir, "config.yml")
		wroteConfig := false
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			data, err := yaml.Marshal(config.Default())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to render default config: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(configPath, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", configPath, err)
				os.Exit(1)
			}
			wroteConfig = true
		}

		// Open and close the database once to create the schema.
		ctx := context.Background()
		db, err := storage.NewStorage(ctx, &storage.Config{Path: cfg.DBPath})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		_ = db.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized capstan tracker\n\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(cfg.DBPath))
		if wroteConfig {
			fmt.Printf("  Config:   %s\n", cyan(configPath))
		} else {
			fmt.Printf("  Config:   %s %s\n", cyan(configPath), gray("(kept existing)"))
		}
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray(`capstan intent create "describe the goal"`))
		fmt.Printf("  %s\n", gray("capstan task create --title \"small change\""))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
