package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/profile"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List and inspect agent profiles",
	Long: `Agent profiles are markdown files with YAML frontmatter describing a
specialized agent: its tools, model preference, and system prompt.

Profiles load in three tiers, later tiers shadowed by earlier ones:
  1. .capstan/agents/ in the project
  2. the user config directory (capstan/agents/)
  3. built-in defaults`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agent profiles",
	Run: func(cmd *cobra.Command, args []string) {
		profiles := profile.Load(".")
		if len(profiles) == 0 {
			fmt.Printf("%s\n", color.HiBlackString("No agent profiles found"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, p := range profiles {
			fmt.Printf("%s  %s\n", cyan(p.Name), gray("model: "+p.Model))
			fmt.Printf("  %s\n", truncate(p.Description, 90))
		}
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an agent profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		router := profile.NewRouter(profile.Load("."))
		p := router.Get(args[0])
		if p == nil {
			fmt.Fprintf(os.Stderr, "Error: no agent profile named %q\n", args[0])
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s\n", cyan(p.Name))
		fmt.Printf("  Description: %s\n", p.Description)
		fmt.Printf("  Model:       %s\n", p.Model)
		if len(p.Tools) > 0 {
			fmt.Printf("  Tools:       %s\n", strings.Join(p.Tools, ", "))
		}
		fmt.Println()
		fmt.Println(strings.TrimSpace(p.SystemPrompt))
	},
}

var agentsRouteCmd = &cobra.Command{
	Use:   "route <request>",
	Short: "Show which agent profile a request would route to",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		router := profile.NewRouter(profile.Load("."))
		input := strings.Join(args, " ")

		p := router.Select(input)
		if p == nil {
			fmt.Printf("%s\n", color.HiBlackString("No profile matches; a generalist would handle this"))
			return
		}
		fmt.Printf("%s %s\n", color.GreenString("→"), color.CyanString(p.Name))
		fmt.Printf("  %s\n", p.Description)
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
	agentsCmd.AddCommand(agentsRouteCmd)
}
