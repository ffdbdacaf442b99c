package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/git"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracker statistics and repository state",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Capstan Status ==="))

		stats, err := s.GetStatistics(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read statistics: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", yellow("Tracker:"))
		fmt.Printf("  Intents: %d total, %d active\n", stats.TotalIntents, stats.ActiveIntents)
		fmt.Printf("  Plans:   %d total, %d approved\n", stats.TotalPlans, stats.ApprovedPlans)
		fmt.Printf("  Tasks:   %d total, %d open, %d blocked, %d closed\n",
			stats.TotalTasks, stats.OpenTasks, stats.BlockedTasks, stats.ClosedTasks)
		fmt.Println()

		g, err := git.NewGit(ctx)
		if err != nil {
			fmt.Printf("  %s\n\n", gray("git unavailable: "+err.Error()))
			return
		}

		fmt.Printf("%s\n", yellow("Repository:"))
		branch, err := g.CurrentBranch(ctx, ".")
		if err != nil {
			fmt.Printf("  %s\n\n", gray("not a git checkout"))
			return
		}

		branchNote := ""
		if branch == cfg.MainBranch {
			branchNote = "  " + yellow("(work belongs on a feature branch)")
		}
		fmt.Printf("  Branch: %s%s\n", branch, branchNote)

		if dirty, err := g.HasUncommittedChanges(ctx, "."); err == nil {
			if dirty {
				fmt.Printf("  Tree:   %s\n", yellow("uncommitted changes"))
			} else {
				fmt.Printf("  Tree:   clean\n")
			}
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
