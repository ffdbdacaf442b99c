package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/git"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete local branches already merged into main",
	Long: `Delete local branches whose commits are fully merged into main.
Merged branches serve no purpose and clutter branch listings.

With --dry-run the branches are listed but not deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		g, err := git.NewGit(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()

		if cleanupDryRun {
			merged, err := g.ListMergedBranches(ctx, ".", cfg.MainBranch)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(merged) == 0 {
				fmt.Printf("%s\n", gray("No merged branches to delete"))
				return
			}
			fmt.Printf("Would delete %d merged branch(es):\n", len(merged))
			for _, b := range merged {
				fmt.Printf("  %s\n", b)
			}
			return
		}

		checker := newChecker(ctx)
		deleted, err := checker.CleanupMergedBranches(ctx, ".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(deleted) == 0 {
			fmt.Printf("%s\n", gray("No merged branches to delete"))
			return
		}
		for _, b := range deleted {
			fmt.Printf("%s Deleted %s\n", color.GreenString("✓"), b)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "List merged branches without deleting them")
}
