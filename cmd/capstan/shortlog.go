package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/shortlog"
)

var shortlogOpts shortlog.Options

var shortlogCmd = &cobra.Command{
	Use:   "shortlog [revision-range]",
	Short: "Summarize commit history by author",
	Long: `Summarize commit history grouped by author, with per-author commit
counts and subjects. Defaults to HEAD; pass a revision or range to
summarize part of the history.

Example:
  capstan shortlog -sn
  capstan shortlog -e main..feature/session-timeout
  capstan shortlog --since 2026-01-01`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		g, err := git.NewGit(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		opts := shortlogOpts
		if len(args) == 1 {
			opts.Rev = args[0]
		}

		if err := shortlog.Report(ctx, g, ".", opts, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(shortlogCmd)
	shortlogCmd.Flags().BoolVarP(&shortlogOpts.Numbered, "numbered", "n", false, "Sort by descending commit count")
	shortlogCmd.Flags().BoolVarP(&shortlogOpts.Summary, "summary", "s", false, "Suppress commit subjects, show counts only")
	shortlogCmd.Flags().BoolVarP(&shortlogOpts.Email, "email", "e", false, "Group by and show author email")
	shortlogCmd.Flags().StringVar(&shortlogOpts.Since, "since", "", "Only commits at or after this date (YYYY-MM-DD)")
	shortlogCmd.Flags().StringVar(&shortlogOpts.Until, "until", "", "Only commits at or before this date (YYYY-MM-DD)")
}
