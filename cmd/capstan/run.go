package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/policy"
	"github.com/capstanhq/capstan/internal/workflow"
)

var runMessage string

var runCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run a task through the test, lint, and commit workflow",
	Long: `Run a task through the workflow: verify the task and its approved
plan, confirm work exists on a feature branch, run the test gates, run
the lint gates and the commit message check, then commit.

A failing gate blocks the task and files a blocking task per failure;
fix those first, then run again.

Example:
  capstan run cap-7 -m "feat(auth): add session timeout"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		g, err := git.NewGit(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rules := commitRules()
		engine, err := workflow.NewEngine(&workflow.Config{
			Store:    s,
			Git:      g,
			Gates:    workflow.NewGateRunner(".", cfg.Gates, cfg.GatesParallel),
			Checker:  policy.NewChecker(g, cfg.MainBranch, rules),
			Rules:    rules,
			RepoPath: ".",
			Actor:    actor.String(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		run, err := engine.Execute(ctx, args[0], runMessage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printRun(run)
		if run.Stage == workflow.StageFailed {
			os.Exit(1)
		}
	},
}

func printRun(run *workflow.Run) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\nRun %s for %s\n\n", gray(run.ID), color.CyanString(run.TaskID))

	for _, gr := range run.GateResults {
		mark := green("✓")
		if !gr.Passed {
			mark = red("✗")
		}
		fmt.Printf("  %s %s gate %q (%s)\n", mark, gr.Stage, gr.Name, gr.Duration.Round(time.Millisecond))
		if !gr.Passed && gr.Output != "" {
			fmt.Printf("%s\n", gray(indent(gr.Output, "      ")))
		}
	}
	if len(run.GateResults) > 0 {
		fmt.Println()
	}

	if run.Stage == workflow.StageFailed {
		fmt.Printf("%s Run failed during %s: %s\n", red("✗"), lastStageLabel(run), run.Error)
		return
	}
	fmt.Printf("%s Task %s completed, commit %s\n", green("✓"), run.TaskID, color.CyanString(shortRef(run.CommitHash)))
}

func lastStageLabel(run *workflow.Run) string {
	// The failure comment carries the stage; the run itself only keeps
	// the terminal state, so summarize from what we have.
	if len(run.GateResults) > 0 {
		for _, gr := range run.GateResults {
			if !gr.Passed {
				return gr.Stage + " gates"
			}
		}
	}
	return "the workflow"
}

func indent(s, prefix string) string {
	s = strings.TrimRight(s, "\n")
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runMessage, "message", "m", "", "Commit message for the change (required)")
	_ = runCmd.MarkFlagRequired("message")
}
