package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/policy"
)

var (
	auditDepth int

	auditPRTitle  string
	auditPRBody   string
	auditPRBranch string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the repository against the branch policy",
	Long: `Audit the repository: no work on main, only merge commits in recent
main history, and no stale merged branches left behind.

Errors are policy violations; warnings flag hygiene issues.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		checker := newChecker(ctx)

		result, err := checker.Audit(ctx, ".", auditDepth)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printResult(result)
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
	},
}

var auditPRCmd = &cobra.Command{
	Use:   "pr",
	Short: "Check a pull request draft before opening it",
	Long: `Check a pull request draft: the title must be a valid commit header,
the body needs a test plan, the branch must be rebased on main with
clean commit subjects, and the diff should stay reviewable.

Example:
  capstan audit pr --branch feature/session-timeout \
    --title "feat(auth): add session timeout" \
    --body "$(cat pr.md)"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		checker := newChecker(ctx)

		branch := auditPRBranch
		if branch == "" {
			g, err := git.NewGit(ctx)
			if err == nil {
				branch, _ = g.CurrentBranch(ctx, ".")
			}
		}

		draft := policy.PRDraft{
			Title:  auditPRTitle,
			Body:   auditPRBody,
			Branch: branch,
			Base:   cfg.MainBranch,
		}
		result, err := checker.CheckPR(ctx, ".", draft)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printResult(result)
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
		fmt.Printf("%s Pull request draft passes\n", color.GreenString("✓"))
	},
}

func newChecker(ctx context.Context) *policy.Checker {
	g, err := git.NewGit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return policy.NewChecker(g, cfg.MainBranch, commitRules())
}

func printResult(result policy.Result) {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, v := range result.Errors {
		line := fmt.Sprintf("%s %s: %s", red("✗"), v.Code, v.Message)
		if v.Ref != "" {
			line += "  " + gray(shortRef(v.Ref))
		}
		fmt.Println(line)
	}
	for _, v := range result.Warnings {
		line := fmt.Sprintf("%s %s: %s", yellow("!"), v.Code, v.Message)
		if v.Ref != "" {
			line += "  " + gray(shortRef(v.Ref))
		}
		fmt.Println(line)
	}
	if result.OK() {
		fmt.Printf("%s No policy violations\n", color.GreenString("✓"))
	}
}

func shortRef(ref string) string {
	if len(ref) > 12 && !containsNonHex(ref) {
		return ref[:12]
	}
	return ref
}

func containsNonHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditPRCmd)

	auditCmd.Flags().IntVar(&auditDepth, "depth", 50, "Number of main commits to audit")
	auditPRCmd.Flags().StringVar(&auditPRTitle, "title", "", "Pull request title (required)")
	auditPRCmd.Flags().StringVar(&auditPRBody, "body", "", "Pull request body")
	auditPRCmd.Flags().StringVar(&auditPRBranch, "branch", "", "Source branch (default: current branch)")
	_ = auditPRCmd.MarkFlagRequired("title")
}
