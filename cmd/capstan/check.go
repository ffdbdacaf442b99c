package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/git"
	"github.com/capstanhq/capstan/internal/policy"
)

var (
	checkFile   string
	checkBranch string
)

var checkCmd = &cobra.Command{
	Use:   "check [message]",
	Short: "Lint a commit message against the workflow rules",
	Long: `Lint a commit message: "type(scope): description" header with an
allowed type, an imperative description, a subject within the length
limit, and a blank line before the body.

The message comes from the argument, from --file (use "-" for stdin),
or with --branch every commit subject on main..branch is linted.

Example:
  capstan check "feat(auth): add session timeout"
  git log -1 --format=%B | capstan check --file -
  capstan check --branch feature/session-timeout`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		rules := commitRules()

		if checkBranch != "" {
			checkBranchCommits(ctx, rules)
			return
		}

		raw, err := readMessage(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		violations := commit.Lint(raw, rules)
		if len(violations) == 0 {
			fmt.Printf("%s Commit message is valid\n", color.GreenString("✓"))
			return
		}

		red := color.New(color.FgRed).SprintFunc()
		for _, v := range violations {
			fmt.Printf("%s %s\n", red("✗"), v.String())
		}
		os.Exit(1)
	},
}

func readMessage(args []string) (string, error) {
	if len(args) == 1 && checkFile == "" {
		return args[0], nil
	}
	switch checkFile {
	case "":
		return "", fmt.Errorf("no message given; pass a message, --file, or --branch")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(checkFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", checkFile, err)
		}
		return string(data), nil
	}
}

// checkBranchCommits lints every commit subject on main..branch.
func checkBranchCommits(ctx context.Context, rules commit.Rules) {
	g, err := git.NewGit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	checker := policy.NewChecker(g, cfg.MainBranch, rules)
	result, err := checker.CheckCommitRange(ctx, ".", checkBranch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if result.OK() {
		fmt.Printf("%s All commits on %s..%s pass\n", color.GreenString("✓"), cfg.MainBranch, checkBranch)
		return
	}

	red := color.New(color.FgRed).SprintFunc()
	for _, v := range result.Errors {
		ref := v.Ref
		if ref != "" && len(ref) > 12 {
			ref = ref[:12]
		}
		fmt.Printf("%s %s %s: %s\n", red("✗"), ref, v.Code, v.Message)
	}
	plural := ""
	if len(result.Errors) != 1 {
		plural = "s"
	}
	fmt.Fprintf(os.Stderr, "\n%d violation%s on %s\n", len(result.Errors), plural, strings.TrimSpace(checkBranch))
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFile, "file", "F", "", `Read the message from a file ("-" for stdin)`)
	checkCmd.Flags().StringVar(&checkBranch, "branch", "", "Lint all commit subjects on main..branch")
}
