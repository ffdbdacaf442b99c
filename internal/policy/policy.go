// Package policy audits repositories against the branch and commit
// workflow: feature branches off main, no direct commits to main,
// conventional commit subjects, rebase before merge, and branch
// cleanup after merge.
package policy

import (
	"context"
	"fmt"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/git"
)

// Violation is a single policy finding.
type Violation struct {
	// Code is a machine-readable identifier (e.g., "DIRECT_COMMIT_ON_MAIN").
	Code string

	// Message is a human-readable description.
	Message string

	// Ref names the commit or branch the finding applies to.
	Ref string
}

// Result collects findings from a policy check.
type Result struct {
	// Errors block the operation being checked.
	Errors []Violation

	// Warnings are advisory.
	Warnings []Violation
}

// OK returns true when the result has no errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Checker audits a repository against the branch workflow.
type Checker struct {
	git        git.Operations
	mainBranch string
	rules      commit.Rules
}

// NewChecker creates a policy checker for the given main branch.
func NewChecker(g git.Operations, mainBranch string, rules commit.Rules) *Checker {
	if mainBranch == "" {
		mainBranch = "main"
	}
	return &Checker{git: g, mainBranch: mainBranch, rules: rules}
}

// CheckWorkingBranch verifies that the current branch may receive
// commits. Committing directly to main is a policy error.
func (c *Checker) CheckWorkingBranch(ctx context.Context, repoPath string) (Result, error) {
	var result Result

	branch, err := c.git.CurrentBranch(ctx, repoPath)
	if err != nil {
		return result, err
	}

	if branch == c.mainBranch {
		result.Errors = append(result.Errors, Violation{
			Code:    "DIRECT_COMMIT_ON_MAIN",
			Message: fmt.Sprintf("work happens on feature branches, not on %s: create a branch first", c.mainBranch),
			Ref:     branch,
		})
	}

	return result, nil
}

// AuditMainHistory scans recent commits on main. Every non-merge
// commit on main arrived outside the branch workflow.
func (c *Checker) AuditMainHistory(ctx context.Context, repoPath string, maxCount int) (Result, error) {
	var result Result

	commits, err := c.git.Log(ctx, repoPath, git.LogOptions{Rev: c.mainBranch, MaxCount: maxCount})
	if err != nil {
		return result, err
	}

	for _, ci := range commits {
		if ci.IsMerge() {
			continue
		}
		result.Warnings = append(result.Warnings, Violation{
			Code:    "NON_MERGE_COMMIT_ON_MAIN",
			Message: fmt.Sprintf("commit %.12s landed on %s without a merge: %s", ci.Hash, c.mainBranch, ci.Subject),
			Ref:     ci.Hash,
		})
	}

	return result, nil
}

// CheckRebased verifies that branch is rebased onto the tip of main.
// A branch whose merge base is not main's HEAD must rebase before merging.
func (c *Checker) CheckRebased(ctx context.Context, repoPath, branch string) (Result, error) {
	var result Result

	mainHead, err := c.git.ResolveRevision(ctx, repoPath, c.mainBranch)
	if err != nil {
		return result, err
	}
	base, err := c.git.MergeBase(ctx, repoPath, branch, c.mainBranch)
	if err != nil {
		return result, err
	}

	if base != mainHead {
		result.Errors = append(result.Errors, Violation{
			Code:    "NOT_REBASED",
			Message: fmt.Sprintf("branch %s is based on %.12s but %s is at %.12s: rebase before merging", branch, base, c.mainBranch, mainHead),
			Ref:     branch,
		})
	}

	return result, nil
}

// CheckCommitRange lints every commit subject on branch that is not
// yet on main.
func (c *Checker) CheckCommitRange(ctx context.Context, repoPath, branch string) (Result, error) {
	var result Result

	commits, err := c.git.Log(ctx, repoPath, git.LogOptions{
		Rev: c.mainBranch + ".." + branch,
	})
	if err != nil {
		return result, err
	}

	for _, ci := range commits {
		if ci.IsMerge() {
			continue
		}
		for _, v := range commit.Lint(ci.Subject, c.rules) {
			result.Errors = append(result.Errors, Violation{
				Code:    v.Code,
				Message: fmt.Sprintf("%.12s: %s", ci.Hash, v.Message),
				Ref:     ci.Hash,
			})
		}
	}

	return result, nil
}

// StaleBranches returns merged branches that should have been deleted.
func (c *Checker) StaleBranches(ctx context.Context, repoPath string) (Result, error) {
	var result Result

	merged, err := c.git.ListMergedBranches(ctx, repoPath, c.mainBranch)
	if err != nil {
		return result, err
	}

	for _, branch := range merged {
		result.Warnings = append(result.Warnings, Violation{
			Code:    "STALE_MERGED_BRANCH",
			Message: fmt.Sprintf("branch %s is merged into %s and should be deleted", branch, c.mainBranch),
			Ref:     branch,
		})
	}

	return result, nil
}

// CleanupMergedBranches deletes branches already merged into main and
// returns their names.
func (c *Checker) CleanupMergedBranches(ctx context.Context, repoPath string) ([]string, error) {
	merged, err := c.git.ListMergedBranches(ctx, repoPath, c.mainBranch)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, branch := range merged {
		if err := c.git.DeleteBranch(ctx, repoPath, branch); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", branch, err)
		}
		deleted = append(deleted, branch)
	}
	return deleted, nil
}

// Audit runs the full repository audit: main history, stale branches,
// and, when the current branch is not main, its rebase state and
// commit subjects.
func (c *Checker) Audit(ctx context.Context, repoPath string, historyDepth int) (Result, error) {
	var result Result

	history, err := c.AuditMainHistory(ctx, repoPath, historyDepth)
	if err != nil {
		return result, err
	}
	result = merge(result, history)

	stale, err := c.StaleBranches(ctx, repoPath)
	if err != nil {
		return result, err
	}
	result = merge(result, stale)

	branch, err := c.git.CurrentBranch(ctx, repoPath)
	if err != nil {
		return result, err
	}
	if branch != c.mainBranch {
		rebased, err := c.CheckRebased(ctx, repoPath, branch)
		if err != nil {
			return result, err
		}
		result = merge(result, rebased)

		subjects, err := c.CheckCommitRange(ctx, repoPath, branch)
		if err != nil {
			return result, err
		}
		result = merge(result, subjects)
	}

	return result, nil
}

func merge(a, b Result) Result {
	a.Errors = append(a.Errors, b.Errors...)
	a.Warnings = append(a.Warnings, b.Warnings...)
	return a
}
