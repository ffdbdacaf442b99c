package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/capstanhq/capstan/internal/commit"
	"github.com/capstanhq/capstan/internal/git"
)

// maxFilesPerChange is the diff size above which a pull request is
// probably bundling more than one logical change.
const maxFilesPerChange = 30

// PRDraft describes a pull request about to be opened.
type PRDraft struct {
	Title  string
	Body   string
	Branch string
	Base   string
}

// CheckPR audits a pull request draft: the title must parse as a
// conventional commit subject, the body must carry a test plan, the
// branch must target main and be rebased onto it, and the diff should
// stay scoped to one logical change.
func (c *Checker) CheckPR(ctx context.Context, repoPath string, draft PRDraft) (Result, error) {
	var result Result

	base := draft.Base
	if base == "" {
		base = c.mainBranch
	}

	if draft.Branch == "" || draft.Branch == base {
		result.Errors = append(result.Errors, Violation{
			Code:    "BAD_PR_BRANCH",
			Message: fmt.Sprintf("pull request needs a feature branch distinct from %s", base),
			Ref:     draft.Branch,
		})
		return result, nil
	}

	for _, v := range commit.Lint(draft.Title, c.rules) {
		result.Errors = append(result.Errors, Violation{
			Code:    "PR_TITLE_" + v.Code,
			Message: "title: " + v.Message,
			Ref:     draft.Branch,
		})
	}

	if !hasTestPlan(draft.Body) {
		result.Errors = append(result.Errors, Violation{
			Code:    "MISSING_TEST_PLAN",
			Message: "pull request body has no test plan section",
			Ref:     draft.Branch,
		})
	}

	rebased, err := c.CheckRebased(ctx, repoPath, draft.Branch)
	if err != nil {
		return result, err
	}
	result = merge(result, rebased)

	subjects, err := c.CheckCommitRange(ctx, repoPath, draft.Branch)
	if err != nil {
		return result, err
	}
	result = merge(result, subjects)

	if types := c.commitTypes(ctx, repoPath, base, draft.Branch); len(types) > 1 {
		result.Warnings = append(result.Warnings, Violation{
			Code:    "MIXED_TYPES",
			Message: fmt.Sprintf("commits mix types (%s); a pull request should cover one logical change", strings.Join(types, ", ")),
			Ref:     draft.Branch,
		})
	}

	stat, err := c.git.DiffStat(ctx, repoPath, base, draft.Branch)
	if err != nil {
		return result, err
	}
	if n := countChangedFiles(stat); n > maxFilesPerChange {
		result.Warnings = append(result.Warnings, Violation{
			Code:    "OVERSIZED_CHANGE",
			Message: fmt.Sprintf("diff touches %d files; a pull request should cover one logical change", n),
			Ref:     draft.Branch,
		})
	}

	return result, nil
}

// commitTypes collects the distinct conventional commit types used on
// base..branch, in first-seen order. Merge commits and subjects that do
// not parse are skipped; the range lint reports those separately.
func (c *Checker) commitTypes(ctx context.Context, repoPath, base, branch string) []string {
	commits, err := c.git.Log(ctx, repoPath, git.LogOptions{Rev: base + ".." + branch})
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var types []string
	for _, ci := range commits {
		if ci.IsMerge() {
			continue
		}
		t := string(commit.Parse(ci.Subject).Type)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types
}

// hasTestPlan reports whether the body carries a test plan section in
// any of the common spellings.
func hasTestPlan(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range []string{"test plan", "testing", "how to test"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// countChangedFiles counts the per-file entries in git diff --stat
// output. The trailing summary line ("N files changed, ...") is not a
// file entry.
func countChangedFiles(stat string) int {
	count := 0
	for _, line := range strings.Split(stat, "\n") {
		if strings.Contains(line, "|") {
			count++
		}
	}
	return count
}
