package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Git implements Operations using the git CLI.
type Git struct {
	// gitPath is the path to the git executable
	gitPath string
}

// NewGit creates a new Git instance.
// It verifies that git is available on the system.
func NewGit(ctx context.Context) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Git{gitPath: gitPath}, nil
}

// HasUncommittedChanges checks if there are uncommitted changes.
// repoPath must be a validated, trusted path; this function does no
// path sandboxing of its own.
func (g *Git) HasUncommittedChanges(ctx context.Context, repoPath string) (bool, error) {
	status, err := g.GetStatus(ctx, repoPath)
	if err != nil {
		return false, fmt.Errorf("failed to check uncommitted changes in %s: %w", repoPath, err)
	}
	return status.HasChanges, nil
}

// GetStatus returns the git status of the repository.
func (g *Git) GetStatus(ctx context.Context, repoPath string) (*Status, error) {
	// git status --porcelain for machine-readable output
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "status", "--porcelain")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status failed in %s: %w", repoPath, err)
	}

	status := &Status{
		Modified:  []string{},
		Untracked: []string{},
		Deleted:   []string{},
		Added:     []string{},
		Renamed:   []string{},
	}

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 3 {
			continue
		}

		statusCode := line[0:2]
		filePath := line[3:]

		// XY status codes: X=index, Y=working tree
		switch {
		case strings.HasPrefix(statusCode, "??"):
			status.Untracked = append(status.Untracked, filePath)
		case strings.HasPrefix(statusCode, "A "), strings.HasPrefix(statusCode, "AM"):
			status.Added = append(status.Added, filePath)
		case strings.HasPrefix(statusCode, "M "), strings.HasPrefix(statusCode, " M"), strings.HasPrefix(statusCode, "MM"):
			status.Modified = append(status.Modified, filePath)
		case strings.HasPrefix(statusCode, "D "), strings.HasPrefix(statusCode, " D"):
			status.Deleted = append(status.Deleted, filePath)
		case strings.HasPrefix(statusCode, "R "):
			status.Renamed = append(status.Renamed, filePath)
		default:
			status.Modified = append(status.Modified, filePath)
		}

		status.HasChanges = true
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git status: %w", err)
	}

	return status, nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch in %s: %w", repoPath, err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "HEAD" {
		return "", fmt.Errorf("detached HEAD in %s", repoPath)
	}
	return branch, nil
}

// CommitChanges creates a git commit and returns the commit hash.
func (g *Git) CommitChanges(ctx context.Context, repoPath string, opts CommitOptions) (string, error) {
	if opts.Message == "" {
		return "", fmt.Errorf("commit message is required")
	}

	if opts.AddAll {
		addCmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "add", "-A")
		if err := addCmd.Run(); err != nil {
			return "", fmt.Errorf("git add failed in %s: %w", repoPath, err)
		}
	}

	args := []string{"-C", repoPath, "commit", "-m", opts.Message}
	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}

	commitCmd := exec.CommandContext(ctx, g.gitPath, args...)
	if err := commitCmd.Run(); err != nil {
		return "", fmt.Errorf("git commit failed in %s: %w", repoPath, err)
	}

	return g.ResolveRevision(ctx, repoPath, "HEAD")
}

// ResolveRevision resolves a revision to a full commit hash.
func (g *Git) ResolveRevision(ctx context.Context, repoPath, rev string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rev-parse", rev)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s in %s: %w", rev, repoPath, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// MergeBase returns the best common ancestor of two revisions.
func (g *Git) MergeBase(ctx context.Context, repoPath, a, b string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "merge-base", a, b)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git merge-base %s %s failed in %s: %w", a, b, repoPath, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// logFieldSep separates pretty-format fields; unit separator is safe
// because it cannot appear in names, emails, or subjects.
const logFieldSep = "\x1f"

// logFormat yields hash, author name/email, author time, commit time,
// parent hashes, and subject per commit, one commit per line.
const logFormat = "%H" + logFieldSep + "%an" + logFieldSep + "%ae" + logFieldSep +
	"%at" + logFieldSep + "%ct" + logFieldSep + "%P" + logFieldSep + "%s"

// Log returns commits reachable from the given revision or range.
func (g *Git) Log(ctx context.Context, repoPath string, opts LogOptions) ([]Commit, error) {
	rev := opts.Rev
	if rev == "" {
		rev = "HEAD"
	}

	args := []string{"-C", repoPath, "log", "--pretty=format:" + logFormat}
	if opts.MaxCount > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", opts.MaxCount))
	}
	args = append(args, rev)

	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log %s failed in %s: %w", rev, repoPath, err)
	}

	return parseLog(string(output))
}

// parseLog parses the output of git log in logFormat.
func parseLog(output string) ([]Commit, error) {
	var commits []Commit

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, logFieldSep)
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed log line (%d fields): %q", len(fields), line)
		}

		authorTS, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad author timestamp in %q: %w", line, err)
		}
		commitTS, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad commit timestamp in %q: %w", line, err)
		}

		parentCount := 0
		if p := strings.TrimSpace(fields[5]); p != "" {
			parentCount = len(strings.Fields(p))
		}

		commits = append(commits, Commit{
			Hash:        fields[0],
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			AuthorTime:  time.Unix(authorTS, 0).UTC(),
			CommitTime:  time.Unix(commitTS, 0).UTC(),
			ParentCount: parentCount,
			Subject:     fields[6],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git log: %w", err)
	}

	return commits, nil
}

// ListBranches returns local branch names.
func (g *Git) ListBranches(ctx context.Context, repoPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "branch", "--format=%(refname:short)")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git branch failed in %s: %w", repoPath, err)
	}
	return splitLines(string(output)), nil
}

// ListMergedBranches returns local branches already merged into target.
// The target branch itself is excluded from the result.
func (g *Git) ListMergedBranches(ctx context.Context, repoPath, target string) ([]string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath,
		"branch", "--merged", target, "--format=%(refname:short)")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git branch --merged %s failed in %s: %w", target, repoPath, err)
	}

	var branches []string
	for _, b := range splitLines(string(output)) {
		if b != target {
			branches = append(branches, b)
		}
	}
	return branches, nil
}

// DeleteBranch deletes a local branch. The branch must already be
// merged; this uses -d, not -D.
func (g *Git) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "branch", "-d", branch)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git branch -d %s failed in %s: %w\n%s", branch, repoPath, err, output)
	}
	return nil
}

// Rebase performs a git rebase operation.
func (g *Git) Rebase(ctx context.Context, repoPath string, opts RebaseOptions) (*RebaseResult, error) {
	if opts.Abort == (opts.BaseBranch != "") {
		return nil, fmt.Errorf("exactly one of BaseBranch or Abort must be specified")
	}

	result := &RebaseResult{}

	branch, err := g.CurrentBranch(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	result.CurrentBranch = branch

	if opts.Abort {
		abortCmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rebase", "--abort")
		if err := abortCmd.Run(); err != nil {
			result.ErrorMessage = fmt.Sprintf("rebase --abort failed: %v", err)
			return result, fmt.Errorf("git rebase --abort failed in %s: %w", repoPath, err)
		}
		result.Success = true
		return result, nil
	}

	result.BaseBranch = opts.BaseBranch

	rebaseCmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rebase", opts.BaseBranch)
	output, err := rebaseCmd.CombinedOutput()
	if err != nil {
		conflicted := g.conflictedFiles(ctx, repoPath)
		if len(conflicted) > 0 {
			// Conflicts are an expected outcome, not an error.
			result.HasConflicts = true
			result.ConflictedFiles = conflicted
			result.ErrorMessage = fmt.Sprintf("rebase stopped on conflicts: %s", output)
			return result, nil
		}

		result.ErrorMessage = fmt.Sprintf("rebase failed: %v\nOutput: %s", err, output)
		return result, fmt.Errorf("git rebase failed in %s: %w", repoPath, err)
	}

	result.Success = true
	return result, nil
}

// conflictedFiles returns files with unresolved merge conflicts.
func (g *Git) conflictedFiles(ctx context.Context, repoPath string) []string {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath,
		"diff", "--name-only", "--diff-filter=U")
	output, err := cmd.Output()
	if err != nil {
		return nil
	}
	return splitLines(string(output))
}

// DiffStat returns the diffstat between two revisions.
func (g *Git) DiffStat(ctx context.Context, repoPath, base, head string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath,
		"diff", "--stat", base+".."+head)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff --stat %s..%s failed in %s: %w", base, head, repoPath, err)
	}
	return string(output), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
