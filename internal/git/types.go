package git

import (
	"context"
	"time"
)

// Operations provides the git operations needed by the policy audit,
// the shortlog report, and the workflow commit stage. The interface is
// implementation-agnostic so tests can substitute mocks.
type Operations interface {
	// HasUncommittedChanges checks if there are staged or unstaged changes.
	HasUncommittedChanges(ctx context.Context, repoPath string) (bool, error)

	// GetStatus returns detailed git status information.
	GetStatus(ctx context.Context, repoPath string) (*Status, error)

	// CurrentBranch returns the checked-out branch name, or an error
	// for a detached HEAD.
	CurrentBranch(ctx context.Context, repoPath string) (string, error)

	// CommitChanges creates a commit and returns its hash.
	CommitChanges(ctx context.Context, repoPath string, opts CommitOptions) (string, error)

	// Log returns commits reachable from the given revision range.
	Log(ctx context.Context, repoPath string, opts LogOptions) ([]Commit, error)

	// MergeBase returns the best common ancestor of two revisions.
	MergeBase(ctx context.Context, repoPath, a, b string) (string, error)

	// ResolveRevision resolves a revision (branch, tag, HEAD) to a hash.
	ResolveRevision(ctx context.Context, repoPath, rev string) (string, error)

	// ListBranches returns local branch names.
	ListBranches(ctx context.Context, repoPath string) ([]string, error)

	// ListMergedBranches returns local branches already merged into target.
	ListMergedBranches(ctx context.Context, repoPath, target string) ([]string, error)

	// DeleteBranch deletes a local branch.
	DeleteBranch(ctx context.Context, repoPath, branch string) error

	// Rebase performs a git rebase operation.
	Rebase(ctx context.Context, repoPath string, opts RebaseOptions) (*RebaseResult, error)

	// DiffStat returns the diffstat between two revisions.
	DiffStat(ctx context.Context, repoPath, base, head string) (string, error)
}

// Status represents the git status of a repository.
type Status struct {
	// Modified files (staged or unstaged)
	Modified []string

	// Untracked files
	Untracked []string

	// Deleted files
	Deleted []string

	// Added files (staged)
	Added []string

	// Renamed files
	Renamed []string

	// HasChanges is true if any changes exist
	HasChanges bool
}

// CommitOptions configures a git commit operation.
type CommitOptions struct {
	// Message is the commit message
	Message string

	// Author specifies the author (optional, uses git config if empty)
	Author string

	// AddAll stages all changes before committing (git add -A)
	AddAll bool

	// AllowEmpty allows creating an empty commit
	AllowEmpty bool
}

// Commit is one entry from the commit log.
type Commit struct {
	// Hash is the full commit hash.
	Hash string

	// AuthorName and AuthorEmail identify the author.
	AuthorName  string
	AuthorEmail string

	// AuthorTime is when the change was authored.
	AuthorTime time.Time

	// CommitTime is when the commit landed; date filters and the
	// shortlog use this, matching `git log` semantics.
	CommitTime time.Time

	// Subject is the first line of the commit message.
	Subject string

	// ParentCount distinguishes merge commits (2+) from regular ones.
	ParentCount int
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool {
	return c.ParentCount > 1
}

// LogOptions configures a commit log query.
type LogOptions struct {
	// Rev is the revision or range to walk (default "HEAD").
	// Examples: "HEAD", "main..feature/retry".
	Rev string

	// MaxCount limits the number of commits returned (0 = unlimited).
	MaxCount int
}

// RebaseOptions configures a git rebase operation.
type RebaseOptions struct {
	// BaseBranch is the branch to rebase onto (e.g., "main").
	BaseBranch string

	// Abort will abort an in-progress rebase if true.
	// Mutually exclusive with BaseBranch.
	Abort bool
}

// RebaseResult contains the outcome of a rebase operation.
type RebaseResult struct {
	// Success indicates whether the rebase completed successfully
	Success bool

	// HasConflicts indicates whether merge conflicts were detected
	HasConflicts bool

	// ConflictedFiles lists files with merge conflicts
	ConflictedFiles []string

	// CurrentBranch is the branch that was being rebased
	CurrentBranch string

	// BaseBranch is the branch being rebased onto
	BaseBranch string

	// ErrorMessage contains any error message from the rebase operation
	ErrorMessage string
}
