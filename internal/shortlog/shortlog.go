// Package shortlog summarizes commit history by author, in the style
// of git shortlog. Used for release announcements and contributor
// overviews.
package shortlog

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/capstanhq/capstan/internal/git"
)

// Options controls the report.
type Options struct {
	// Rev is the revision or range to summarize. Defaults to HEAD.
	Rev string

	// Numbered sorts authors by descending commit count instead of by name.
	Numbered bool

	// Summary emits only per-author commit counts, suppressing subjects.
	Summary bool

	// Email includes the author email in the report header and groups
	// authors by name plus email instead of name only.
	Email bool

	// Since restricts the report to commits at or after this date.
	Since string

	// Until restricts the report to commits at or before this date.
	Until string
}

// AuthorStats tracks per-author aggregates.
type AuthorStats struct {
	Name     string
	Email    string
	Count    int
	Subjects []string
}

// Report runs the shortlog against a repository and writes the result.
// The writer parameterization keeps the formatting testable.
func Report(ctx context.Context, g git.Operations, repoPath string, opts Options, w io.Writer) error {
	since, until, err := parseRange(opts.Since, opts.Until)
	if err != nil {
		return err
	}

	commits, err := g.Log(ctx, repoPath, git.LogOptions{Rev: opts.Rev})
	if err != nil {
		return err
	}

	filtered := commits[:0:0]
	for _, c := range commits {
		if passesFilter(c, since, until) {
			filtered = append(filtered, c)
		}
	}

	stats := Aggregate(filtered, opts.Email)
	return Write(w, stats, opts)
}

// Aggregate groups commits by author identity. When byEmail is set the
// grouping key is "name <email>", so the same name with different
// addresses stays separate; otherwise emails merge under the name.
func Aggregate(commits []git.Commit, byEmail bool) []*AuthorStats {
	byKey := make(map[string]*AuthorStats)
	var order []string

	for _, c := range commits {
		key := c.AuthorName
		if byEmail {
			key = fmt.Sprintf("%s <%s>", c.AuthorName, c.AuthorEmail)
		}

		stats, ok := byKey[key]
		if !ok {
			stats = &AuthorStats{Name: c.AuthorName, Email: c.AuthorEmail}
			byKey[key] = stats
			order = append(order, key)
		}
		stats.Count++
		stats.Subjects = append(stats.Subjects, strings.TrimSpace(c.Subject))
	}

	result := make([]*AuthorStats, 0, len(order))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	return result
}

// Write renders the aggregated stats. Authors sort by name, or by
// descending count with name as tiebreaker when Numbered is set.
func Write(w io.Writer, stats []*AuthorStats, opts Options) error {
	sorted := make([]*AuthorStats, len(stats))
	copy(sorted, stats)

	if opts.Numbered {
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Count != sorted[j].Count {
				return sorted[i].Count > sorted[j].Count
			}
			return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
		})
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
		})
	}

	// Width of the count column: at least 4 to preserve the layout on
	// small repositories.
	maxCount := 0
	for _, s := range sorted {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	width := len(fmt.Sprintf("%d", maxCount))
	if width < 4 {
		width = 4
	}

	for _, s := range sorted {
		var err error
		if opts.Email {
			_, err = fmt.Fprintf(w, "%*d  %s <%s>\n", width, s.Count, s.Name, s.Email)
		} else {
			_, err = fmt.Fprintf(w, "%*d  %s\n", width, s.Count, s.Name)
		}
		if err != nil {
			return err
		}

		if !opts.Summary {
			for _, subject := range s.Subjects {
				if _, err := fmt.Fprintf(w, "      %s\n", subject); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// dateLayouts are the accepted --since/--until formats.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a user-supplied date string.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %q (use YYYY-MM-DD)", s)
}

func parseRange(sinceStr, untilStr string) (since, until *time.Time, err error) {
	if sinceStr != "" {
		t, err := ParseDate(sinceStr)
		if err != nil {
			return nil, nil, err
		}
		since = &t
	}
	if untilStr != "" {
		t, err := ParseDate(untilStr)
		if err != nil {
			return nil, nil, err
		}
		until = &t
	}
	return since, until, nil
}

// passesFilter applies since/until against the committer timestamp, to
// match git log.
func passesFilter(c git.Commit, since, until *time.Time) bool {
	if since != nil && c.CommitTime.Before(*since) {
		return false
	}
	if until != nil && c.CommitTime.After(*until) {
		return false
	}
	return true
}
