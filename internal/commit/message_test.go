package commit

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func lintCodes(raw string) []string {
	violations := Lint(raw, DefaultRules())
	codes := make([]string, len(violations))
	for i, v := range violations {
		codes[i] = v.Code
	}
	return codes
}

func hasCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLintValidSubjects(t *testing.T) {
	valid := []string{
		"feat: add retry backoff to fetch client",
		"fix: handle empty porcelain status lines",
		"refactor(storage): extract id counter helper",
		"docs: describe branch policy audit",
		"test: cover plan step cycle detection",
		"chore: bump sqlite driver",
		"perf: cache merge-base lookups",
		"ci: run lint gate on pull requests",
	}

	for _, subject := range valid {
		if violations := Lint(subject, DefaultRules()); len(violations) != 0 {
			t.Errorf("%q: unexpected violations: %v", subject, violations)
		}
	}
}

func TestLintRejectsMissingType(t *testing.T) {
	codes := lintCodes("Added new retry logic for the fetch client because it kept failing sometimes")
	if !hasCode(codes, "MALFORMED_HEADER") {
		t.Errorf("expected MALFORMED_HEADER, got %v", codes)
	}
	if !hasCode(codes, "SUBJECT_TOO_LONG") {
		t.Errorf("expected SUBJECT_TOO_LONG, got %v", codes)
	}
}

func TestLintRejectsUnknownType(t *testing.T) {
	codes := lintCodes("feature: add retry backoff")
	if !hasCode(codes, "UNKNOWN_TYPE") {
		t.Errorf("expected UNKNOWN_TYPE, got %v", codes)
	}
}

func TestLintRejectsNonImperativeMood(t *testing.T) {
	for _, subject := range []string{
		"feat: added retry backoff",
		"fix: fixing the status parser",
		"fix: fixes the status parser",
	} {
		if !hasCode(lintCodes(subject), "NON_IMPERATIVE") {
			t.Errorf("%q: expected NON_IMPERATIVE", subject)
		}
	}

	// Allowlisted verbs that merely look past-tense or continuous
	for _, subject := range []string{
		"feat: embed default agent profiles",
		"fix: speed up merge-base lookups",
		"feat: bring shortlog output in line with git",
	} {
		if hasCode(lintCodes(subject), "NON_IMPERATIVE") {
			t.Errorf("%q: unexpected NON_IMPERATIVE", subject)
		}
	}
}

func TestLintSubjectLength(t *testing.T) {
	subject := "feat: " + strings.Repeat("a", 67) // 73 total
	if !hasCode(lintCodes(subject), "SUBJECT_TOO_LONG") {
		t.Error("expected SUBJECT_TOO_LONG at 73 characters")
	}

	subject = "feat: " + strings.Repeat("a", 66) // 72 total
	if hasCode(lintCodes(subject), "SUBJECT_TOO_LONG") {
		t.Error("unexpected SUBJECT_TOO_LONG at exactly 72 characters")
	}

	// The limit counts characters, not bytes: "ñ" is two bytes but one
	// character, so this 72-character subject must pass.
	subject = "feat: añadir " + strings.Repeat("a", 59)
	if n := utf8.RuneCountInString(subject); n != 72 {
		t.Fatalf("test subject is %d runes, want 72", n)
	}
	if hasCode(lintCodes(subject), "SUBJECT_TOO_LONG") {
		t.Error("unexpected SUBJECT_TOO_LONG for 72-character multi-byte subject")
	}
}

func TestLintTrailingPeriod(t *testing.T) {
	if !hasCode(lintCodes("fix: repair the audit command."), "TRAILING_PERIOD") {
		t.Error("expected TRAILING_PERIOD")
	}
}

func TestLintBodySeparator(t *testing.T) {
	msg := "feat: add retry backoff\n\nRetries were hammering the upstream without a delay."
	if violations := Lint(msg, DefaultRules()); len(violations) != 0 {
		t.Errorf("unexpected violations: %v", violations)
	}

	msg = "feat: add retry backoff\nRetries were hammering the upstream."
	if !hasCode(lintCodes(msg), "MISSING_BLANK_LINE") {
		t.Error("expected MISSING_BLANK_LINE")
	}
}

func TestLintEmptyMessage(t *testing.T) {
	codes := lintCodes("   \n\n")
	if len(codes) != 1 || codes[0] != "EMPTY_MESSAGE" {
		t.Errorf("expected only EMPTY_MESSAGE, got %v", codes)
	}
}

func TestParse(t *testing.T) {
	msg := Parse("feat(git): add rebase detection\n\nThe audit needs to know whether a\nbranch was rebased.\n")
	if msg.Type != TypeFeat {
		t.Errorf("expected type feat, got %s", msg.Type)
	}
	if msg.Scope != "git" {
		t.Errorf("expected scope git, got %q", msg.Scope)
	}
	if msg.Description != "add rebase detection" {
		t.Errorf("unexpected description: %q", msg.Description)
	}
	if !strings.Contains(msg.Body, "branch was rebased") {
		t.Errorf("unexpected body: %q", msg.Body)
	}
}

func TestParseMalformedHeaderKeepsSubject(t *testing.T) {
	msg := Parse("just some words")
	if msg.Type != "" {
		t.Errorf("expected empty type, got %s", msg.Type)
	}
	if msg.Subject != "just some words" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
}
