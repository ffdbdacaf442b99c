// Package commit implements the conventional commit message grammar
// enforced across the repository: a `type: description` subject line
// with a fixed type vocabulary, a length cap, imperative mood, and an
// optional rationale body separated by a blank line.
package commit

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Type classifies a commit's purpose.
type Type string

const (
	TypeFeat     Type = "feat"
	TypeFix      Type = "fix"
	TypeRefactor Type = "refactor"
	TypeDocs     Type = "docs"
	TypeTest     Type = "test"
	TypeChore    Type = "chore"
	TypePerf     Type = "perf"
	TypeCI       Type = "ci"
)

// DefaultTypes is the fixed set of allowed commit types.
var DefaultTypes = []Type{
	TypeFeat, TypeFix, TypeRefactor, TypeDocs,
	TypeTest, TypeChore, TypePerf, TypeCI,
}

// DefaultMaxSubjectLength caps the subject line, total, including the
// type prefix.
const DefaultMaxSubjectLength = 72

// Message is a parsed commit message.
type Message struct {
	// Subject is the full first line of the message.
	Subject string

	// Type is the parsed commit type (empty if the header did not parse).
	Type Type

	// Scope is the optional parenthesized scope (e.g. "git" in "feat(git): ...").
	Scope string

	// Description is the text after "type: ".
	Description string

	// Body is everything after the subject and its separating blank line.
	Body string
}

// Violation is a single conformance failure, with a machine-readable code.
type Violation struct {
	Code    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Rules configures message validation. The zero value is not usable;
// call DefaultRules or build one from config.
type Rules struct {
	// AllowedTypes is the permitted commit type vocabulary.
	AllowedTypes []Type

	// MaxSubjectLength is the total subject line cap in bytes.
	MaxSubjectLength int
}

// DefaultRules returns the standard rule set: the fixed eight-type
// vocabulary and a 72-character subject cap.
func DefaultRules() Rules {
	return Rules{
		AllowedTypes:     DefaultTypes,
		MaxSubjectLength: DefaultMaxSubjectLength,
	}
}

// headerRe matches "type: description" with an optional "(scope)".
var headerRe = regexp.MustCompile(`^([a-z]+)(?:\(([^()\s]+)\))?: (.+)$`)

// Parse splits a raw commit message into subject and body and parses
// the conventional header. The header fields are left empty when the
// subject does not match the grammar; Lint reports the specifics.
func Parse(raw string) *Message {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	msg := &Message{Subject: strings.TrimRight(lines[0], " \t")}

	if len(lines) > 1 {
		// Body starts after the blank separator line; a missing
		// separator is a lint violation but the body is still captured.
		rest := lines[1:]
		if len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}
		msg.Body = strings.TrimRight(strings.Join(rest, "\n"), "\n")
	}

	if m := headerRe.FindStringSubmatch(msg.Subject); m != nil {
		msg.Type = Type(m[1])
		msg.Scope = m[2]
		msg.Description = m[3]
	}

	return msg
}

// Lint validates a raw commit message against the rules and returns
// all violations found. An empty slice means the message conforms.
func Lint(raw string, rules Rules) []Violation {
	var violations []Violation

	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return []Violation{{Code: "EMPTY_MESSAGE", Message: "commit message is empty"}}
	}

	msg := Parse(normalized)

	if msg.Type == "" {
		violations = append(violations, Violation{
			Code:    "MALFORMED_HEADER",
			Message: fmt.Sprintf("subject %q does not match `type: description`", msg.Subject),
		})
	} else {
		if !typeAllowed(msg.Type, rules.AllowedTypes) {
			violations = append(violations, Violation{
				Code:    "UNKNOWN_TYPE",
				Message: fmt.Sprintf("type %q is not in the allowed set %s", msg.Type, typeList(rules.AllowedTypes)),
			})
		}
		if word := firstWord(msg.Description); word != "" && !isImperative(word) {
			violations = append(violations, Violation{
				Code:    "NON_IMPERATIVE",
				Message: fmt.Sprintf("description should use imperative mood (%q looks past-tense or continuous)", word),
			})
		}
		if strings.HasSuffix(msg.Description, ".") {
			violations = append(violations, Violation{
				Code:    "TRAILING_PERIOD",
				Message: "subject must not end with a period",
			})
		}
	}

	max := rules.MaxSubjectLength
	if max <= 0 {
		max = DefaultMaxSubjectLength
	}
	if n := utf8.RuneCountInString(msg.Subject); n > max {
		violations = append(violations, Violation{
			Code:    "SUBJECT_TOO_LONG",
			Message: fmt.Sprintf("subject is %d characters (limit %d)", n, max),
		})
	}

	// Body, when present, must be separated from the subject by a blank line.
	lines := strings.Split(normalized, "\n")
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		violations = append(violations, Violation{
			Code:    "MISSING_BLANK_LINE",
			Message: "body must be separated from the subject by a blank line",
		})
	}

	return violations
}

func typeAllowed(t Type, allowed []Type) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}

func typeList(allowed []Type) string {
	parts := make([]string, len(allowed))
	for i, t := range allowed {
		parts[i] = string(t)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func firstWord(description string) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Verbs that end in "ed" or "ing" but are legitimate imperative leads.
var imperativeAllowlist = map[string]bool{
	"embed": true, "shed": true, "speed": true, "seed": true,
	"feed": true, "exceed": true, "proceed": true, "shred": true,
	"bring": true, "ring": true, "string": true, "spring": true,
	"ping": true, "swing": true,
}

// Common third-person leads that slip past the suffix checks.
var nonImperativeWords = map[string]bool{
	"adds": true, "fixes": true, "updates": true, "removes": true,
	"changes": true, "improves": true, "creates": true, "deletes": true,
	"refactors": true, "implements": true, "introduces": true,
}

// isImperative applies a heuristic mood check to the leading verb:
// past-tense ("added") and continuous ("adding") forms are rejected,
// as are common third-person forms ("adds").
func isImperative(word string) bool {
	if imperativeAllowlist[word] {
		return true
	}
	if nonImperativeWords[word] {
		return false
	}
	if strings.HasSuffix(word, "ed") && len(word) > 3 {
		return false
	}
	if strings.HasSuffix(word, "ing") && len(word) > 4 {
		return false
	}
	return true
}
