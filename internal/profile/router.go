package profile

import "strings"

// minMatchScore is the minimum keyword-match count for auto-selection.
// Requiring two matches avoids false positives on short or generic
// inputs like "test" or "build".
const minMatchScore = 2

// Router selects the most appropriate profile for a piece of user input.
type Router struct {
	profiles []*Profile
}

// NewRouter creates a router over the given profiles.
func NewRouter(profiles []*Profile) *Router {
	return &Router{profiles: profiles}
}

// Profiles returns all registered profiles.
func (r *Router) Profiles() []*Profile {
	return r.profiles
}

// Get returns the profile with the given name, or nil.
func (r *Router) Get(name string) *Profile {
	for _, p := range r.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Select returns the best matching profile for the input, or nil when
// no profile scores above the threshold. Scores tie toward the earlier
// profile, so registration order breaks ties.
func (r *Router) Select(input string) *Profile {
	inputLower := strings.ToLower(input)

	var best *Profile
	bestScore := 0
	for _, p := range r.profiles {
		score := matchScore(inputLower, p)
		if score >= minMatchScore && score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

// matchScore counts how many description keywords appear in the input.
func matchScore(inputLower string, p *Profile) int {
	score := 0
	for _, kw := range extractKeywords(p.Description) {
		if strings.Contains(inputLower, kw) {
			score++
		}
	}
	return score
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "shall": true,
	"can": true, "for": true, "and": true, "but": true, "or": true,
	"nor": true, "not": true, "so": true, "yet": true, "to": true,
	"of": true, "in": true, "on": true, "at": true, "by": true,
	"with": true, "from": true, "up": true, "about": true,
	"into": true, "through": true, "during": true, "before": true,
	"after": true, "above": true, "below": true, "between": true,
	"use": true, "that": true, "this": true, "it": true, "its": true,
}

// extractKeywords pulls meaningful words from a description: longer
// than two characters and not a stop word.
func extractKeywords(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !isAlphanumeric(r)
	})

	var keywords []string
	for _, w := range fields {
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

func isAlphanumeric(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
