// Package fuzzy provides the matcher used to rank language suggestions while
// the user is still typing a language name.
package fuzzy

import (
	"github.com/sahilm/fuzzy"
)

// scoreOffset lifts raw match scores so that any candidate that matches at all
// ends up with a positive score, while still ranking tighter matches higher.
const scoreOffset = 50

// Matcher scores how well pattern matches candidate.
// A score of zero or below means no match.
type Matcher interface {
	Score(pattern, candidate string) int
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(pattern, candidate string) int

// Score calls f(pattern, candidate).
func (f MatcherFunc) Score(pattern, candidate string) int {
	return f(pattern, candidate)
}

// SubsequenceMatcher matches pattern characters in order, case-insensitively,
// anywhere in the candidate. Matches at the start of words and runs of adjacent
// characters score higher.
type SubsequenceMatcher struct{}

// NewSubsequenceMatcher returns the default Matcher.
func NewSubsequenceMatcher() SubsequenceMatcher {
	return SubsequenceMatcher{}
}

// Score implements Matcher.
func (SubsequenceMatcher) Score(pattern, candidate string) int {
	if pattern == "" || candidate == "" {
		return 0
	}
	matches := fuzzy.Find(pattern, []string{candidate})
	if len(matches) == 0 {
		return 0
	}
	score := matches[0].Score + scoreOffset
	if score < 1 {
		score = 1
	}
	return score
}
