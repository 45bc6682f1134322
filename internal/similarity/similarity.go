// Package similarity grades free-text answers and ranks confusable
// distractors by edit distance.
package similarity

import (
	"strings"

	"github.com/agext/levenshtein"
)

// CloseThreshold is the largest distance still accepted as a near miss.
const CloseThreshold = 2

// Verdict is the outcome of grading a typed answer.
type Verdict int

const (
	Wrong Verdict = iota
	Close
	Exact
)

func (v Verdict) String() string {
	switch v {
	case Exact:
		return "exact"
	case Close:
		return "close"
	default:
		return "wrong"
	}
}

// Correct reports whether the verdict counts as a correct answer.
func (v Verdict) Correct() bool {
	return v != Wrong
}

// EditDistance is the number of single-rune insertions, deletions and
// substitutions that turn a into b. It is case-sensitive; callers fold case.
func EditDistance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Fold is the comparison form used by every caller: lower-cased.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Grade compares a typed answer with the expected text, ignoring case and
// surrounding whitespace on the answer.
func Grade(answer, expected string) (Verdict, int) {
	d := EditDistance(Fold(strings.TrimSpace(answer)), Fold(expected))
	switch {
	case d == 0:
		return Exact, d
	case d <= CloseThreshold:
		return Close, d
	default:
		return Wrong, d
	}
}
