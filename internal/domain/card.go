package domain

import "time"

// MaxMasteryScore is the highest SRS level a card can reach.
const MaxMasteryScore = 5

// Card is a single term/definition pair plus its review state.
// ID is only stable for a given deck token; progress is keyed by content.
type Card struct {
	ID             string
	Term           string
	Definition     string
	MasteryScore   int
	LastReviewedAt time.Time // zero when never reviewed
	NextDueAt      time.Time // zero when never reviewed
	SkipCount      int
}

// Field selects one side of a card.
type Field int

const (
	TermField Field = iota
	DefinitionField
)

// Text returns the card's text for the given field.
func (c Card) Text(f Field) string {
	if f == TermField {
		return c.Term
	}
	return c.Definition
}

// ReviewLog records a single graded answer.
type ReviewLog struct {
	CardID    string
	Timestamp time.Time
	Correct   bool
}
