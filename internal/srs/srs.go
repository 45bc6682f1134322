package srs

import (
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
)

// Params holds the review intervals for each mastery level.
type Params struct {
	// Intervals[n] is the wait after a correct answer that lands on level n.
	// Index 0 is unused.
	Intervals         [domain.MaxMasteryScore + 1]time.Duration
	IncorrectInterval time.Duration
}

// DefaultParams returns the standard five-level ladder.
func DefaultParams() *Params {
	return &Params{
		Intervals: [domain.MaxMasteryScore + 1]time.Duration{
			1: 5 * time.Minute,
			2: 30 * time.Minute,
			3: 24 * time.Hour,
			4: 3 * 24 * time.Hour,
			5: 7 * 24 * time.Hour,
		},
		IncorrectInterval: time.Minute,
	}
}

// Interval returns the wait for a card sitting at the given level.
func (p *Params) Interval(score int) time.Duration {
	return p.Intervals[clamp(score)]
}

// Grade returns the card after one answer. A correct answer climbs one level
// (capped at the top), a wrong one drops to zero. The input is not modified.
func (p *Params) Grade(card domain.Card, correct bool, now time.Time) domain.Card {
	card.LastReviewedAt = now
	if correct {
		card.MasteryScore = clamp(card.MasteryScore + 1)
		card.NextDueAt = now.Add(p.Interval(card.MasteryScore))
		return card
	}
	card.MasteryScore = 0
	card.NextDueAt = now.Add(p.IncorrectInterval)
	return card
}

// IsDue reports whether the card should be reviewed at now. Cards that were
// never reviewed are always due.
func IsDue(card domain.Card, now time.Time) bool {
	return card.NextDueAt.IsZero() || !card.NextDueAt.After(now)
}

// DueCount counts the cards due at now.
func DueCount(cards []domain.Card, now time.Time) int {
	n := 0
	for _, c := range cards {
		if IsDue(c, now) {
			n++
		}
	}
	return n
}

// NextDue picks the card to review next: the due card with the lowest score,
// or the lowest-score card overall when nothing is due. Ties keep deck order.
func NextDue(cards []domain.Card, now time.Time) (domain.Card, bool) {
	if len(cards) == 0 {
		return domain.Card{}, false
	}
	best, bestDue := -1, false
	for i, c := range cards {
		due := IsDue(c, now)
		switch {
		case best < 0:
			best, bestDue = i, due
		case due && !bestDue:
			best, bestDue = i, due
		case due == bestDue && c.MasteryScore < cards[best].MasteryScore:
			best = i
		}
	}
	return cards[best], true
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > domain.MaxMasteryScore {
		return domain.MaxMasteryScore
	}
	return score
}
