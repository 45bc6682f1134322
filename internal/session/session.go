// Package session runs the Learn, Type, Match and Flashcards study modes.
//
// Each engine owns a session-scoped copy of the deck's cards and a queue of
// positions into that copy. Grading and persistence go through Hooks so the
// engines stay free of storage concerns. Timed transitions (auto-advance,
// cool-downs, the Match clock) are scheduled on a shared Timers set under
// the engine's ID and are cancelled by every competing transition.
package session

import (
	"math/rand/v2"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
)

const (
	// MaxSkips is the skip count at which a card leaves the session.
	MaxSkips = 2

	// AdvanceDelay follows a correct answer.
	AdvanceDelay = 1000 * time.Millisecond

	// CloseAdvanceDelay follows a close typed answer, leaving time to override.
	CloseAdvanceDelay = 3000 * time.Millisecond

	// CooldownDelay locks the Match board after a wrong pairing.
	CooldownDelay = 1000 * time.Millisecond

	// RoundDelay separates two Match rounds.
	RoundDelay = 1000 * time.Millisecond

	// TickInterval refreshes the Match clock.
	TickInterval = 100 * time.Millisecond

	// DefaultRoundSize is the Match batch size when none is configured.
	DefaultRoundSize = 10

	// MinRoundSize is the smallest allowed Match batch.
	MinRoundSize = 2
)

// Hooks connect an engine to the rest of the application. Hooks other than
// Changed run while the engine is locked and must not call back into it.
type Hooks struct {
	// Grade schedules a graded card and returns its new state.
	Grade func(card domain.Card, correct bool) domain.Card
	// Save receives the remaining queue after every change.
	Save func(state domain.SessionState)
	// Clear is called once the session completes.
	Clear func(mode domain.Mode)
	// Changed is called after a timer moved the session on.
	Changed func()
	// RoundCleared receives the elapsed time of a finished Match round.
	RoundCleared func(elapsed time.Duration)
}

// Config is shared by all engines.
type Config struct {
	// ID namespaces the engine's timers. Defaults to the mode name.
	ID          string
	Fingerprint string
	Settings    domain.Settings
	Rand        *rand.Rand
	Timers      *Timers
	Hooks       Hooks
	// RoundSize is the Match batch size.
	RoundSize int
}

func (c Config) withDefaults(mode domain.Mode) Config {
	if c.ID == "" {
		c.ID = string(mode)
	}
	if c.Rand == nil {
		now := uint64(time.Now().UnixNano())
		c.Rand = rand.New(rand.NewPCG(now, now>>32))
	}
	if c.Timers == nil {
		c.Timers = NewTimers(SystemClock())
	}
	if c.RoundSize < MinRoundSize {
		c.RoundSize = DefaultRoundSize
	}
	return c
}

// queue is the state shared by the queue-based engines.
type queue struct {
	mode  domain.Mode
	cfg   Config
	cards []domain.Card
	order []int
	total int

	started  bool
	complete bool
}

// reset copies cards and builds the queue, shuffled when the settings say so.
func (q *queue) reset(cards []domain.Card) {
	q.cards = copyCards(cards)
	q.order = lo.Range(len(q.cards))
	if q.cfg.Settings.ShuffleEnabled {
		q.cfg.Rand.Shuffle(len(q.order), func(i, j int) {
			q.order[i], q.order[j] = q.order[j], q.order[i]
		})
	}
	q.total = len(q.order)
	q.started = true
	q.complete = len(q.order) == 0
}

// restore copies cards and rebuilds a persisted queue from card ids.
func (q *queue) restore(cards []domain.Card, ids []string) error {
	order, err := positions(cards, ids)
	if err != nil {
		return err
	}
	q.cards = copyCards(cards)
	q.order = order
	q.total = len(order)
	q.started = true
	q.complete = false
	return nil
}

func (q *queue) timerKey(name string) string {
	return TimerKey(q.cfg.ID, name)
}

func (q *queue) head() int {
	return q.order[0]
}

func (q *queue) pop() {
	q.order = q.order[1:]
}

func (q *queue) rotate() {
	q.order = append(q.order[1:], q.order[0])
}

func (q *queue) remove(pos int) {
	if i := lo.IndexOf(q.order, pos); i >= 0 {
		q.order = append(q.order[:i:i], q.order[i+1:]...)
	}
}

// skip moves the head to the tail, or drops it once it hits MaxSkips.
func (q *queue) skip() {
	pos := q.head()
	q.cards[pos].SkipCount++
	if q.cards[pos].SkipCount >= MaxSkips {
		q.pop()
		return
	}
	q.rotate()
}

// grade runs the Grade hook and keeps the returned mastery.
func (q *queue) grade(pos int, correct bool) {
	if q.cfg.Hooks.Grade == nil {
		return
	}
	skips := q.cards[pos].SkipCount
	q.cards[pos] = q.cfg.Hooks.Grade(q.cards[pos], correct)
	q.cards[pos].SkipCount = skips
}

// persist snapshots the queue, or clears it when the session is over.
func (q *queue) persist() {
	if q.complete {
		if q.cfg.Hooks.Clear != nil {
			q.cfg.Hooks.Clear(q.mode)
		}
		return
	}
	if q.cfg.Hooks.Save != nil {
		q.cfg.Hooks.Save(q.state())
	}
}

func (q *queue) state() domain.SessionState {
	return domain.SessionState{
		Mode:        q.mode,
		Fingerprint: q.cfg.Fingerprint,
		CardIDs:     lo.Map(q.order, func(pos int, _ int) string { return q.cards[pos].ID }),
	}
}

func (q *queue) changed() {
	if q.cfg.Hooks.Changed != nil {
		q.cfg.Hooks.Changed()
	}
}

func copyCards(cards []domain.Card) []domain.Card {
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		c.SkipCount = 0
		out[i] = c
	}
	return out
}

// positions maps persisted card ids onto cards. Every id must be known and
// appear once, and the list must not be empty.
func positions(cards []domain.Card, ids []string) ([]int, error) {
	if len(ids) == 0 || len(lo.Uniq(ids)) != len(ids) {
		return nil, domain.ErrUnknownCard
	}
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		index[c.ID] = i
	}
	order := make([]int, 0, len(ids))
	for _, id := range ids {
		pos, ok := index[id]
		if !ok {
			return nil, domain.ErrUnknownCard
		}
		order = append(order, pos)
	}
	return order, nil
}
