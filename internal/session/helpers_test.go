package session

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/srs"
)

// fakeClock only moves when Advance is called. Due timers fire in order on
// the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	// leaky timers ignore Stop, like a timer that already fired.
	leaky bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.leaky {
		return false
	}
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type gradeCall struct {
	id      string
	correct bool
}

// harness records everything an engine reports through its hooks.
type harness struct {
	clock   *fakeClock
	timers  *Timers
	params  *srs.Params
	grades  []gradeCall
	saved   []domain.SessionState
	cleared int
	changed int
	rounds  []time.Duration
}

func newHarness() *harness {
	clock := newFakeClock()
	return &harness{clock: clock, timers: NewTimers(clock), params: srs.DefaultParams()}
}

func (h *harness) config(settings domain.Settings) Config {
	return Config{
		Fingerprint: "fp",
		Settings:    settings,
		Rand:        rand.New(rand.NewPCG(7, 11)),
		Timers:      h.timers,
		Hooks: Hooks{
			Grade: func(card domain.Card, correct bool) domain.Card {
				h.grades = append(h.grades, gradeCall{id: card.ID, correct: correct})
				return h.params.Grade(card, correct, h.clock.Now())
			},
			Save:         func(state domain.SessionState) { h.saved = append(h.saved, state) },
			Clear:        func(domain.Mode) { h.cleared++ },
			Changed:      func() { h.changed++ },
			RoundCleared: func(elapsed time.Duration) { h.rounds = append(h.rounds, elapsed) },
		},
	}
}

func (h *harness) lastSaved() domain.SessionState {
	if len(h.saved) == 0 {
		return domain.SessionState{}
	}
	return h.saved[len(h.saved)-1]
}

var words = []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}

// deckOf returns n cards t0..tn-1 with distinct definitions.
func deckOf(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range cards {
		cards[i] = domain.Card{ID: fmt.Sprintf("id%d", i), Term: fmt.Sprintf("t%d", i), Definition: words[i%len(words)]}
	}
	return cards
}
