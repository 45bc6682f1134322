package session

import (
	"sync"

	"github.com/conorfennell/studydeck/internal/domain"
)

// Face is what a flashcard shows.
type Face struct {
	Card     domain.Card
	Text     string
	Flipped  bool
	Position int
	Total    int
}

// Flashcards browses the study order one card at a time. It keeps no queue
// and grades nothing.
type Flashcards struct {
	mu      sync.Mutex
	q       queue
	index   int
	flipped bool
}

// NewFlashcards returns an idle browser.
func NewFlashcards(cfg Config) *Flashcards {
	cfg = cfg.withDefaults(domain.ModeFlashcards)
	return &Flashcards{q: queue{mode: domain.ModeFlashcards, cfg: cfg}}
}

// Start lays out cards in study order and shows the first front.
func (f *Flashcards) Start(cards []domain.Card) error {
	if len(cards) < domain.ModeFlashcards.MinCards() {
		return domain.ErrInsufficientCards
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.q.reset(cards)
	f.index = 0
	f.flipped = false
	return nil
}

// Current returns the visible face.
func (f *Flashcards) Current() (Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.q.started {
		return Face{}, domain.ErrNoSession
	}
	card := f.q.cards[f.q.order[f.index]]
	field := f.q.cfg.Settings.PromptField()
	if f.flipped {
		field = f.q.cfg.Settings.AnswerField()
	}
	return Face{
		Card:     card,
		Text:     card.Text(field),
		Flipped:  f.flipped,
		Position: f.index + 1,
		Total:    len(f.q.order),
	}, nil
}

// Flip turns the current card over.
func (f *Flashcards) Flip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flipped = !f.flipped
}

// Next moves forward, stopping at the last card. It reports whether it moved.
func (f *Flashcards) Next() bool {
	return f.move(1)
}

// Prev moves back, stopping at the first card.
func (f *Flashcards) Prev() bool {
	return f.move(-1)
}

// Restart returns to the first card, reshuffling when shuffle is on.
func (f *Flashcards) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.q.started {
		return
	}
	f.q.reset(f.q.cards)
	f.index = 0
	f.flipped = false
}

func (f *Flashcards) move(step int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.q.started {
		return false
	}
	next := f.index + step
	if next < 0 || next >= len(f.q.order) {
		return false
	}
	f.index = next
	f.flipped = false
	return true
}
