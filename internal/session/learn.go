package session

import (
	"sync"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/quiz"
)

// Question is the card currently presented by Learn or Type.
type Question struct {
	Card      domain.Card
	Prompt    string
	Options   []string // Learn only
	Answered  bool
	Correct   bool
	Expected  string // set once answered
	Remaining int
	Total     int
}

// Learn is the multiple-choice mode.
type Learn struct {
	mu    sync.Mutex
	q     queue
	quiz  *quiz.Generator
	field domain.Field

	current  int
	options  []string
	answered bool
	correct  bool
}

// NewLearn returns an idle Learn engine.
func NewLearn(cfg Config) *Learn {
	cfg = cfg.withDefaults(domain.ModeLearn)
	return &Learn{
		q:     queue{mode: domain.ModeLearn, cfg: cfg},
		quiz:  quiz.NewGenerator(cfg.Rand),
		field: cfg.Settings.AnswerField(),
	}
}

// CanStart reports whether cards can support a Learn session: four cards
// with four distinct answers, so every question has a full option set.
func CanStart(cards []domain.Card, settings domain.Settings) bool {
	return len(cards) >= domain.ModeLearn.MinCards() &&
		quiz.DistinctAnswers(cards, settings.AnswerField()) >= quiz.OptionCount
}

// Start begins a fresh session over cards.
func (l *Learn) Start(cards []domain.Card) error {
	if !CanStart(cards, l.q.cfg.Settings) {
		return domain.ErrInsufficientCards
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked()
	l.q.reset(cards)
	l.presentLocked()
	l.q.persist()
	return nil
}

// Resume continues a persisted queue of card ids over cards.
func (l *Learn) Resume(cards []domain.Card, ids []string) error {
	if !CanStart(cards, l.q.cfg.Settings) {
		return domain.ErrInsufficientCards
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked()
	if err := l.q.restore(cards, ids); err != nil {
		return err
	}
	l.presentLocked()
	return nil
}

// Current returns the question on screen.
func (l *Learn) Current() (Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.activeLocked(); err != nil {
		return Question{}, err
	}
	card := l.q.cards[l.current]
	q := Question{
		Card:      card,
		Prompt:    card.Text(l.q.cfg.Settings.PromptField()),
		Options:   append([]string(nil), l.options...),
		Answered:  l.answered,
		Correct:   l.correct,
		Remaining: len(l.q.order),
		Total:     l.q.total,
	}
	if l.answered {
		q.Expected = card.Text(l.field)
	}
	return q, nil
}

// Answer grades a chosen option by exact comparison. A correct answer leaves
// the queue and the session moves on after AdvanceDelay; a wrong one goes to
// the back of the queue and waits for Advance.
func (l *Learn) Answer(choice string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.activeLocked(); err != nil {
		return false, err
	}
	if l.answered {
		return false, domain.ErrAlreadyAnswered
	}

	pos := l.q.head()
	l.answered = true
	l.correct = choice == l.q.cards[pos].Text(l.field)
	if l.correct {
		l.q.pop()
		l.q.grade(pos, true)
		l.q.cfg.Timers.After(l.q.timerKey("advance"), AdvanceDelay, l.autoAdvance)
	} else {
		l.q.rotate()
		l.q.grade(pos, false)
	}
	l.q.persist()
	return l.correct, nil
}

// Advance moves to the next question, cancelling a pending auto-advance.
func (l *Learn) Advance() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.activeLocked(); err != nil {
		return err
	}
	if !l.answered {
		return domain.ErrNotAnswered
	}
	l.q.cfg.Timers.Cancel(l.q.timerKey("advance"))
	l.presentLocked()
	if l.q.complete {
		l.q.persist()
	}
	return nil
}

// Skip sends the unanswered head to the back of the queue. A card skipped
// MaxSkips times is dropped from the session. Mastery is not touched.
func (l *Learn) Skip() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.activeLocked(); err != nil {
		return err
	}
	if l.answered {
		return domain.ErrAlreadyAnswered
	}
	l.q.skip()
	l.presentLocked()
	l.q.persist()
	return nil
}

// Done reports whether the queue has drained.
func (l *Learn) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.complete
}

// State returns the persisted form of the queue.
func (l *Learn) State() domain.SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.state()
}

// Stop cancels pending timers. The engine can be started again.
func (l *Learn) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelLocked()
	l.q.started = false
}

func (l *Learn) autoAdvance() {
	l.mu.Lock()
	if !l.q.started || l.q.complete || !l.answered {
		l.mu.Unlock()
		return
	}
	l.presentLocked()
	if l.q.complete {
		l.q.persist()
	}
	l.mu.Unlock()
	l.q.changed()
}

func (l *Learn) presentLocked() {
	l.answered = false
	l.correct = false
	if len(l.q.order) == 0 {
		l.q.complete = true
		l.options = nil
		return
	}
	l.current = l.q.head()
	l.options = l.quiz.Options(l.q.cards[l.current], l.q.cards, l.field)
}

func (l *Learn) activeLocked() error {
	if !l.q.started {
		return domain.ErrNoSession
	}
	if l.q.complete {
		return domain.ErrSessionComplete
	}
	return nil
}

func (l *Learn) cancelLocked() {
	l.q.cfg.Timers.CancelSession(l.q.cfg.ID)
}
