package session

import (
	"strings"
	"sync"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/similarity"
)

// TypedResult is the outcome of a typed answer.
type TypedResult struct {
	Verdict  similarity.Verdict
	Distance int
	Expected string
}

// Type is the free-text mode. Answers within similarity.CloseThreshold edits
// count as correct but can be overridden.
type Type struct {
	mu    sync.Mutex
	q     queue
	field domain.Field

	current  int
	answered bool
	verdict  similarity.Verdict
	// last is the card an override would apply to, -1 when none.
	last int
}

// NewType returns an idle Type engine.
func NewType(cfg Config) *Type {
	cfg = cfg.withDefaults(domain.ModeType)
	return &Type{
		q:     queue{mode: domain.ModeType, cfg: cfg},
		field: cfg.Settings.AnswerField(),
		last:  -1,
	}
}

// Start begins a fresh session over cards.
func (t *Type) Start(cards []domain.Card) error {
	if len(cards) < domain.ModeType.MinCards() {
		return domain.ErrInsufficientCards
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.q.reset(cards)
	t.presentLocked()
	t.q.persist()
	return nil
}

// Resume continues a persisted queue of card ids over cards.
func (t *Type) Resume(cards []domain.Card, ids []string) error {
	if len(cards) < domain.ModeType.MinCards() {
		return domain.ErrInsufficientCards
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	if err := t.q.restore(cards, ids); err != nil {
		return err
	}
	t.presentLocked()
	return nil
}

// Current returns the question on screen.
func (t *Type) Current() (Question, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return Question{}, err
	}
	card := t.q.cards[t.current]
	q := Question{
		Card:      card,
		Prompt:    card.Text(t.q.cfg.Settings.PromptField()),
		Answered:  t.answered,
		Correct:   t.answered && t.verdict.Correct(),
		Remaining: len(t.q.order),
		Total:     t.q.total,
	}
	if t.answered {
		q.Expected = card.Text(t.field)
	}
	return q, nil
}

// Answer grades typed text against the answer field.
//
// Exact answers leave the queue and advance after AdvanceDelay. Close answers
// also leave the queue but wait CloseAdvanceDelay so the learner can
// OverrideWrong. Wrong answers go to the back of the queue, can be
// OverrideCorrect'ed, and wait for Advance.
func (t *Type) Answer(text string) (TypedResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return TypedResult{}, err
	}
	if t.answered {
		return TypedResult{}, domain.ErrAlreadyAnswered
	}
	if strings.TrimSpace(text) == "" {
		return TypedResult{}, domain.ErrEmptyAnswer
	}

	pos := t.q.head()
	expected := t.q.cards[pos].Text(t.field)
	verdict, distance := similarity.Grade(text, expected)

	t.answered = true
	t.verdict = verdict
	t.last = -1

	switch verdict {
	case similarity.Exact:
		t.q.pop()
		t.q.grade(pos, true)
		t.q.cfg.Timers.After(t.q.timerKey("advance"), AdvanceDelay, t.autoAdvance)
	case similarity.Close:
		t.q.pop()
		t.q.grade(pos, true)
		t.last = pos
		t.q.cfg.Timers.After(t.q.timerKey("advance"), CloseAdvanceDelay, t.autoAdvance)
	default:
		t.q.rotate()
		t.q.grade(pos, false)
		t.last = pos
	}
	t.q.persist()
	return TypedResult{Verdict: verdict, Distance: distance, Expected: expected}, nil
}

// OverrideWrong turns a close answer into a wrong one: the card is graded
// incorrect and requeued. The pending advance still fires. It reports
// whether anything changed; repeating it has no effect.
func (t *Type) OverrideWrong() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return false, err
	}
	if t.last < 0 || t.verdict != similarity.Close {
		return false, nil
	}
	pos := t.last
	t.last = -1
	t.verdict = similarity.Wrong

	t.q.order = append(t.q.order, pos)
	t.q.grade(pos, false)
	t.q.persist()
	return true, nil
}

// OverrideCorrect accepts a wrong answer after all: the card is graded
// correct and taken out of the queue. Repeating it has no effect.
func (t *Type) OverrideCorrect() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return false, err
	}
	if t.last < 0 || t.verdict != similarity.Wrong {
		return false, nil
	}
	pos := t.last
	t.last = -1
	t.verdict = similarity.Exact

	t.q.remove(pos)
	t.q.grade(pos, true)
	t.q.persist()
	t.q.cfg.Timers.After(t.q.timerKey("advance"), AdvanceDelay, t.autoAdvance)
	return true, nil
}

// Advance moves to the next question, cancelling a pending auto-advance.
func (t *Type) Advance() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return err
	}
	if !t.answered {
		return domain.ErrNotAnswered
	}
	t.q.cfg.Timers.Cancel(t.q.timerKey("advance"))
	t.presentLocked()
	if t.q.complete {
		t.q.persist()
	}
	return nil
}

// Skip sends the unanswered head to the back of the queue, dropping it after
// MaxSkips skips.
func (t *Type) Skip() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activeLocked(); err != nil {
		return err
	}
	if t.answered {
		return domain.ErrAlreadyAnswered
	}
	t.q.skip()
	t.presentLocked()
	t.q.persist()
	return nil
}

// Done reports whether the queue has drained.
func (t *Type) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.q.complete
}

// State returns the persisted form of the queue.
func (t *Type) State() domain.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.q.state()
}

// Stop cancels pending timers. The engine can be started again.
func (t *Type) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.q.started = false
}

func (t *Type) autoAdvance() {
	t.mu.Lock()
	if !t.q.started || t.q.complete || !t.answered {
		t.mu.Unlock()
		return
	}
	t.presentLocked()
	if t.q.complete {
		t.q.persist()
	}
	t.mu.Unlock()
	t.q.changed()
}

func (t *Type) presentLocked() {
	t.answered = false
	t.verdict = similarity.Wrong
	t.last = -1
	if len(t.q.order) == 0 {
		t.q.complete = true
		return
	}
	t.current = t.q.head()
}

func (t *Type) activeLocked() error {
	if !t.q.started {
		return domain.ErrNoSession
	}
	if t.q.complete {
		return domain.ErrSessionComplete
	}
	return nil
}

func (t *Type) cancelLocked() {
	t.q.cfg.Timers.CancelSession(t.q.cfg.ID)
}
