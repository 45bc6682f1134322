package studio

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/similarity"
)

// queuedModes are the modes whose queues are persisted.
var queuedModes = []domain.Mode{domain.ModeLearn, domain.ModeType, domain.ModeMatch}

// engines holds at most one running engine per mode.
type engines struct {
	mu         sync.Mutex
	flashcards *session.Flashcards
	learn      *session.Learn
	typing     *session.Type
	match      *session.Match
}

type stopper interface {
	Stop()
}

func (e *engines) stop(mode domain.Mode) {
	var running stopper
	switch mode {
	case domain.ModeLearn:
		if e.learn != nil {
			running = e.learn
		}
		e.learn = nil
	case domain.ModeType:
		if e.typing != nil {
			running = e.typing
		}
		e.typing = nil
	case domain.ModeMatch:
		if e.match != nil {
			running = e.match
		}
		e.match = nil
	case domain.ModeFlashcards:
		e.flashcards = nil
	}
	if running != nil {
		running.Stop()
	}
}

// Feedback is the result of RecordAnswer.
type Feedback struct {
	Correct  bool
	Verdict  similarity.Verdict
	Distance int
	Expected string
}

// Availability returns nil when mode can run on the current deck, and
// domain.ErrInsufficientCards when the deck is too small for it. Learn also
// needs four distinct answers so every question has four options.
func (s *Studio) Availability(mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
	d := s.Deck()
	if mode == domain.ModeLearn {
		if !session.CanStart(d.Cards, d.Settings) {
			return domain.ErrInsufficientCards
		}
		return nil
	}
	if len(d.Cards) < mode.MinCards() {
		return domain.ErrInsufficientCards
	}
	return nil
}

// ResumableModes lists the modes with a stored session for the current deck.
func (s *Studio) ResumableModes() []domain.Mode {
	s.mu.Lock()
	fp := s.fingerprint
	s.mu.Unlock()
	if fp == "" {
		return nil
	}

	states, err := s.sessions.Saved()
	if err != nil {
		s.logger.Warn("Failed to list stored sessions", "error", err)
		return nil
	}
	return lo.FilterMap(states, func(st domain.SessionState, _ int) (domain.Mode, bool) {
		return st.Mode, st.Fingerprint == fp
	})
}

// StartSession begins a fresh session of mode over the current deck,
// replacing whatever was running or stored for it.
func (s *Studio) StartSession(mode domain.Mode) error {
	if err := s.Availability(mode); err != nil {
		return err
	}
	cards := s.Deck().Cards
	cfg := s.sessionConfig(mode)

	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	s.engines.stop(mode)

	switch mode {
	case domain.ModeFlashcards:
		f := session.NewFlashcards(cfg)
		if err := f.Start(cards); err != nil {
			return err
		}
		s.engines.flashcards = f
	case domain.ModeLearn:
		l := session.NewLearn(cfg)
		if err := l.Start(cards); err != nil {
			return err
		}
		s.engines.learn = l
	case domain.ModeType:
		t := session.NewType(cfg)
		if err := t.Start(cards); err != nil {
			return err
		}
		s.engines.typing = t
	case domain.ModeMatch:
		m := session.NewMatch(cfg)
		if err := m.Start(cards); err != nil {
			return err
		}
		s.engines.match = m
	}
	s.logger.Debug("Started session", "mode", mode, "cards", len(cards))
	return nil
}

// OpenSession resumes the stored session of mode when it still belongs to
// the current deck, and starts a fresh one otherwise. It reports whether a
// stored session was resumed.
func (s *Studio) OpenSession(mode domain.Mode) (bool, error) {
	if err := s.Availability(mode); err != nil {
		return false, err
	}
	if mode == domain.ModeFlashcards {
		return false, s.StartSession(mode)
	}

	state, ok, err := s.sessions.Load(mode)
	if err != nil {
		s.logger.Warn("Discarding stored session", "mode", mode, "error", err)
	}
	if !ok {
		return false, s.StartSession(mode)
	}

	cfg := s.sessionConfig(mode)
	if state.Fingerprint != cfg.Fingerprint {
		s.logger.Info("Stored session belongs to another deck, starting fresh", "mode", mode)
		s.clearSession(mode)
		return false, s.StartSession(mode)
	}

	if err := s.resume(mode, cfg, state.CardIDs); err != nil {
		if !errors.Is(err, domain.ErrUnknownCard) {
			return false, err
		}
		s.logger.Info("Stored session references unknown cards, starting fresh", "mode", mode)
		s.clearSession(mode)
		return false, s.StartSession(mode)
	}
	return true, nil
}

func (s *Studio) resume(mode domain.Mode, cfg session.Config, ids []string) error {
	cards := s.Deck().Cards

	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	s.engines.stop(mode)

	switch mode {
	case domain.ModeLearn:
		l := session.NewLearn(cfg)
		if err := l.Resume(cards, ids); err != nil {
			return err
		}
		s.engines.learn = l
	case domain.ModeType:
		t := session.NewType(cfg)
		if err := t.Resume(cards, ids); err != nil {
			return err
		}
		s.engines.typing = t
	case domain.ModeMatch:
		m := session.NewMatch(cfg)
		if err := m.Resume(cards, ids); err != nil {
			return err
		}
		s.engines.match = m
	}
	return nil
}

// StopSession stops mode's engine. Its stored queue is kept for OpenSession.
func (s *Studio) StopSession(mode domain.Mode) {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	s.engines.stop(mode)
}

// Question returns the current Learn or Type question.
func (s *Studio) Question(mode domain.Mode) (session.Question, error) {
	switch mode {
	case domain.ModeLearn:
		l, err := s.learn()
		if err != nil {
			return session.Question{}, err
		}
		return l.Current()
	case domain.ModeType:
		t, err := s.typing()
		if err != nil {
			return session.Question{}, err
		}
		return t.Current()
	}
	return session.Question{}, fmt.Errorf("%w: %s has no questions", domain.ErrUnknownMode, mode)
}

// RecordAnswer grades an answer to the current Learn or Type question.
func (s *Studio) RecordAnswer(mode domain.Mode, answer string) (Feedback, error) {
	switch mode {
	case domain.ModeLearn:
		l, err := s.learn()
		if err != nil {
			return Feedback{}, err
		}
		correct, err := l.Answer(answer)
		if err != nil {
			return Feedback{}, err
		}
		fb := Feedback{Correct: correct, Verdict: similarity.Wrong}
		if correct {
			fb.Verdict = similarity.Exact
		}
		if q, err := l.Current(); err == nil {
			fb.Expected = q.Expected
		}
		return fb, nil
	case domain.ModeType:
		t, err := s.typing()
		if err != nil {
			return Feedback{}, err
		}
		res, err := t.Answer(answer)
		if err != nil {
			return Feedback{}, err
		}
		return Feedback{
			Correct:  res.Verdict.Correct(),
			Verdict:  res.Verdict,
			Distance: res.Distance,
			Expected: res.Expected,
		}, nil
	}
	return Feedback{}, fmt.Errorf("%w: %s takes no answers", domain.ErrUnknownMode, mode)
}

// OverrideAnswer reverses the last Type verdict: correct=false turns a close
// answer wrong, correct=true accepts a wrong one. It reports whether the
// override applied; a repeated override does nothing.
func (s *Studio) OverrideAnswer(correct bool) (bool, error) {
	t, err := s.typing()
	if err != nil {
		return false, err
	}
	if correct {
		return t.OverrideCorrect()
	}
	return t.OverrideWrong()
}

// AdvanceSession moves Learn or Type to the next question, or Flashcards to
// the next card.
func (s *Studio) AdvanceSession(mode domain.Mode) error {
	switch mode {
	case domain.ModeLearn:
		l, err := s.learn()
		if err != nil {
			return err
		}
		return l.Advance()
	case domain.ModeType:
		t, err := s.typing()
		if err != nil {
			return err
		}
		return t.Advance()
	case domain.ModeFlashcards:
		f, err := s.flashcards()
		if err != nil {
			return err
		}
		if !f.Next() {
			return domain.ErrSessionComplete
		}
		return nil
	}
	return fmt.Errorf("%w: %s advances by itself", domain.ErrUnknownMode, mode)
}

// SkipCurrent skips the current Learn or Type question.
func (s *Studio) SkipCurrent(mode domain.Mode) error {
	switch mode {
	case domain.ModeLearn:
		l, err := s.learn()
		if err != nil {
			return err
		}
		return l.Skip()
	case domain.ModeType:
		t, err := s.typing()
		if err != nil {
			return err
		}
		return t.Skip()
	}
	return fmt.Errorf("%w: %s cannot skip", domain.ErrUnknownMode, mode)
}

// SessionDone reports whether mode's session has run out of cards.
func (s *Studio) SessionDone(mode domain.Mode) bool {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	switch mode {
	case domain.ModeLearn:
		return s.engines.learn != nil && s.engines.learn.Done()
	case domain.ModeType:
		return s.engines.typing != nil && s.engines.typing.Done()
	case domain.ModeMatch:
		return s.engines.match != nil && s.engines.match.Done()
	}
	return false
}

// Board returns the current Match round.
func (s *Studio) Board() (session.Board, error) {
	m, err := s.match()
	if err != nil {
		return session.Board{}, err
	}
	return m.Board()
}

// SelectTile picks a Match tile.
func (s *Studio) SelectTile(side domain.Field, index int) (session.PairResult, error) {
	m, err := s.match()
	if err != nil {
		return session.Ignored, err
	}
	return m.Select(side, index)
}

// Flashcard returns the visible flashcard face.
func (s *Studio) Flashcard() (session.Face, error) {
	f, err := s.flashcards()
	if err != nil {
		return session.Face{}, err
	}
	return f.Current()
}

// FlipCard turns the current flashcard over.
func (s *Studio) FlipCard() error {
	f, err := s.flashcards()
	if err != nil {
		return err
	}
	f.Flip()
	return nil
}

// PreviousCard moves Flashcards back one card.
func (s *Studio) PreviousCard() error {
	f, err := s.flashcards()
	if err != nil {
		return err
	}
	f.Prev()
	return nil
}

func (s *Studio) learn() (*session.Learn, error) {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	if s.engines.learn == nil {
		return nil, domain.ErrNoSession
	}
	return s.engines.learn, nil
}

func (s *Studio) typing() (*session.Type, error) {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	if s.engines.typing == nil {
		return nil, domain.ErrNoSession
	}
	return s.engines.typing, nil
}

func (s *Studio) match() (*session.Match, error) {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	if s.engines.match == nil {
		return nil, domain.ErrNoSession
	}
	return s.engines.match, nil
}

func (s *Studio) flashcards() (*session.Flashcards, error) {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	if s.engines.flashcards == nil {
		return nil, domain.ErrNoSession
	}
	return s.engines.flashcards, nil
}

func (s *Studio) sessionConfig(mode domain.Mode) session.Config {
	s.mu.Lock()
	seed1, seed2 := s.rng.Uint64(), s.rng.Uint64()
	fp, settings := s.fingerprint, s.deck.Settings
	s.mu.Unlock()

	return session.Config{
		ID:          string(mode),
		Fingerprint: fp,
		Settings:    settings,
		Rand:        rand.New(rand.NewPCG(seed1, seed2)),
		Timers:      s.timers,
		RoundSize:   s.roundSize,
		Hooks: session.Hooks{
			Grade:        s.GradeAnswer,
			Save:         s.saveSession,
			Clear:        s.clearSession,
			RoundCleared: s.roundCleared,
			Changed: func() {
				if s.onChange != nil {
					s.onChange(mode)
				}
			},
		},
	}
}

func (s *Studio) saveSession(state domain.SessionState) {
	if state.Fingerprint == "" {
		// Unsaved decks have no token to tie a session to.
		return
	}
	if err := s.sessions.Save(state); err != nil {
		s.logger.Warn("Failed to save session", "mode", state.Mode, "error", err)
	}
}

func (s *Studio) clearSession(mode domain.Mode) {
	if err := s.sessions.Clear(mode); err != nil {
		s.logger.Warn("Failed to clear session", "mode", mode, "error", err)
	}
}

func (s *Studio) roundCleared(elapsed time.Duration) {
	s.mu.Lock()
	s.lastRound = elapsed
	s.mu.Unlock()

	improved, err := s.best.Offer(elapsed)
	if err != nil {
		s.logger.Warn("Failed to save best time", "error", err)
		return
	}
	if improved {
		s.logger.Info("New best match time", "seconds", elapsed.Seconds())
	}
}

func (s *Studio) stopSessions() {
	s.engines.mu.Lock()
	defer s.engines.mu.Unlock()
	for _, mode := range domain.Modes {
		s.engines.stop(mode)
	}
}

// discardSessions stops every engine and forgets their stored queues.
func (s *Studio) discardSessions() {
	s.stopSessions()
	for _, mode := range queuedModes {
		s.clearSession(mode)
	}
}
