package session

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/similarity"
)

func capitals() []domain.Card {
	return []domain.Card{
		{ID: "fr", Term: "France", Definition: "Paris", MasteryScore: 2},
		{ID: "it", Term: "Italy", Definition: "Rome"},
		{ID: "es", Term: "Spain", Definition: "Madrid"},
	}
}

func startType(t *testing.T, h *harness, cards []domain.Card) *Type {
	t.Helper()
	e := NewType(h.config(domain.DefaultSettings()))
	if err := e.Start(cards); err != nil {
		t.Fatalf("Failed to start type session: %v", err)
	}
	return e
}

func TestTypeCloseAnswerOverriddenToWrong(t *testing.T) {
	h := newHarness()
	e := startType(t, h, capitals())

	res, err := e.Answer("parks")
	if err != nil {
		t.Fatalf("Failed to answer: %v", err)
	}
	if res.Verdict != similarity.Close || res.Distance != 1 || res.Expected != "Paris" {
		t.Fatalf("Expected a close answer at distance 1, but got %+v", res)
	}
	q, _ := e.Current()
	if !q.Correct || q.Card.MasteryScore != 3 {
		t.Errorf("Expected a close answer to count as correct, but got %+v", q)
	}
	if lo.Contains(e.State().CardIDs, "fr") {
		t.Errorf("Expected fr to leave the queue, but got %v", e.State().CardIDs)
	}

	applied, err := e.OverrideWrong()
	if err != nil || !applied {
		t.Fatalf("Expected override to apply, but got %v, %v", applied, err)
	}
	q, _ = e.Current()
	if q.Correct || q.Card.MasteryScore != 0 {
		t.Errorf("Expected override to reset the score, but got %+v", q)
	}
	ids := e.State().CardIDs
	if len(ids) != 3 || ids[2] != "fr" {
		t.Errorf("Expected fr requeued at the back, but got %v", ids)
	}

	applied, _ = e.OverrideWrong()
	if applied {
		t.Error("Expected a second override to have no effect")
	}
	if len(e.State().CardIDs) != 3 || len(h.grades) != 2 {
		t.Errorf("Expected no further change, but got %v and %v", e.State().CardIDs, h.grades)
	}

	h.clock.Advance(CloseAdvanceDelay)
	if q, _ := e.Current(); q.Answered || q.Card.ID != "it" {
		t.Errorf("Expected the close-answer advance to still move on to it, but got %+v", q)
	}
}

func TestTypeAdvanceDelays(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		delay  time.Duration
	}{
		{"exact", "  paris ", AdvanceDelay},
		{"close", "pariss", CloseAdvanceDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			e := startType(t, h, capitals())

			if _, err := e.Answer(tt.answer); err != nil {
				t.Fatalf("Failed to answer: %v", err)
			}
			h.clock.Advance(tt.delay - time.Millisecond)
			if q, _ := e.Current(); q.Card.ID != "fr" {
				t.Fatalf("Expected to stay on fr, but got %s", q.Card.ID)
			}
			h.clock.Advance(time.Millisecond)
			if q, _ := e.Current(); q.Card.ID != "it" || q.Answered {
				t.Errorf("Expected to move to it, but got %+v", q)
			}
		})
	}
}

func TestTypeWrongAnswerOverriddenToCorrect(t *testing.T) {
	h := newHarness()
	e := startType(t, h, capitals())

	res, _ := e.Answer("Lyon")
	if res.Verdict != similarity.Wrong {
		t.Fatalf("Expected a wrong answer, but got %v", res.Verdict)
	}
	if ids := e.State().CardIDs; len(ids) != 3 || ids[2] != "fr" {
		t.Fatalf("Expected fr requeued, but got %v", ids)
	}
	if applied, _ := e.OverrideWrong(); applied {
		t.Error("Expected override-to-wrong to be unavailable after a wrong answer")
	}

	applied, err := e.OverrideCorrect()
	if err != nil || !applied {
		t.Fatalf("Expected override to apply, but got %v, %v", applied, err)
	}
	if ids := e.State().CardIDs; lo.Contains(ids, "fr") || len(ids) != 2 {
		t.Errorf("Expected fr removed from the queue, but got %v", ids)
	}
	if applied, _ := e.OverrideCorrect(); applied {
		t.Error("Expected a second override to have no effect")
	}
	want := []gradeCall{{"fr", false}, {"fr", true}}
	if len(h.grades) != 2 || h.grades[0] != want[0] || h.grades[1] != want[1] {
		t.Errorf("Expected grades %v, but got %v", want, h.grades)
	}
}

func TestTypeRejectsEmptyAnswer(t *testing.T) {
	h := newHarness()
	e := startType(t, h, capitals())

	for _, answer := range []string{"", "   "} {
		if _, err := e.Answer(answer); !errors.Is(err, domain.ErrEmptyAnswer) {
			t.Errorf("%q: expected ErrEmptyAnswer, but got %v", answer, err)
		}
	}
	if len(h.grades) != 0 {
		t.Errorf("Expected no grading, but got %v", h.grades)
	}
}

func TestTypeSkipAndComplete(t *testing.T) {
	h := newHarness()
	e := startType(t, h, capitals()[:1])

	e.Skip()
	if ids := e.State().CardIDs; len(ids) != 1 {
		t.Fatalf("Expected the card requeued after one skip, but got %v", ids)
	}
	e.Skip()
	if !e.Done() {
		t.Error("Expected the session to complete once its only card was dropped")
	}
	if h.cleared != 1 {
		t.Errorf("Expected the stored session to be cleared, but got %d", h.cleared)
	}
	if err := e.Skip(); !errors.Is(err, domain.ErrSessionComplete) {
		t.Errorf("Expected ErrSessionComplete, but got %v", err)
	}
}

func TestTypeTermAnswers(t *testing.T) {
	h := newHarness()
	e := NewType(h.config(domain.Settings{TermShownFirst: false}))
	e.Start(capitals())

	q, _ := e.Current()
	if q.Prompt != "Paris" {
		t.Errorf("Expected the definition as prompt, but got %s", q.Prompt)
	}
	if res, _ := e.Answer("france"); res.Verdict != similarity.Exact {
		t.Errorf("Expected an exact match on the term, but got %v", res.Verdict)
	}
}
