package session

import (
	"errors"
	"testing"

	"github.com/conorfennell/studydeck/internal/domain"
)

func TestFlashcardsBrowse(t *testing.T) {
	f := NewFlashcards(newHarness().config(domain.DefaultSettings()))
	if _, err := f.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, but got %v", err)
	}
	if err := f.Start(deckOf(3)); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	face, _ := f.Current()
	if face.Text != "t0" || face.Position != 1 || face.Total != 3 {
		t.Errorf("Expected the front of card 1 of 3, but got %+v", face)
	}
	f.Flip()
	if face, _ = f.Current(); face.Text != "alpha" || !face.Flipped {
		t.Errorf("Expected the back, but got %+v", face)
	}

	if f.Prev() {
		t.Error("Expected Prev to stop at the first card")
	}
	f.Next()
	f.Next()
	if f.Next() {
		t.Error("Expected Next to stop at the last card")
	}
	face, _ = f.Current()
	if face.Text != "t2" || face.Flipped {
		t.Errorf("Expected the front of the last card, but got %+v", face)
	}

	f.Restart()
	if face, _ = f.Current(); face.Position != 1 {
		t.Errorf("Expected Restart to return to the first card, but got %d", face.Position)
	}
}

func TestFlashcardsDefinitionFirst(t *testing.T) {
	f := NewFlashcards(newHarness().config(domain.Settings{TermShownFirst: false}))
	f.Start(deckOf(2))

	face, _ := f.Current()
	if face.Text != "alpha" {
		t.Errorf("Expected the definition on the front, but got %s", face.Text)
	}
	f.Flip()
	if face, _ = f.Current(); face.Text != "t0" {
		t.Errorf("Expected the term on the back, but got %s", face.Text)
	}
}

func TestFlashcardsShuffle(t *testing.T) {
	f := NewFlashcards(newHarness().config(domain.Settings{ShuffleEnabled: true, TermShownFirst: true}))
	f.Start(deckOf(8))

	seen := map[string]bool{}
	for {
		face, _ := f.Current()
		seen[face.Card.ID] = true
		if !f.Next() {
			break
		}
	}
	if len(seen) != 8 {
		t.Errorf("Expected every card exactly once, but saw %d", len(seen))
	}
}
