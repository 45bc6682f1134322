package main

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/storage"
	"github.com/conorfennell/studydeck/internal/studio"
)

// frozenClock never fires timers, so every transition in these tests is
// driven by input.
type frozenClock struct{}

type frozenTimer struct{}

func (frozenTimer) Stop() bool { return true }

func (frozenClock) Now() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

func (frozenClock) AfterFunc(time.Duration, func()) session.Timer { return frozenTimer{} }

func newStudio(t *testing.T, cards ...string) *studio.Studio {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	s := studio.New(studio.Options{
		Store:  db,
		Rand:   rand.New(rand.NewPCG(1, 1)),
		Clock:  frozenClock{},
		Logger: slog.New(slog.DiscardHandler),
	})
	t.Cleanup(func() {
		s.Close()
		db.Close()
	})

	var deck []domain.Card
	for i := 0; i+1 < len(cards); i += 2 {
		deck = append(deck, domain.Card{Term: cards[i], Definition: cards[i+1]})
	}
	if _, err := s.CreateDeck("Test", deck, domain.DefaultSettings()); err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}
	return s
}

func TestStudyType(t *testing.T) {
	s := newStudio(t, "France", "paris", "Italy", "rome")
	input := strings.Join([]string{"parks", "!wrong", "", "rome", "", "paris", ""}, "\n")

	var out strings.Builder
	if err := study(s, domain.ModeType, strings.NewReader(input), &out); err != nil {
		t.Fatalf("study() returned an unexpected error: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Close enough", "Marked wrong", "Correct!", "Session complete!", "answers correct."} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, but got:\n%s", want, text)
		}
	}
	if got := s.Deck().Cards[0].MasteryScore; got != 1 {
		t.Errorf("Expected France at level 1, but got %d", got)
	}
}

func TestStudyFlashcards(t *testing.T) {
	s := newStudio(t, "France", "paris", "Italy", "rome")
	input := "\nn\nn\nq\n"

	var out strings.Builder
	if err := study(s, domain.ModeFlashcards, strings.NewReader(input), &out); err != nil {
		t.Fatalf("study() returned an unexpected error: %v", err)
	}

	text := out.String()
	for _, want := range []string{"[1/2 front] France", "[1/2 back] paris", "[2/2 front] Italy", "That was the last card."} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, but got:\n%s", want, text)
		}
	}
}

func TestStudyLearnRequiresFourCards(t *testing.T) {
	s := newStudio(t, "France", "paris")
	var out strings.Builder
	if err := study(s, domain.ModeLearn, strings.NewReader(""), &out); err == nil {
		t.Error("Expected learn to be unavailable on a one-card deck")
	}
}

func TestStudyMatchRejectsUnknownTile(t *testing.T) {
	s := newStudio(t, "France", "paris", "Italy", "rome")
	var out strings.Builder
	if err := study(s, domain.ModeMatch, strings.NewReader("1 z\n9 a\nq\n"), &out); err != nil {
		t.Fatalf("study() returned an unexpected error: %v", err)
	}
	if got := strings.Count(out.String(), "There is no pair"); got != 2 {
		t.Errorf("Expected two rejected moves, but got %d in:\n%s", got, out.String())
	}

	b, _ := s.Board()
	for _, tile := range append(b.Terms, b.Definitions...) {
		if tile.State != session.TileIdle {
			t.Errorf("Expected every tile idle after rejected moves, but got %+v", tile)
		}
	}
}

func TestMatchPair(t *testing.T) {
	s := newStudio(t, "France", "paris", "Italy", "rome")
	if _, err := s.OpenSession(domain.ModeMatch); err != nil {
		t.Fatalf("Failed to start match: %v", err)
	}
	b, _ := s.Board()
	partner := func(ti int) int {
		for i, d := range b.Definitions {
			if d.CardID == b.Terms[ti].CardID {
				return i
			}
		}
		return -1
	}

	if _, err := matchPair(s, 0, 5); !errors.Is(err, domain.ErrUnknownCard) {
		t.Errorf("Expected ErrUnknownCard, but got %v", err)
	}

	// A term left selected by an earlier move must not swallow the next one.
	s.SelectTile(domain.TermField, 0)
	res, err := matchPair(s, 0, partner(0))
	if err != nil || res != session.Matched {
		t.Fatalf("Expected a match, but got %v, %v", res, err)
	}

	res, err = matchPair(s, 0, partner(0))
	if err != nil || res != session.Ignored {
		t.Errorf("Expected an already matched pair to be ignored, but got %v, %v", res, err)
	}
}

func TestEditDeck(t *testing.T) {
	s := newStudio(t, "France", "paris", "Italy", "rome")
	before := s.ShareToken()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	title := fs.String("title", domain.UntitledDeck, "")
	fs.Bool("shuffle", false, "")
	fs.Bool("definition-first", false, "")
	if err := fs.Parse([]string{"--title", "Capitals"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if err := editDeck(s, *title, domain.Settings{}, fs); err != nil {
		t.Fatalf("editDeck() returned an unexpected error: %v", err)
	}
	d := s.Deck()
	if d.Title != "Capitals" || s.ShareToken() == before {
		t.Errorf("Expected the deck renamed with a new token, but got %q", d.Title)
	}
	if d.Settings != domain.DefaultSettings() {
		t.Errorf("Expected settings untouched, but got %+v", d.Settings)
	}
}
