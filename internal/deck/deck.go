// Package deck holds the canonical serialized form of a deck and the
// validator that turns untrusted payloads into a normalized domain.Deck.
package deck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conorfennell/studydeck/internal/domain"
)

type wireCard struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type wireSettings struct {
	Shuffle   bool `json:"shuffle"`
	TermFirst bool `json:"termFirst"`
}

type wireDeck struct {
	Title    string       `json:"title"`
	Cards    []wireCard   `json:"cards"`
	Settings wireSettings `json:"settings"`
}

// rawDeck is the permissive first pass over an object payload. Every field
// is kept raw so a wrong type in one field can be handled on its own.
type rawDeck struct {
	Title    json.RawMessage `json:"title"`
	Cards    json.RawMessage `json:"cards"`
	Settings json.RawMessage `json:"settings"`
}

// Normalize returns the transport shape of d: a non-empty title, cards
// reduced to term and definition with blank ones dropped, and settings
// carried as-is.
func Normalize(d domain.Deck) domain.Deck {
	title := d.Title
	if title == "" {
		title = domain.UntitledDeck
	}
	cards := make([]domain.Card, 0, len(d.Cards))
	for _, c := range d.Cards {
		if blank(c) {
			continue
		}
		cards = append(cards, domain.Card{Term: c.Term, Definition: c.Definition})
	}
	return domain.Deck{Title: title, Cards: cards, Settings: d.Settings}
}

// Empty returns the deck used in create context and after a bad link.
func Empty() domain.Deck {
	return domain.Deck{Title: domain.UntitledDeck, Cards: []domain.Card{}, Settings: domain.DefaultSettings()}
}

// Marshal renders the canonical JSON form of a deck.
func Marshal(d domain.Deck) ([]byte, error) {
	n := Normalize(d)
	w := wireDeck{
		Title: n.Title,
		Cards: make([]wireCard, len(n.Cards)),
		Settings: wireSettings{
			Shuffle:   n.Settings.ShuffleEnabled,
			TermFirst: n.Settings.TermShownFirst,
		},
	}
	for i, c := range n.Cards {
		w.Cards[i] = wireCard{Term: c.Term, Definition: c.Definition}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("failed to marshal deck: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse validates a serialized payload and returns the normalized deck.
// A bare array of cards is the legacy format and gets the default title and
// settings. Invalid JSON yields domain.ErrDecode; JSON that is not a deck
// yields domain.ErrValidation.
func Parse(data []byte) (domain.Deck, error) {
	if !json.Valid(data) {
		return domain.Deck{}, fmt.Errorf("%w: payload is not JSON", domain.ErrDecode)
	}

	var legacy []json.RawMessage
	if err := json.Unmarshal(data, &legacy); err == nil && legacy != nil {
		return domain.Deck{Title: domain.UntitledDeck, Cards: parseCards(legacy), Settings: domain.DefaultSettings()}, nil
	}

	var raw rawDeck
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Deck{}, fmt.Errorf("%w: payload is neither an object nor a card list", domain.ErrValidation)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw.Cards, &items); err != nil || items == nil {
		return domain.Deck{}, fmt.Errorf("%w: cards must be a list", domain.ErrValidation)
	}
	cards := parseCards(items)

	var title string
	if err := json.Unmarshal(raw.Title, &title); err != nil || title == "" {
		title = domain.UntitledDeck
	}

	return domain.Deck{Title: title, Cards: cards, Settings: parseSettings(raw.Settings)}, nil
}

// parseCards keeps the elements that are objects with some text in them.
// A number or boolean term or definition is read as its literal text; any
// other type reads as blank.
func parseCards(items []json.RawMessage) []domain.Card {
	cards := make([]domain.Card, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		c := domain.Card{Term: text(fields["term"]), Definition: text(fields["definition"])}
		if blank(c) {
			continue
		}
		cards = append(cards, c)
	}
	return cards
}

func text(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}
	switch c := v[0]; {
	case c == '"':
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
	case c == '-' || (c >= '0' && c <= '9'), string(v) == "true", string(v) == "false":
		return string(v)
	}
	return ""
}

func blank(c domain.Card) bool {
	return strings.TrimSpace(c.Term) == "" && strings.TrimSpace(c.Definition) == ""
}

// parseSettings merges present boolean keys over the defaults. Unknown keys
// and values of the wrong type are dropped.
func parseSettings(data json.RawMessage) domain.Settings {
	settings := domain.DefaultSettings()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return settings
	}

	var b bool
	if v, ok := fields["shuffle"]; ok && json.Unmarshal(v, &b) == nil {
		settings.ShuffleEnabled = b
	}
	if v, ok := fields["termFirst"]; ok && json.Unmarshal(v, &b) == nil {
		settings.TermShownFirst = b
	}
	return settings
}
