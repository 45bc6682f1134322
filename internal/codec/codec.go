// Package codec maps decks to the URL-safe tokens carried in a link
// fragment and back.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/conorfennell/studydeck/internal/deck"
	"github.com/conorfennell/studydeck/internal/domain"
)

var (
	toURLSafe   = strings.NewReplacer("+", "-", "/", "_")
	fromURLSafe = strings.NewReplacer("-", "+", "_", "/")
)

// Encode serializes the deck and returns it as unpadded URL-safe base64.
func Encode(d domain.Deck) (string, error) {
	data, err := deck.Marshal(d)
	if err != nil {
		return "", err
	}
	token := toURLSafe.Replace(base64.StdEncoding.EncodeToString(data))
	return strings.TrimRight(token, "="), nil
}

// Decode reverses Encode. A leading '#' is accepted so a raw URL fragment
// can be passed straight through. Every failure wraps domain.ErrDecode or
// domain.ErrValidation.
func Decode(token string) (domain.Deck, error) {
	s := strings.TrimPrefix(strings.TrimSpace(token), "#")
	if s == "" {
		return domain.Deck{}, fmt.Errorf("%w: empty token", domain.ErrDecode)
	}

	s = fromURLSafe.Replace(s)
	switch len(s) % 4 {
	case 1:
		return domain.Deck{}, fmt.Errorf("%w: invalid token length %d", domain.ErrDecode, len(s))
	case 2:
		s += "=="
	case 3:
		s += "="
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if !utf8.Valid(data) {
		return domain.Deck{}, fmt.Errorf("%w: payload is not valid UTF-8", domain.ErrDecode)
	}

	return deck.Parse(data)
}
