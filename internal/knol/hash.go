package knol

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/conorfennell/studydeck/internal/domain"
)

// Key is the content identity of a card: "term|definition".
// Progress survives id regeneration because it is stored under this key.
func Key(card domain.Card) string {
	return card.Term + "|" + card.Definition
}

// Fingerprint identifies the deck a persisted session belongs to.
// It is the SHA-256 of the transport token, so any edit to the deck,
// its title or its settings invalidates stored sessions.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum)
}

// CardID derives a card id from the deck fingerprint and the card's position.
// The same token always yields the same ids, which lets a stored session
// queue be matched back to cards after a reload.
func CardID(fingerprint string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fingerprint+"#"+strconv.Itoa(index))).String()
}
