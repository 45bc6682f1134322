// Package progress persists per-card mastery, in-flight study sessions and
// the Match best time in a local key-value store.
package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/knol"
)

// KV is the durable local key-value store the package writes through to.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

const (
	progressKey   = "progress"
	schemaVersion = 1
)

var validate = validator.New()

// Record is the persisted subset of a card. Times are Unix milliseconds,
// zero when the card was never reviewed.
type Record struct {
	Score        int   `json:"score" validate:"min=0,max=5"`
	LastReviewed int64 `json:"lastReviewed" validate:"min=0"`
	NextReview   int64 `json:"nextReview" validate:"min=0"`
}

type progressDoc struct {
	Version int               `json:"version"`
	Records map[string]Record `json:"records"`
}

// Store holds every record ever written, keyed by card content.
type Store struct {
	kv      KV
	records map[string]Record
}

// Load reads the progress entry. The returned store is always usable: when
// the entry is missing it is empty, and when it cannot be read or parsed it
// is empty and the error says why.
func Load(kv KV) (*Store, error) {
	s := &Store{kv: kv, records: map[string]Record{}}

	raw, ok, err := kv.Get(progressKey)
	if err != nil || !ok {
		return s, err
	}

	records, err := decodeRecords([]byte(raw))
	if err != nil {
		return s, err
	}
	s.records = records
	return s, nil
}

// decodeRecords accepts the versioned document and migrates the two legacy
// shapes: a bare object map and a list of [key, record] pairs. Records that
// fail validation are dropped.
func decodeRecords(data []byte) (map[string]Record, error) {
	var doc progressDoc
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version != 0 {
		if doc.Version != schemaVersion {
			return nil, fmt.Errorf("%w: unsupported progress version %d", domain.ErrStorage, doc.Version)
		}
		return validRecords(doc.Records), nil
	}

	var legacy map[string]Record
	if err := json.Unmarshal(data, &legacy); err == nil {
		return validRecords(legacy), nil
	}

	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err == nil {
		records := make(map[string]Record, len(pairs))
		for _, p := range pairs {
			var key string
			var r Record
			if json.Unmarshal(p[0], &key) != nil || json.Unmarshal(p[1], &r) != nil {
				continue
			}
			records[key] = r
		}
		return validRecords(records), nil
	}

	return nil, fmt.Errorf("%w: unreadable progress entry", domain.ErrStorage)
}

func validRecords(in map[string]Record) map[string]Record {
	out := make(map[string]Record, len(in))
	for k, r := range in {
		if validate.Struct(r) == nil {
			out[k] = r
		}
	}
	return out
}

// Len is the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Lookup returns the record for a card, by content.
func (s *Store) Lookup(card domain.Card) (Record, bool) {
	r, ok := s.records[knol.Key(card)]
	return r, ok
}

// Merge returns a copy of cards with stored mastery applied. Cards without
// a record keep their zero state.
func (s *Store) Merge(cards []domain.Card) []domain.Card {
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		if r, ok := s.records[knol.Key(c)]; ok {
			c.MasteryScore = r.Score
			c.LastReviewedAt = fromMillis(r.LastReviewed)
			c.NextDueAt = fromMillis(r.NextReview)
		}
		out[i] = c
	}
	return out
}

// Save records the card's mastery and writes the whole map through to the
// store immediately. The in-memory record is kept even if the write fails.
func (s *Store) Save(card domain.Card) error {
	s.records[knol.Key(card)] = Record{
		Score:        card.MasteryScore,
		LastReviewed: toMillis(card.LastReviewedAt),
		NextReview:   toMillis(card.NextDueAt),
	}

	data, err := json.Marshal(progressDoc{Version: schemaVersion, Records: s.records})
	if err != nil {
		return fmt.Errorf("%w: failed to encode progress: %v", domain.ErrStorage, err)
	}
	return s.kv.Put(progressKey, string(data))
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
