package progress

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conorfennell/studydeck/internal/domain"
)

const sessionKeyPrefix = "session:"

type sessionDoc struct {
	Version     int      `json:"version" validate:"eq=1"`
	Mode        string   `json:"mode" validate:"required,oneof=learn type match"`
	Fingerprint string   `json:"fingerprint" validate:"required"`
	CardIDs     []string `json:"cardIds" validate:"dive,required"`
}

// Sessions stores one queue snapshot per study mode.
type Sessions struct {
	kv KV
}

// NewSessions returns a session store over kv.
func NewSessions(kv KV) *Sessions {
	return &Sessions{kv: kv}
}

func sessionKey(mode domain.Mode) string {
	return sessionKeyPrefix + string(mode)
}

// Save writes the snapshot for its mode, replacing the previous one.
func (s *Sessions) Save(state domain.SessionState) error {
	doc := sessionDoc{
		Version:     schemaVersion,
		Mode:        string(state.Mode),
		Fingerprint: state.Fingerprint,
		CardIDs:     state.CardIDs,
	}
	if doc.CardIDs == nil {
		doc.CardIDs = []string{}
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: invalid session snapshot: %v", domain.ErrStorage, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode session: %v", domain.ErrStorage, err)
	}
	return s.kv.Put(sessionKey(state.Mode), string(data))
}

// Load returns the stored snapshot for mode. A snapshot that does not parse
// or validate is deleted and reported as absent along with the error.
func (s *Sessions) Load(mode domain.Mode) (domain.SessionState, bool, error) {
	raw, ok, err := s.kv.Get(sessionKey(mode))
	if err != nil || !ok {
		return domain.SessionState{}, false, err
	}

	var doc sessionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		err = validate.Struct(doc)
		if err == nil && doc.Mode == string(mode) {
			return domain.SessionState{
				Mode:        mode,
				Fingerprint: doc.Fingerprint,
				CardIDs:     doc.CardIDs,
			}, true, nil
		}
	}

	if err := s.kv.Delete(sessionKey(mode)); err != nil {
		return domain.SessionState{}, false, err
	}
	return domain.SessionState{}, false, fmt.Errorf("%w: discarded corrupt %s session", domain.ErrStorage, mode)
}

// Saved returns every stored snapshot, one per mode. Entries that do not
// load are skipped; Load has already deleted them.
func (s *Sessions) Saved() ([]domain.SessionState, error) {
	keys, err := s.kv.Keys(sessionKeyPrefix)
	if err != nil {
		return nil, err
	}
	var states []domain.SessionState
	for _, key := range keys {
		state, ok, err := s.Load(domain.Mode(strings.TrimPrefix(key, sessionKeyPrefix)))
		if err != nil || !ok {
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

// Clear removes the snapshot for mode.
func (s *Sessions) Clear(mode domain.Mode) error {
	return s.kv.Delete(sessionKey(mode))
}
