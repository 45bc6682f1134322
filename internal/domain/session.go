package domain

// SessionState is the persisted form of a Learn, Type or Match queue.
// Fingerprint ties it to the deck token it was built from.
type SessionState struct {
	Mode        Mode
	Fingerprint string
	CardIDs     []string
}
