// Package domain defines the study-deck entities and the errors shared
// across the core packages.
package domain

import "errors"

var (
	// ErrDecode is returned when a transport token cannot be decoded.
	ErrDecode = errors.New("malformed deck token")

	// ErrValidation is returned when a decoded payload is not a deck.
	ErrValidation = errors.New("invalid deck payload")

	// ErrStorage is returned when the local store cannot be read or written.
	ErrStorage = errors.New("storage failure")

	// ErrInsufficientCards is returned when a mode's card minimum is not met.
	ErrInsufficientCards = errors.New("not enough cards for this mode")

	// ErrUnknownMode is returned for a mode name that does not exist.
	ErrUnknownMode = errors.New("unknown study mode")

	// ErrNoSession is returned when a mode has no active session.
	ErrNoSession = errors.New("no active session")

	// ErrSessionComplete is returned when acting on a drained session.
	ErrSessionComplete = errors.New("session complete")

	// ErrAlreadyAnswered is returned when the current question was graded.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrNotAnswered is returned when advancing before an answer.
	ErrNotAnswered = errors.New("question not answered")

	// ErrEmptyAnswer is returned for a blank typed answer.
	ErrEmptyAnswer = errors.New("answer is empty")

	// ErrUnknownCard is returned when a card id is not part of the session.
	ErrUnknownCard = errors.New("unknown card")

	// ErrBusy is returned while a match pairing is cooling down.
	ErrBusy = errors.New("pairing check in progress")
)
