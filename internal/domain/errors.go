package domain

import "errors"

// Engine error taxonomy. Every rejected operation wraps one of these
// sentinels so callers can dispatch with errors.Is; nothing is retried
// internally.
var (
	// ErrInvalidQuality rejects a quality rating outside 0..5.
	ErrInvalidQuality = errors.New("quality must be between 0 and 5")

	// ErrSessionAlreadyActive rejects a second active session for the same
	// user and deck.
	ErrSessionAlreadyActive = errors.New("an active session already exists for this user and deck")

	// ErrSessionNotFound means no session exists with the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive rejects an operation on a completed or abandoned
	// session.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrCardNotInSession rejects a review for a card that is not the next
	// card in the session queue.
	ErrCardNotInSession = errors.New("card is not next in the session queue")

	// ErrConcurrentModification means another writer changed the record
	// between read and write; the caller may retry the whole operation.
	ErrConcurrentModification = errors.New("record was modified concurrently")
)
