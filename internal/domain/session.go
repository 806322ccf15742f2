package domain

import (
	"slices"
	"time"
)

// SessionType selects which cards a study session draws from.
type SessionType string

const (
	// SessionReview drills cards whose due date has passed.
	SessionReview SessionType = "review"
	// SessionLearnNew introduces cards that have never been reviewed.
	SessionLearnNew SessionType = "learn_new"
	// SessionCram drills every card in the deck without touching its schedule.
	SessionCram SessionType = "cram"
)

// ValidSessionType reports whether t is one of the known session types.
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionReview, SessionLearnNew, SessionCram:
		return true
	default:
		return false
	}
}

// SessionStatus is the lifecycle state of a study session.
// Completed and Abandoned are terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// StudySession is one sitting of reviews against a deck. The card queue is
// frozen at start time; the cursor points at the next card to review and only
// ever moves forward.
type StudySession struct {
	ID             string
	UserID         string
	DeckID         string
	SessionType    SessionType
	Status         SessionStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	CardQueue      []string
	Cursor         int
	CardsCorrect   int
	CardsIncorrect int
}

// IsActive reports whether the session can still accept reviews.
func (s StudySession) IsActive() bool {
	return s.Status == SessionActive
}

// NextCard returns the card the cursor points at, or false when every card in
// the queue has been reviewed.
func (s StudySession) NextCard() (string, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.CardQueue) {
		return "", false
	}
	return s.CardQueue[s.Cursor], true
}

// Remaining is the number of cards not yet reviewed in this session.
func (s StudySession) Remaining() int {
	if s.Cursor >= len(s.CardQueue) {
		return 0
	}
	return len(s.CardQueue) - s.Cursor
}

// CardsReviewed is the number of reviews recorded so far.
func (s StudySession) CardsReviewed() int {
	return s.CardsCorrect + s.CardsIncorrect
}

// Accuracy is the fraction of reviews answered correctly, in [0,1].
// A session with no reviews has an accuracy of 0.
func (s StudySession) Accuracy() float64 {
	reviewed := s.CardsReviewed()
	if reviewed == 0 {
		return 0
	}
	return float64(s.CardsCorrect) / float64(reviewed)
}

// Contains reports whether the card is part of this session's queue.
func (s StudySession) Contains(cardID string) bool {
	return slices.Contains(s.CardQueue, cardID)
}
