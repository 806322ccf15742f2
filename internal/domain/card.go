package domain

import "time"

// Card is the engine's read-only view of a flashcard. Card content and CRUD
// belong to the owning application; the scheduler only needs identity, deck
// membership and creation time.
type Card struct {
	ID        string
	DeckID    string
	CreatedAt time.Time
}

// LearningState is the lifecycle phase of a card's schedule.
type LearningState string

const (
	StateNew        LearningState = "new"
	StateLearning   LearningState = "learning"
	StateReview     LearningState = "review"
	StateRelearning LearningState = "relearning"
)

// DefaultEaseFactor is the starting ease factor for new cards.
const DefaultEaseFactor = 2.5

// MinEaseFactor is the floor below which the ease factor never drops.
const MinEaseFactor = 1.3

// CardSchedulingState holds the SM-2 memory state for a single card.
// It is mutated only by applying an algorithm result through the session
// manager; everything else treats it as a value snapshot.
type CardSchedulingState struct {
	CardID         string
	Repetitions    int
	IntervalDays   int
	EaseFactor     float64
	DueAt          time.Time
	LastReviewedAt *time.Time
	LapseCount     int
	LearningState  LearningState

	// Version is the optimistic concurrency token. Zero means the state has
	// never been persisted.
	Version int64
}

// NewSchedulingState returns the initial state for a card that has never been
// reviewed. The card is due immediately.
func NewSchedulingState(cardID string, now time.Time) CardSchedulingState {
	return CardSchedulingState{
		CardID:        cardID,
		Repetitions:   0,
		IntervalDays:  0,
		EaseFactor:    DefaultEaseFactor,
		DueAt:         now,
		LearningState: StateNew,
	}
}

// IsDue reports whether the card is eligible for review at the given time.
func (s CardSchedulingState) IsDue(now time.Time) bool {
	return !s.DueAt.After(now)
}
