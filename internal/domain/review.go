package domain

import "time"

// ReviewRecord is an immutable fact describing one review event, kept as an
// audit trail for statistics and for debugging the scheduler.
type ReviewRecord struct {
	ID               string
	SessionID        string
	CardID           string
	Quality          int
	TimeTakenSeconds *int
	ReviewedAt       time.Time
	IntervalBefore   int
	IntervalAfter    int
	EaseFactorBefore float64
	EaseFactorAfter  float64
}

// DeckStats summarises the scheduling state of a deck.
type DeckStats struct {
	DueCount          int
	NewCount          int
	ReviewCount       int
	AverageEaseFactor float64
}

// DeckCounts breaks a deck down by card lifecycle phase at a point in time.
type DeckCounts struct {
	TotalCards    int
	DueCards      int
	NewCards      int
	LearningCards int
}

// ReviewHistory is the per-card review trail, newest record first.
type ReviewHistory struct {
	CardID         string
	TotalReviews   int
	AverageQuality float64
	CurrentStreak  int
	Records        []ReviewRecord
}
