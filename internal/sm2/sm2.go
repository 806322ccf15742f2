// Package sm2 implements the SuperMemo-2 spaced repetition algorithm.
//
// Quality ratings follow the classic SM-2 scale:
//
//	0: complete blackout
//	1: incorrect, correct answer remembered on seeing it
//	2: incorrect, correct answer felt familiar
//	3: correct with serious difficulty
//	4: correct after hesitation
//	5: perfect recall
//
// Ratings of 3 and above count as passing; below 3 is a lapse.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

const (
	// PassThreshold is the lowest quality that counts as a correct answer.
	PassThreshold = 3

	// MinQuality and MaxQuality bound the accepted rating scale.
	MinQuality = 0
	MaxQuality = 5
)

// Result is the output of one algorithm step. It carries the complete next
// scheduling state; the caller decides whether to persist it.
type Result struct {
	IntervalDays  int
	EaseFactor    float64
	Repetitions   int
	LapseCount    int
	LearningState domain.LearningState
	DueAt         time.Time
}

// Update computes the next scheduling state for a card given a review at the
// given time. It is a pure function: the input state is not modified and no
// clock is read.
func Update(state domain.CardSchedulingState, quality int, now time.Time) (Result, error) {
	if quality < MinQuality || quality > MaxQuality {
		return Result{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuality, quality)
	}

	// The ease factor moves on every review, lapses included.
	newEase := NextEaseFactor(state.EaseFactor, quality)

	res := Result{
		EaseFactor: newEase,
		LapseCount: state.LapseCount,
	}

	switch {
	case quality < PassThreshold:
		// Lapse: scheduling restarts at one day, but the lifetime repetition
		// count is kept so statistics stay monotonic.
		res.IntervalDays = 1
		res.Repetitions = state.Repetitions
		res.LapseCount = state.LapseCount + 1
		if state.LearningState == domain.StateReview {
			res.LearningState = domain.StateRelearning
		} else {
			res.LearningState = domain.StateLearning
		}
	case state.IntervalDays == 0:
		// First successful review.
		res.IntervalDays = 1
		res.Repetitions = state.Repetitions + 1
		res.LearningState = domain.StateLearning
	case state.IntervalDays == 1:
		// Second successful review.
		res.IntervalDays = 6
		res.Repetitions = state.Repetitions + 1
		res.LearningState = domain.StateReview
	default:
		res.IntervalDays = int(math.Round(float64(state.IntervalDays) * newEase))
		res.Repetitions = state.Repetitions + 1
		res.LearningState = domain.StateReview
	}

	res.DueAt = now.AddDate(0, 0, res.IntervalDays)
	return res, nil
}

// NextEaseFactor applies the SM-2 ease factor formula
// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), clamped to the 1.3 floor.
func NextEaseFactor(ease float64, quality int) float64 {
	q := float64(quality)
	next := ease + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if next < domain.MinEaseFactor {
		next = domain.MinEaseFactor
	}
	return next
}

// IsPassing reports whether the quality counts as a correct answer.
func IsPassing(quality int) bool {
	return quality >= PassThreshold
}

// Apply merges an algorithm result into a scheduling state snapshot,
// stamping the review time. The version token is left untouched; the
// repository bumps it on write.
func Apply(state domain.CardSchedulingState, res Result, reviewedAt time.Time) domain.CardSchedulingState {
	state.IntervalDays = res.IntervalDays
	state.EaseFactor = res.EaseFactor
	state.Repetitions = res.Repetitions
	state.LapseCount = res.LapseCount
	state.LearningState = res.LearningState
	state.DueAt = res.DueAt
	t := reviewedAt
	state.LastReviewedAt = &t
	return state
}
