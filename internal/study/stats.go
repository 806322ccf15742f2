package study

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
	"github.com/conorfennell/memodeck/internal/sm2"
)

// GetStats summarises a deck's scheduling state at the given time. Decks with
// no reviewed cards report the default ease factor as the average.
func (s *Service) GetStats(ctx context.Context, deckID string, now time.Time) (*domain.DeckStats, error) {
	cards, err := s.cards.ListDeckCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck cards: %w", err)
	}
	states, err := s.states.ListDeckStates(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck states: %w", err)
	}

	stats := domain.DeckStats{AverageEaseFactor: domain.DefaultEaseFactor}
	seen := make(map[string]bool, len(states))
	var easeSum float64
	for _, st := range states {
		seen[st.CardID] = true
		easeSum += st.EaseFactor
		if st.IsDue(now) {
			stats.DueCount++
		}
		switch st.LearningState {
		case domain.StateNew:
			stats.NewCount++
		case domain.StateReview:
			stats.ReviewCount++
		}
	}
	// Cards with no scheduling state yet are new as well.
	for _, card := range cards {
		if !seen[card.ID] {
			stats.NewCount++
		}
	}
	if len(states) > 0 {
		stats.AverageEaseFactor = easeSum / float64(len(states))
	}
	return &stats, nil
}

// GetDeckCounts breaks the deck down by lifecycle phase: total, due, never
// reviewed, and currently in a learning or relearning phase.
func (s *Service) GetDeckCounts(ctx context.Context, deckID string, now time.Time) (*domain.DeckCounts, error) {
	cards, err := s.cards.ListDeckCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck cards: %w", err)
	}
	states, err := s.states.ListDeckStates(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck states: %w", err)
	}

	counts := domain.DeckCounts{TotalCards: len(cards)}
	seen := make(map[string]bool, len(states))
	for _, st := range states {
		seen[st.CardID] = true
		if st.IsDue(now) {
			counts.DueCards++
		}
		switch st.LearningState {
		case domain.StateNew:
			counts.NewCards++
		case domain.StateLearning, domain.StateRelearning:
			counts.LearningCards++
		}
	}
	for _, card := range cards {
		if !seen[card.ID] {
			counts.NewCards++
		}
	}
	return &counts, nil
}

// GetReviewHistory returns a card's full review trail, newest first, with the
// average quality and the current streak of passing reviews.
func (s *Service) GetReviewHistory(ctx context.Context, cardID string) (*domain.ReviewHistory, error) {
	records, err := s.reviews.ListCardReviews(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for card %s: %w", cardID, err)
	}

	history := domain.ReviewHistory{
		CardID:       cardID,
		TotalReviews: len(records),
		Records:      records,
	}
	var qualitySum int
	for _, r := range records {
		qualitySum += r.Quality
	}
	if len(records) > 0 {
		history.AverageQuality = float64(qualitySum) / float64(len(records))
	}
	// Records are newest first, so the streak is the leading run of passes.
	for _, r := range records {
		if !sm2.IsPassing(r.Quality) {
			break
		}
		history.CurrentStreak++
	}
	return &history, nil
}
