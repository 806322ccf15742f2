package study

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

// DefaultNewCardCap bounds how many new cards a learn-new session introduces
// when the caller does not ask for a specific limit.
const DefaultNewCardCap = 20

// Selector picks the ordered card queue for a session. It only reads; a
// slightly stale snapshot is acceptable, so no locking is involved.
type Selector struct {
	cards  CardRepository
	states SchedulingStateRepository
}

// NewSelector returns a selector reading from the given repositories.
func NewSelector(cards CardRepository, states SchedulingStateRepository) *Selector {
	return &Selector{cards: cards, states: states}
}

// SelectDue returns the ordered card ids eligible for a session of the given
// type at the given time. An empty deck or nothing due yields an empty slice,
// never an error.
//
//   - review: cards due at or before now, most overdue first.
//   - learn_new: cards never reviewed, oldest-added first, capped at maxCards
//     (DefaultNewCardCap when maxCards <= 0).
//   - cram: every card in the deck in creation order, due dates ignored.
func (s *Selector) SelectDue(ctx context.Context, deckID string, now time.Time, sessionType domain.SessionType, maxCards int) ([]string, error) {
	switch sessionType {
	case domain.SessionReview:
		return s.selectReview(ctx, deckID, now)
	case domain.SessionLearnNew:
		return s.selectNew(ctx, deckID, maxCards)
	case domain.SessionCram:
		return s.selectCram(ctx, deckID)
	default:
		return nil, fmt.Errorf("unknown session type %q", sessionType)
	}
}

func (s *Selector) selectReview(ctx context.Context, deckID string, now time.Time) ([]string, error) {
	states, err := s.states.ListDeckStates(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck states: %w", err)
	}

	due := states[:0:0]
	for _, st := range states {
		if st.IsDue(now) {
			due = append(due, st)
		}
	}
	// Most overdue first: the cards most at risk of being forgotten.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueAt.Before(due[j].DueAt)
	})

	ids := make([]string, 0, len(due))
	for _, st := range due {
		ids = append(ids, st.CardID)
	}
	return ids, nil
}

func (s *Selector) selectNew(ctx context.Context, deckID string, maxCards int) ([]string, error) {
	if maxCards <= 0 {
		maxCards = DefaultNewCardCap
	}

	cards, err := s.cards.ListDeckCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck cards: %w", err)
	}
	states, err := s.states.ListDeckStates(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck states: %w", err)
	}

	reviewed := make(map[string]domain.LearningState, len(states))
	for _, st := range states {
		reviewed[st.CardID] = st.LearningState
	}

	// Cards come back in creation order already; keep that order.
	ids := make([]string, 0, maxCards)
	for _, card := range cards {
		state, ok := reviewed[card.ID]
		if ok && state != domain.StateNew {
			continue
		}
		ids = append(ids, card.ID)
		if len(ids) == maxCards {
			break
		}
	}
	return ids, nil
}

func (s *Selector) selectCram(ctx context.Context, deckID string) ([]string, error) {
	cards, err := s.cards.ListDeckCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("listing deck cards: %w", err)
	}
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	return ids, nil
}
