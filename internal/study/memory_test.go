package study

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

// memStore is an in-memory implementation of the repository contracts with
// the same atomicity semantics as the SQLite storage: one active session per
// user and deck, version-checked state writes, cursor-checked advances.
type memStore struct {
	mu       sync.Mutex
	cards    []domain.Card
	states   map[string]domain.CardSchedulingState
	sessions map[string]domain.StudySession
	reviews  []domain.ReviewRecord
}

func newMemStore() *memStore {
	return &memStore{
		states:   make(map[string]domain.CardSchedulingState),
		sessions: make(map[string]domain.StudySession),
	}
}

func (m *memStore) addCard(id, deckID string, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, domain.Card{ID: id, DeckID: deckID, CreatedAt: createdAt})
}

func (m *memStore) setState(state domain.CardSchedulingState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.Version == 0 {
		state.Version = 1
	}
	m.states[state.CardID] = state
}

func (m *memStore) GetCard(_ context.Context, cardID string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.ID == cardID {
			card := c
			return &card, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListDeckCards(_ context.Context, deckID string) ([]domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cards []domain.Card
	for _, c := range m.cards {
		if c.DeckID == deckID {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func (m *memStore) GetState(_ context.Context, cardID string) (*domain.CardSchedulingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[cardID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *memStore) PutState(_ context.Context, state domain.CardSchedulingState) (domain.CardSchedulingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.states[state.CardID]
	if state.Version == 0 {
		if ok {
			return domain.CardSchedulingState{}, fmt.Errorf("card %s: %w", state.CardID, domain.ErrConcurrentModification)
		}
		state.Version = 1
		m.states[state.CardID] = state
		return state, nil
	}
	if !ok || existing.Version != state.Version {
		return domain.CardSchedulingState{}, fmt.Errorf("card %s: %w", state.CardID, domain.ErrConcurrentModification)
	}
	state.Version++
	m.states[state.CardID] = state
	return state, nil
}

func (m *memStore) ListDeckStates(_ context.Context, deckID string) ([]domain.CardSchedulingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var states []domain.CardSchedulingState
	for _, c := range m.cards {
		if c.DeckID != deckID {
			continue
		}
		if state, ok := m.states[c.ID]; ok {
			states = append(states, state)
		}
	}
	return states, nil
}

func (m *memStore) CreateSession(_ context.Context, s domain.StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.UserID == s.UserID && existing.DeckID == s.DeckID && existing.Status == domain.SessionActive {
			return fmt.Errorf("user %s deck %s: %w", s.UserID, s.DeckID, domain.ErrSessionAlreadyActive)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) GetActiveSession(_ context.Context, userID, deckID string) (*domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.DeckID == deckID && s.Status == domain.SessionActive {
			sess := s
			return &sess, nil
		}
	}
	return nil, nil
}

func (m *memStore) AdvanceCursor(_ context.Context, id string, fromCursor int, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	switch {
	case !ok:
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	case s.Status != domain.SessionActive:
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotActive)
	case s.Cursor != fromCursor:
		return fmt.Errorf("session %s: %w", id, domain.ErrConcurrentModification)
	}
	s.Cursor++
	if correct {
		s.CardsCorrect++
	} else {
		s.CardsIncorrect++
	}
	m.sessions[id] = s
	return nil
}

func (m *memStore) SetStatus(_ context.Context, id string, from, to domain.SessionStatus, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	if s.Status != from {
		return fmt.Errorf("session %s: %w", id, domain.ErrConcurrentModification)
	}
	s.Status = to
	t := completedAt
	s.CompletedAt = &t
	m.sessions[id] = s
	return nil
}

func (m *memStore) AppendReview(_ context.Context, r domain.ReviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *memStore) ListSessionReviews(_ context.Context, sessionID string) ([]domain.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.ReviewRecord
	for _, r := range m.reviews {
		if r.SessionID == sessionID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (m *memStore) ListCardReviews(_ context.Context, cardID string) ([]domain.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.ReviewRecord
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].CardID == cardID {
			records = append(records, m.reviews[i])
		}
	}
	return records, nil
}

// newTestService wires a service to a fresh in-memory store with a fixed
// clock.
func newTestService(now time.Time) (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, store, store, store, nil)
	svc.Clock = func() time.Time { return now }
	return svc, store
}
