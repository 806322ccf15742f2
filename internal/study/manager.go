package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/memodeck/internal/domain"
	"github.com/conorfennell/memodeck/internal/sm2"
)

// Service is the engine's public surface. All operations are synchronous and
// fail fast with a typed error from the domain package; nothing is retried
// internally.
type Service struct {
	cards    CardRepository
	states   SchedulingStateRepository
	sessions SessionRepository
	reviews  ReviewRepository
	selector *Selector
	log      *slog.Logger

	// Clock supplies the current time. Tests may replace it; everything else
	// should leave it alone.
	Clock func() time.Time

	// NewCardCap is the default limit on new cards per learn-new session,
	// used when the caller passes no explicit limit.
	NewCardCap int
}

// NewService wires the engine to its repositories.
func NewService(cards CardRepository, states SchedulingStateRepository, sessions SessionRepository, reviews ReviewRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cards:      cards,
		states:     states,
		sessions:   sessions,
		reviews:    reviews,
		selector:   NewSelector(cards, states),
		log:        log,
		Clock:      func() time.Time { return time.Now().UTC() },
		NewCardCap: DefaultNewCardCap,
	}
}

// StartSession creates a new active session for the user and deck, freezing
// its card queue at the current moment. At most one active session may exist
// per user and deck; the check and the insert are atomic at the storage
// layer, so a concurrent loser gets domain.ErrSessionAlreadyActive. An empty
// queue is not an error: the session is created anyway so the caller can
// record a zero-card sitting.
func (s *Service) StartSession(ctx context.Context, userID, deckID string, sessionType domain.SessionType, maxCards int) (*domain.StudySession, error) {
	if !domain.ValidSessionType(sessionType) {
		return nil, fmt.Errorf("unknown session type %q", sessionType)
	}

	if maxCards <= 0 {
		maxCards = s.NewCardCap
	}

	now := s.Clock()
	queue, err := s.selector.SelectDue(ctx, deckID, now, sessionType, maxCards)
	if err != nil {
		return nil, fmt.Errorf("selecting cards for deck %s: %w", deckID, err)
	}

	sess := domain.StudySession{
		ID:          uuid.NewString(),
		UserID:      userID,
		DeckID:      deckID,
		SessionType: sessionType,
		Status:      domain.SessionActive,
		StartedAt:   now,
		CardQueue:   queue,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session for user %s deck %s: %w", userID, deckID, err)
	}

	s.log.Info("session started",
		"session_id", sess.ID,
		"user_id", userID,
		"deck_id", deckID,
		"type", sessionType,
		"queue_size", len(queue),
	)
	return &sess, nil
}

// GetActiveSession returns the user's active session for the deck, or nil
// when there is none.
func (s *Service) GetActiveSession(ctx context.Context, userID, deckID string) (*domain.StudySession, error) {
	sess, err := s.sessions.GetActiveSession(ctx, userID, deckID)
	if err != nil {
		return nil, fmt.Errorf("looking up active session for user %s deck %s: %w", userID, deckID, err)
	}
	return sess, nil
}

// RecordReview applies one review to the card at the session cursor. It runs
// the SM-2 update, persists the new scheduling state (except in cram
// sessions, which never write the schedule back), appends an immutable
// review record, and advances the cursor. Reviews must arrive in queue
// order; a card the cursor has not reached, or has already passed, is
// rejected with domain.ErrCardNotInSession.
func (s *Service) RecordReview(ctx context.Context, sessionID, cardID string, quality int, timeTakenSeconds *int) (*domain.StudySession, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, fmt.Errorf("session %s has status %s: %w", sessionID, sess.Status, domain.ErrSessionNotActive)
	}

	next, ok := sess.NextCard()
	switch {
	case !sess.Contains(cardID):
		return nil, fmt.Errorf("card %s is not in session %s: %w", cardID, sessionID, domain.ErrCardNotInSession)
	case !ok:
		return nil, fmt.Errorf("session %s queue is exhausted: %w", sessionID, domain.ErrCardNotInSession)
	case next != cardID:
		return nil, fmt.Errorf("expected card %s at cursor %d, got %s: %w", next, sess.Cursor, cardID, domain.ErrCardNotInSession)
	}

	now := s.Clock()
	state, err := s.states.GetState(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading state for card %s: %w", cardID, err)
	}
	if state == nil {
		// First time this card is reviewed.
		fresh := domain.NewSchedulingState(cardID, now)
		state = &fresh
	}

	res, err := sm2.Update(*state, quality, now)
	if err != nil {
		return nil, err
	}

	if sess.SessionType != domain.SessionCram {
		updated := sm2.Apply(*state, res, now)
		if _, err := s.states.PutState(ctx, updated); err != nil {
			return nil, fmt.Errorf("persisting state for card %s: %w", cardID, err)
		}
	}

	record := domain.ReviewRecord{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		CardID:           cardID,
		Quality:          quality,
		TimeTakenSeconds: timeTakenSeconds,
		ReviewedAt:       now,
		IntervalBefore:   state.IntervalDays,
		IntervalAfter:    res.IntervalDays,
		EaseFactorBefore: state.EaseFactor,
		EaseFactorAfter:  res.EaseFactor,
	}
	if err := s.reviews.AppendReview(ctx, record); err != nil {
		return nil, fmt.Errorf("appending review record: %w", err)
	}

	if err := s.sessions.AdvanceCursor(ctx, sessionID, sess.Cursor, sm2.IsPassing(quality)); err != nil {
		return nil, fmt.Errorf("advancing cursor for session %s: %w", sessionID, err)
	}

	s.log.Info("review recorded",
		"session_id", sessionID,
		"card_id", cardID,
		"quality", quality,
		"interval_days", res.IntervalDays,
		"state", res.LearningState,
	)
	return s.loadSession(ctx, sessionID)
}

// EndSession completes an active session. It is idempotent: ending an
// already-completed session returns it unchanged, so clients can safely
// retry after a network failure. An abandoned session cannot be completed.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*domain.StudySession, error) {
	return s.finish(ctx, sessionID, domain.SessionCompleted)
}

// AbandonSession marks an active session abandoned, typically driven by an
// inactivity policy outside the engine. Abandoning twice is a no-op; a
// completed session cannot be abandoned.
func (s *Service) AbandonSession(ctx context.Context, sessionID string) (*domain.StudySession, error) {
	return s.finish(ctx, sessionID, domain.SessionAbandoned)
}

func (s *Service) finish(ctx context.Context, sessionID string, to domain.SessionStatus) (*domain.StudySession, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == to {
		return sess, nil
	}
	if !sess.IsActive() {
		return nil, fmt.Errorf("session %s has status %s: %w", sessionID, sess.Status, domain.ErrSessionNotActive)
	}

	now := s.Clock()
	err = s.sessions.SetStatus(ctx, sessionID, domain.SessionActive, to, now)
	if errors.Is(err, domain.ErrConcurrentModification) {
		// Lost a race with another finisher. Idempotency still holds if the
		// winner picked the same terminal status.
		sess, loadErr := s.loadSession(ctx, sessionID)
		if loadErr != nil {
			return nil, loadErr
		}
		if sess.Status == to {
			return sess, nil
		}
		return nil, fmt.Errorf("session %s has status %s: %w", sessionID, sess.Status, domain.ErrSessionNotActive)
	}
	if err != nil {
		return nil, fmt.Errorf("finishing session %s: %w", sessionID, err)
	}

	s.log.Info("session finished", "session_id", sessionID, "status", to)
	return s.loadSession(ctx, sessionID)
}

// GetDueCards returns the ids of the deck's cards due for review at the given
// time, most overdue first.
func (s *Service) GetDueCards(ctx context.Context, deckID string, now time.Time) ([]string, error) {
	return s.selector.SelectDue(ctx, deckID, now, domain.SessionReview, 0)
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*domain.StudySession, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return sess, nil
}
