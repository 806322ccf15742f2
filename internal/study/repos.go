// Package study is the scheduling engine: it owns the study session state
// machine, picks the cards a session should show, and applies SM-2 results to
// card scheduling state. Persistence is behind the repository interfaces
// below; any storage that honours their contracts will do.
package study

import (
	"context"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

// CardRepository is the engine's read-only view of the card catalogue, which
// is owned by the surrounding application.
type CardRepository interface {
	// GetCard returns nil when no card with the id exists.
	GetCard(ctx context.Context, cardID string) (*domain.Card, error)
	// ListDeckCards returns the deck's cards ordered by creation time,
	// oldest first.
	ListDeckCards(ctx context.Context, deckID string) ([]domain.Card, error)
}

// SchedulingStateRepository persists per-card SM-2 state.
type SchedulingStateRepository interface {
	// GetState returns nil when the card has never been reviewed.
	GetState(ctx context.Context, cardID string) (*domain.CardSchedulingState, error)
	// PutState inserts the state when its Version is zero, otherwise updates
	// it guarded by the version token. A stale token fails with
	// domain.ErrConcurrentModification. The returned state carries the new
	// version.
	PutState(ctx context.Context, state domain.CardSchedulingState) (domain.CardSchedulingState, error)
	// ListDeckStates returns the scheduling state of every reviewed card in
	// the deck.
	ListDeckStates(ctx context.Context, deckID string) ([]domain.CardSchedulingState, error)
}

// SessionRepository persists study sessions. Implementations must make the
// single-active-session invariant atomic: CreateSession fails with
// domain.ErrSessionAlreadyActive when an active session for the same user and
// deck exists, even under concurrent callers.
type SessionRepository interface {
	CreateSession(ctx context.Context, s domain.StudySession) error
	// GetSession returns nil when no session with the id exists.
	GetSession(ctx context.Context, id string) (*domain.StudySession, error)
	// GetActiveSession returns nil when the user has no active session for
	// the deck.
	GetActiveSession(ctx context.Context, userID, deckID string) (*domain.StudySession, error)
	// AdvanceCursor moves the cursor from fromCursor to fromCursor+1 and
	// bumps the correct/incorrect counter. It fails with
	// domain.ErrConcurrentModification when the cursor has already moved,
	// and domain.ErrSessionNotActive when the session reached a terminal
	// status in the meantime.
	AdvanceCursor(ctx context.Context, id string, fromCursor int, correct bool) error
	// SetStatus transitions the session from one status to another,
	// recording completedAt for terminal transitions. It fails with
	// domain.ErrConcurrentModification when the session is no longer in the
	// from status.
	SetStatus(ctx context.Context, id string, from, to domain.SessionStatus, completedAt time.Time) error
}

// ReviewRepository is the append-only review audit trail.
type ReviewRepository interface {
	AppendReview(ctx context.Context, r domain.ReviewRecord) error
	// ListSessionReviews returns a session's reviews in the order they were
	// recorded.
	ListSessionReviews(ctx context.Context, sessionID string) ([]domain.ReviewRecord, error)
	// ListCardReviews returns a card's reviews, newest first.
	ListCardReviews(ctx context.Context, cardID string) ([]domain.ReviewRecord, error)
}
