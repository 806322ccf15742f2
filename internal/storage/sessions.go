package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

// CreateSession inserts a new study session. The partial unique index on
// (user_id, deck_id, status='active') makes the single-active-session check
// atomic; losing the race surfaces as domain.ErrSessionAlreadyActive.
func (db *DB) CreateSession(ctx context.Context, s domain.StudySession) error {
	queue, err := json.Marshal(s.CardQueue)
	if err != nil {
		return fmt.Errorf("failed to encode card queue: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO study_sessions
			(id, user_id, deck_id, session_type, status, started_at,
			 completed_at, card_queue, cursor, cards_correct, cards_incorrect)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		s.UserID,
		s.DeckID,
		s.SessionType,
		s.Status,
		s.StartedAt,
		nullTime(s.CompletedAt),
		string(queue),
		s.Cursor,
		s.CardsCorrect,
		s.CardsIncorrect,
	)
	if isUniqueViolation(err, "study_sessions") {
		return fmt.Errorf("user %s deck %s: %w", s.UserID, s.DeckID, domain.ErrSessionAlreadyActive)
	}
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession retrieves a session by id, or nil when it does not exist.
func (db *DB) GetSession(ctx context.Context, id string) (*domain.StudySession, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, deck_id, session_type, status, started_at,
		       completed_at, card_queue, cursor, cards_correct, cards_incorrect
		FROM study_sessions WHERE id = ?
	`, id)

	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Session not found
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return s, nil
}

// GetActiveSession retrieves the user's active session for a deck, or nil
// when there is none.
func (db *DB) GetActiveSession(ctx context.Context, userID, deckID string) (*domain.StudySession, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, deck_id, session_type, status, started_at,
		       completed_at, card_queue, cursor, cards_correct, cards_incorrect
		FROM study_sessions
		WHERE user_id = ? AND deck_id = ? AND status = ?
	`, userID, deckID, domain.SessionActive)

	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No active session
		}
		return nil, fmt.Errorf("failed to get active session for user %s deck %s: %w", userID, deckID, err)
	}
	return s, nil
}

// AdvanceCursor moves the session cursor forward by one and bumps the
// matching answer counter, guarded on the cursor value so a duplicate retry
// of the same review cannot double-apply.
func (db *DB) AdvanceCursor(ctx context.Context, id string, fromCursor int, correct bool) error {
	var res sql.Result
	var err error
	if correct {
		res, err = db.conn.ExecContext(ctx, `
			UPDATE study_sessions
			SET cursor = cursor + 1, cards_correct = cards_correct + 1
			WHERE id = ? AND cursor = ? AND status = ?
		`, id, fromCursor, domain.SessionActive)
	} else {
		res, err = db.conn.ExecContext(ctx, `
			UPDATE study_sessions
			SET cursor = cursor + 1, cards_incorrect = cards_incorrect + 1
			WHERE id = ? AND cursor = ? AND status = ?
		`, id, fromCursor, domain.SessionActive)
	}
	if err != nil {
		return fmt.Errorf("failed to advance cursor for session %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for session %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	// The guarded update missed; look at the row to report which invariant
	// failed.
	s, err := db.GetSession(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case s == nil:
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	case !s.IsActive():
		return fmt.Errorf("session %s has status %s: %w", id, s.Status, domain.ErrSessionNotActive)
	default:
		return fmt.Errorf("session %s cursor moved past %d: %w", id, fromCursor, domain.ErrConcurrentModification)
	}
}

// SetStatus transitions a session between statuses, guarded on the current
// status. Terminal transitions record the completion time.
func (db *DB) SetStatus(ctx context.Context, id string, from, to domain.SessionStatus, completedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE study_sessions
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, to, completedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to set status for session %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for session %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	s, err := db.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	return fmt.Errorf("session %s is %s, not %s: %w", id, s.Status, from, domain.ErrConcurrentModification)
}

func scanSession(row rowScanner) (*domain.StudySession, error) {
	var s domain.StudySession
	var completedAt sql.NullTime
	var queue string
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.DeckID,
		&s.SessionType,
		&s.Status,
		&s.StartedAt,
		&completedAt,
		&queue,
		&s.Cursor,
		&s.CardsCorrect,
		&s.CardsIncorrect,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(queue), &s.CardQueue); err != nil {
		return nil, fmt.Errorf("failed to decode card queue: %w", err)
	}
	return &s, nil
}
