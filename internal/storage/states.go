package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
)

// GetState retrieves a card's scheduling state, or nil when the card has
// never been reviewed.
func (db *DB) GetState(ctx context.Context, cardID string) (*domain.CardSchedulingState, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT card_id, repetitions, interval_days, ease_factor, due_at,
		       last_reviewed_at, lapse_count, learning_state, version
		FROM card_scheduling_states WHERE card_id = ?
	`, cardID)

	state, err := scanState(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Never reviewed
		}
		return nil, fmt.Errorf("failed to get state for card %s: %w", cardID, err)
	}
	return state, nil
}

// PutState writes a card's scheduling state. A state with version zero is
// inserted; anything else updates the existing row guarded by the version
// token. Either way a stale writer gets domain.ErrConcurrentModification.
func (db *DB) PutState(ctx context.Context, state domain.CardSchedulingState) (domain.CardSchedulingState, error) {
	if state.Version == 0 {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO card_scheduling_states
				(card_id, repetitions, interval_days, ease_factor, due_at,
				 last_reviewed_at, lapse_count, learning_state, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		`,
			state.CardID,
			state.Repetitions,
			state.IntervalDays,
			state.EaseFactor,
			state.DueAt,
			nullTime(state.LastReviewedAt),
			state.LapseCount,
			state.LearningState,
		)
		if isUniqueViolation(err, "card_scheduling_states") {
			// Another writer initialized this card first.
			return domain.CardSchedulingState{}, fmt.Errorf("card %s: %w", state.CardID, domain.ErrConcurrentModification)
		}
		if err != nil {
			return domain.CardSchedulingState{}, fmt.Errorf("failed to insert state for card %s: %w", state.CardID, err)
		}
		state.Version = 1
		return state, nil
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE card_scheduling_states
		SET repetitions = ?, interval_days = ?, ease_factor = ?, due_at = ?,
		    last_reviewed_at = ?, lapse_count = ?, learning_state = ?,
		    version = version + 1
		WHERE card_id = ? AND version = ?
	`,
		state.Repetitions,
		state.IntervalDays,
		state.EaseFactor,
		state.DueAt,
		nullTime(state.LastReviewedAt),
		state.LapseCount,
		state.LearningState,
		state.CardID,
		state.Version,
	)
	if err != nil {
		return domain.CardSchedulingState{}, fmt.Errorf("failed to update state for card %s: %w", state.CardID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.CardSchedulingState{}, fmt.Errorf("failed to read rows affected for card %s: %w", state.CardID, err)
	}
	if affected == 0 {
		return domain.CardSchedulingState{}, fmt.Errorf("card %s at version %d: %w", state.CardID, state.Version, domain.ErrConcurrentModification)
	}
	state.Version++
	return state, nil
}

// ListDeckStates returns the scheduling state of every reviewed card in the
// deck.
func (db *DB) ListDeckStates(ctx context.Context, deckID string) ([]domain.CardSchedulingState, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.card_id, s.repetitions, s.interval_days, s.ease_factor, s.due_at,
		       s.last_reviewed_at, s.lapse_count, s.learning_state, s.version
		FROM card_scheduling_states s
		JOIN cards c ON c.id = s.card_id
		WHERE c.deck_id = ?
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list states for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var states []domain.CardSchedulingState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state row: %w", err)
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*domain.CardSchedulingState, error) {
	var state domain.CardSchedulingState
	var lastReviewed sql.NullTime
	err := row.Scan(
		&state.CardID,
		&state.Repetitions,
		&state.IntervalDays,
		&state.EaseFactor,
		&state.DueAt,
		&lastReviewed,
		&state.LapseCount,
		&state.LearningState,
		&state.Version,
	)
	if err != nil {
		return nil, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		state.LastReviewedAt = &t
	}
	return &state, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
