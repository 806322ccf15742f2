package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/memodeck/internal/domain"
)

// AppendReview inserts one immutable review record. There is deliberately no
// update or delete counterpart; the trail is append-only.
func (db *DB) AppendReview(ctx context.Context, r domain.ReviewRecord) error {
	var timeTaken sql.NullInt64
	if r.TimeTakenSeconds != nil {
		timeTaken = sql.NullInt64{Int64: int64(*r.TimeTakenSeconds), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_records
			(id, session_id, card_id, quality, time_taken_seconds, reviewed_at,
			 interval_before, interval_after, ease_factor_before, ease_factor_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.SessionID,
		r.CardID,
		r.Quality,
		timeTaken,
		r.ReviewedAt,
		r.IntervalBefore,
		r.IntervalAfter,
		r.EaseFactorBefore,
		r.EaseFactorAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to append review %s: %w", r.ID, err)
	}
	return nil
}

// ListSessionReviews returns a session's reviews in the order they were
// recorded.
func (db *DB) ListSessionReviews(ctx context.Context, sessionID string) ([]domain.ReviewRecord, error) {
	return db.listReviews(ctx, `
		SELECT id, session_id, card_id, quality, time_taken_seconds, reviewed_at,
		       interval_before, interval_after, ease_factor_before, ease_factor_after
		FROM review_records
		WHERE session_id = ?
		ORDER BY reviewed_at ASC, id ASC
	`, sessionID)
}

// ListCardReviews returns a card's reviews, newest first.
func (db *DB) ListCardReviews(ctx context.Context, cardID string) ([]domain.ReviewRecord, error) {
	return db.listReviews(ctx, `
		SELECT id, session_id, card_id, quality, time_taken_seconds, reviewed_at,
		       interval_before, interval_after, ease_factor_before, ease_factor_after
		FROM review_records
		WHERE card_id = ?
		ORDER BY reviewed_at DESC, id DESC
	`, cardID)
}

func (db *DB) listReviews(ctx context.Context, query string, arg any) ([]domain.ReviewRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var records []domain.ReviewRecord
	for rows.Next() {
		var r domain.ReviewRecord
		var timeTaken sql.NullInt64
		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.CardID,
			&r.Quality,
			&timeTaken,
			&r.ReviewedAt,
			&r.IntervalBefore,
			&r.IntervalAfter,
			&r.EaseFactorBefore,
			&r.EaseFactorAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		if timeTaken.Valid {
			v := int(timeTaken.Int64)
			r.TimeTakenSeconds = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
