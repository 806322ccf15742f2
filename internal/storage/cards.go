package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/memodeck/internal/domain"
)

// InsertCard registers a card with the scheduler. Card CRUD is owned by the
// surrounding application; this is the hook it calls when a card is created.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (id, deck_id, created_at)
		VALUES (?, ?, ?)
	`, card.ID, card.DeckID, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// GetCard retrieves a card by id, or nil when it does not exist.
func (db *DB) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	var card domain.Card
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, deck_id, created_at
		FROM cards WHERE id = ?
	`, cardID)

	err := row.Scan(&card.ID, &card.DeckID, &card.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to get card %s: %w", cardID, err)
	}
	return &card, nil
}

// ListDeckCards returns a deck's cards in creation order, oldest first.
func (db *DB) ListDeckCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, deck_id, created_at
		FROM cards WHERE deck_id = ?
		ORDER BY created_at ASC, id ASC
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var card domain.Card
		if err := rows.Scan(&card.ID, &card.DeckID, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// DeleteCard removes a card and, via the schema's cascade, its scheduling
// state. Called by the owning application when the card itself is deleted.
func (db *DB) DeleteCard(ctx context.Context, cardID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}
