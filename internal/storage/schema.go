package storage

const schema = `
-- The 'cards' table holds the engine's view of the card catalogue: identity,
-- deck membership and creation time. Card content lives with the owning
-- application.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id, created_at);

-- One scheduling state per card, mutated only through reviews. The version
-- column is the optimistic concurrency token.
CREATE TABLE IF NOT EXISTS card_scheduling_states (
    card_id TEXT PRIMARY KEY,
    repetitions INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    due_at DATETIME NOT NULL,
    last_reviewed_at DATETIME,
    lapse_count INTEGER NOT NULL DEFAULT 0,
    learning_state TEXT NOT NULL DEFAULT 'new',
    version INTEGER NOT NULL DEFAULT 1,

    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE
);

-- Study sessions. The card queue is frozen at start time and stored as a
-- JSON array. The partial unique index makes the single-active-session
-- invariant atomic: a second concurrent insert fails at the storage layer.
CREATE TABLE IF NOT EXISTS study_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    session_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    card_queue TEXT NOT NULL,
    cursor INTEGER NOT NULL DEFAULT 0,
    cards_correct INTEGER NOT NULL DEFAULT 0,
    cards_incorrect INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
    ON study_sessions(user_id, deck_id) WHERE status = 'active';

CREATE INDEX IF NOT EXISTS idx_sessions_user_deck ON study_sessions(user_id, deck_id);

-- Append-only review trail; rows are never updated or deleted.
CREATE TABLE IF NOT EXISTS review_records (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    quality INTEGER NOT NULL,
    time_taken_seconds INTEGER,
    reviewed_at DATETIME NOT NULL,
    interval_before INTEGER NOT NULL,
    interval_after INTEGER NOT NULL,
    ease_factor_before REAL NOT NULL,
    ease_factor_after REAL NOT NULL,

    FOREIGN KEY(session_id) REFERENCES study_sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_reviews_session ON review_records(session_id, reviewed_at);
CREATE INDEX IF NOT EXISTS idx_reviews_card ON review_records(card_id, reviewed_at);
`
