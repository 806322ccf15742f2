package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
	"github.com/conorfennell/memodeck/internal/storage"
	"github.com/conorfennell/memodeck/internal/study"
)

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := study.NewService(db, db, db, db, nil)
	return NewServer(svc, nil), db
}

func seedDeck(t *testing.T, db *storage.DB, deckID string, cardIDs ...string) {
	t.Helper()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i, id := range cardIDs {
		err := db.InsertCard(context.Background(), domain.Card{
			ID:        id,
			DeckID:    deckID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Failed to insert card %s: %v", id, err)
		}
	}
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	server, db := newTestServer(t)
	seedDeck(t, db, "deck-1", "a", "b")

	// Start a learn-new session; both cards are unseen.
	rec := doJSON(t, server, http.MethodPost, "/sessions",
		`{"user_id":"user-1","deck_id":"deck-1","session_type":"learn_new"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, but got %d: %s", rec.Code, rec.Body.String())
	}
	sess := decodeSession(t, rec)
	sessionID, _ := sess["id"].(string)
	if sessionID == "" {
		t.Fatal("Expected a session id in the response")
	}
	if sess["next_card"] != "a" {
		t.Errorf("Expected next card a, but got %v", sess["next_card"])
	}

	// The session shows up as active.
	rec = doJSON(t, server, http.MethodGet, "/sessions/active?user_id=user-1&deck_id=deck-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}

	// Review both cards in order, one by explicit quality, one by the
	// correct/difficulty shorthand.
	rec = doJSON(t, server, http.MethodPost, "/sessions/"+sessionID+"/reviews",
		`{"card_id":"a","quality":4,"time_taken_seconds":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, server, http.MethodPost, "/sessions/"+sessionID+"/reviews",
		`{"card_id":"b","correct":true,"difficulty":"hard"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	sess = decodeSession(t, rec)
	if sess["remaining"] != float64(0) {
		t.Errorf("Expected no cards remaining, but got %v", sess["remaining"])
	}
	if sess["cards_correct"] != float64(2) {
		t.Errorf("Expected 2 correct, but got %v", sess["cards_correct"])
	}

	// End the session, twice: the retry must succeed with the same result.
	for i := 0; i < 2; i++ {
		rec = doJSON(t, server, http.MethodPost, "/sessions/"+sessionID+"/end", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 on end attempt %d, but got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}
	sess = decodeSession(t, rec)
	if sess["status"] != string(domain.SessionCompleted) {
		t.Errorf("Expected completed status, but got %v", sess["status"])
	}

	// The card history shows the review trail.
	rec = doJSON(t, server, http.MethodGet, "/cards/a/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var history historyResponse
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if history.TotalReviews != 1 || history.CurrentStreak != 1 {
		t.Errorf("Expected one passing review, but got %+v", history)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	server, db := newTestServer(t)
	seedDeck(t, db, "deck-1", "a", "b")

	start := func(t *testing.T) string {
		rec := doJSON(t, server, http.MethodPost, "/sessions",
			`{"user_id":"user-1","deck_id":"deck-1","session_type":"learn_new"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, but got %d: %s", rec.Code, rec.Body.String())
		}
		return decodeSession(t, rec)["id"].(string)
	}

	t.Run("duplicate active session is a conflict", func(t *testing.T) {
		id := start(t)
		rec := doJSON(t, server, http.MethodPost, "/sessions",
			`{"user_id":"user-1","deck_id":"deck-1","session_type":"learn_new"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409, but got %d", rec.Code)
		}
		doJSON(t, server, http.MethodPost, "/sessions/"+id+"/abandon", "")
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/sessions/ghost/end", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, but got %d", rec.Code)
		}
	})

	t.Run("out of order review is unprocessable", func(t *testing.T) {
		id := start(t)
		rec := doJSON(t, server, http.MethodPost, "/sessions/"+id+"/reviews",
			`{"card_id":"b","quality":4}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, but got %d", rec.Code)
		}
		doJSON(t, server, http.MethodPost, "/sessions/"+id+"/abandon", "")
	})

	t.Run("invalid quality is a bad request", func(t *testing.T) {
		id := start(t)
		rec := doJSON(t, server, http.MethodPost, "/sessions/"+id+"/reviews",
			`{"card_id":"a","quality":9}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, but got %d", rec.Code)
		}
		doJSON(t, server, http.MethodPost, "/sessions/"+id+"/abandon", "")
	})

	t.Run("review on an abandoned session is a conflict", func(t *testing.T) {
		id := start(t)
		doJSON(t, server, http.MethodPost, "/sessions/"+id+"/abandon", "")
		rec := doJSON(t, server, http.MethodPost, "/sessions/"+id+"/reviews",
			`{"card_id":"a","quality":4}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409, but got %d", rec.Code)
		}
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/sessions", `{"deck_id":"deck-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for a missing user_id, but got %d", rec.Code)
		}
	})
}

func TestDeckEndpoints(t *testing.T) {
	server, db := newTestServer(t)
	seedDeck(t, db, "deck-1", "a", "b", "c")

	// Review one card so the deck has a mix of states.
	rec := doJSON(t, server, http.MethodPost, "/sessions",
		`{"user_id":"user-1","deck_id":"deck-1","session_type":"learn_new","max_cards":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, but got %d: %s", rec.Code, rec.Body.String())
	}
	id := decodeSession(t, rec)["id"].(string)
	rec = doJSON(t, server, http.MethodPost, "/sessions/"+id+"/reviews", `{"card_id":"a","quality":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	doJSON(t, server, http.MethodPost, "/sessions/"+id+"/end", "")

	t.Run("stats", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/decks/deck-1/stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, but got %d", rec.Code)
		}
		stats := decodeSession(t, rec)
		if stats["new_count"] != float64(2) {
			t.Errorf("Expected 2 new cards, but got %v", stats["new_count"])
		}
	})

	t.Run("counts", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/decks/deck-1/counts", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, but got %d", rec.Code)
		}
		counts := decodeSession(t, rec)
		if counts["total_cards"] != float64(3) {
			t.Errorf("Expected 3 total cards, but got %v", counts["total_cards"])
		}
		if counts["learning_cards"] != float64(1) {
			t.Errorf("Expected 1 learning card, but got %v", counts["learning_cards"])
		}
	})

	t.Run("due cards at a future time", func(t *testing.T) {
		at := time.Now().UTC().AddDate(0, 0, 2).Format(time.RFC3339)
		rec := doJSON(t, server, http.MethodGet, fmt.Sprintf("/decks/deck-1/due?at=%s", at), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, but got %d", rec.Code)
		}
		var resp struct {
			CardIDs []string `json:"card_ids"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		// Card a was reviewed with quality 4, putting it one day out.
		if len(resp.CardIDs) != 1 || resp.CardIDs[0] != "a" {
			t.Errorf("Expected [a] due in two days, but got %v", resp.CardIDs)
		}
	})
}
