// Package web is a thin HTTP adapter over the study engine. It translates
// JSON requests into engine operations and typed engine errors into status
// codes; no scheduling rules live here.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
	"github.com/conorfennell/memodeck/internal/study"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	svc    *study.Service
	router *http.ServeMux
	log    *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(svc *study.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		svc:    svc,
		router: http.NewServeMux(),
		log:    log,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("POST /sessions", s.handleStartSession)
	s.router.HandleFunc("GET /sessions/active", s.handleGetActiveSession)
	s.router.HandleFunc("POST /sessions/{id}/reviews", s.handleRecordReview)
	s.router.HandleFunc("POST /sessions/{id}/end", s.handleEndSession)
	s.router.HandleFunc("POST /sessions/{id}/abandon", s.handleAbandonSession)
	s.router.HandleFunc("GET /decks/{id}/due", s.handleGetDueCards)
	s.router.HandleFunc("GET /decks/{id}/stats", s.handleGetStats)
	s.router.HandleFunc("GET /decks/{id}/counts", s.handleGetDeckCounts)
	s.router.HandleFunc("GET /cards/{id}/history", s.handleGetReviewHistory)
}

type startSessionRequest struct {
	UserID      string `json:"user_id"`
	DeckID      string `json:"deck_id"`
	SessionType string `json:"session_type"`
	MaxCards    int    `json:"max_cards"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.DeckID == "" {
		http.Error(w, "user_id and deck_id are required", http.StatusBadRequest)
		return
	}
	sessionType := domain.SessionType(req.SessionType)
	if req.SessionType == "" {
		sessionType = domain.SessionReview
	}

	sess, err := s.svc.StartSession(r.Context(), req.UserID, req.DeckID, sessionType, req.MaxCards)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponseFrom(sess))
}

func (s *Server) handleGetActiveSession(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	deckID := r.URL.Query().Get("deck_id")
	if userID == "" || deckID == "" {
		http.Error(w, "user_id and deck_id are required", http.StatusBadRequest)
		return
	}

	sess, err := s.svc.GetActiveSession(r.Context(), userID, deckID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sess == nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponseFrom(sess))
}

type recordReviewRequest struct {
	CardID           string `json:"card_id"`
	Quality          *int   `json:"quality"`
	Correct          *bool  `json:"correct"`
	Difficulty       string `json:"difficulty"`
	TimeTakenSeconds *int   `json:"time_taken_seconds"`
}

func (s *Server) handleRecordReview(w http.ResponseWriter, r *http.Request) {
	var req recordReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.CardID == "" {
		http.Error(w, "card_id is required", http.StatusBadRequest)
		return
	}

	quality, err := qualityFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.svc.RecordReview(r.Context(), r.PathValue("id"), req.CardID, quality, req.TimeTakenSeconds)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponseFrom(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.EndSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponseFrom(sess))
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.AbandonSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponseFrom(sess))
}

func (s *Server) handleGetDueCards(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	if at := r.URL.Query().Get("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			http.Error(w, "at must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		now = parsed
	}

	ids, err := s.svc.GetDueCards(r.Context(), r.PathValue("id"), now)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"deck_id":  r.PathValue("id"),
		"card_ids": ids,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GetStats(r.Context(), r.PathValue("id"), time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"deck_id":             r.PathValue("id"),
		"due_count":           stats.DueCount,
		"new_count":           stats.NewCount,
		"review_count":        stats.ReviewCount,
		"average_ease_factor": stats.AverageEaseFactor,
	})
}

func (s *Server) handleGetDeckCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.GetDeckCounts(r.Context(), r.PathValue("id"), time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"deck_id":        r.PathValue("id"),
		"total_cards":    counts.TotalCards,
		"due_cards":      counts.DueCards,
		"new_cards":      counts.NewCards,
		"learning_cards": counts.LearningCards,
	})
}

func (s *Server) handleGetReviewHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.GetReviewHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponseFrom(history))
}
