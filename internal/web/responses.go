package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/conorfennell/memodeck/internal/domain"
	"github.com/conorfennell/memodeck/internal/sm2"
)

type sessionResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	DeckID         string     `json:"deck_id"`
	SessionType    string     `json:"session_type"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CardQueue      []string   `json:"card_queue"`
	Cursor         int        `json:"cursor"`
	NextCard       string     `json:"next_card,omitempty"`
	Remaining      int        `json:"remaining"`
	CardsCorrect   int        `json:"cards_correct"`
	CardsIncorrect int        `json:"cards_incorrect"`
	Accuracy       float64    `json:"accuracy"`
}

func sessionResponseFrom(s *domain.StudySession) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID,
		UserID:         s.UserID,
		DeckID:         s.DeckID,
		SessionType:    string(s.SessionType),
		Status:         string(s.Status),
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		CardQueue:      s.CardQueue,
		Cursor:         s.Cursor,
		Remaining:      s.Remaining(),
		CardsCorrect:   s.CardsCorrect,
		CardsIncorrect: s.CardsIncorrect,
		Accuracy:       s.Accuracy(),
	}
	if next, ok := s.NextCard(); ok {
		resp.NextCard = next
	}
	return resp
}

type reviewResponse struct {
	Quality          int       `json:"quality"`
	TimeTakenSeconds *int      `json:"time_taken_seconds,omitempty"`
	ReviewedAt       time.Time `json:"reviewed_at"`
	IntervalBefore   int       `json:"interval_before"`
	IntervalAfter    int       `json:"interval_after"`
	EaseFactorBefore float64   `json:"ease_factor_before"`
	EaseFactorAfter  float64   `json:"ease_factor_after"`
}

type historyResponse struct {
	CardID         string           `json:"card_id"`
	TotalReviews   int              `json:"total_reviews"`
	AverageQuality float64          `json:"average_quality"`
	CurrentStreak  int              `json:"current_streak"`
	Reviews        []reviewResponse `json:"reviews"`
}

func historyResponseFrom(h *domain.ReviewHistory) historyResponse {
	resp := historyResponse{
		CardID:         h.CardID,
		TotalReviews:   h.TotalReviews,
		AverageQuality: h.AverageQuality,
		CurrentStreak:  h.CurrentStreak,
		Reviews:        make([]reviewResponse, 0, len(h.Records)),
	}
	for _, r := range h.Records {
		resp.Reviews = append(resp.Reviews, reviewResponse{
			Quality:          r.Quality,
			TimeTakenSeconds: r.TimeTakenSeconds,
			ReviewedAt:       r.ReviewedAt,
			IntervalBefore:   r.IntervalBefore,
			IntervalAfter:    r.IntervalAfter,
			EaseFactorBefore: r.EaseFactorBefore,
			EaseFactorAfter:  r.EaseFactorAfter,
		})
	}
	return resp
}

// qualityFromRequest resolves the quality rating: either an explicit 0-5
// grade, or a correct/difficulty pair for simpler clients.
func qualityFromRequest(req recordReviewRequest) (int, error) {
	switch {
	case req.Quality != nil:
		return *req.Quality, nil
	case req.Correct != nil:
		return sm2.QualityFromAnswer(*req.Correct, req.Difficulty), nil
	default:
		return 0, fmt.Errorf("either quality or correct is required")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

// writeError maps typed engine errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionAlreadyActive),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCardNotInSession):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidQuality):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		s.log.Error("internal error", "error", err)
	}
	http.Error(w, err.Error(), status)
}
