package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
)

// Accepted request timestamp layouts. Timestamps without an offset are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// GET /post/recommendations/?id=&time=&limit=
func (h *Handler) GetPostRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid id parameter")
		return
	}

	rawTime := q.Get("time")
	if rawTime == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "time parameter is required")
		return
	}
	at, err := parseTime(rawTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid time parameter")
		return
	}

	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetRecommendations(r.Context(), userID, at, limit)
	if err != nil {
		writeServiceError(w, r, err, userID)
		return
	}

	writeJSON(w, http.StatusOK, result.Recommendations)
}

// GET /users/{userID}/recommendations
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	// Parse and validate user_id
	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}

	at := time.Now()
	if rawTime := r.URL.Query().Get("time"); rawTime != "" {
		at, err = parseTime(rawTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid time parameter")
			return
		}
	}

	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetRecommendations(r.Context(), userID, at, limit)
	if err != nil {
		writeServiceError(w, r, err, userID)
		return
	}

	resp := RecommendationResponse{
		UserID:          userID,
		Recommendations: result.Recommendations,
		Metadata: domain.RecommendationMeta{
			CacheHit:    result.CacheHit,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(result.Recommendations),
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return h.defaultLimit, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "invalid_parameter",
			fmt.Sprintf("limit must be between 1 and %d", h.maxLimit))
		return 0, false
	}
	return limit, true
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, userID int64) {
	switch {
	// User not found
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found",
			fmt.Sprintf("User with ID %d does not exist", userID))
	case errors.Is(err, domain.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
	// Circuit open or scorer unreachable
	case errors.Is(err, domain.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model_unavailable",
			"Recommendation model is temporarily unavailable")
	// Request timeout
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout",
			"Request timed out, please try again")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("recommendation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
