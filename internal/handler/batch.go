package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/actuallystonmai/feed-recommender/internal/logging"
)

// GET /recommendations/batch
func (h *Handler) GetBatchRecommendations(w http.ResponseWriter, r *http.Request) {
	// Parse and validate page
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 || parsed > 10000 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid page parameter")
			return
		}
		page = parsed
	}

	// Parse and validate limit
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > h.maxLimit {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	at := time.Now()
	if rawTime := r.URL.Query().Get("time"); rawTime != "" {
		parsed, err := parseTime(rawTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid time parameter")
			return
		}
		at = parsed
	}

	result, err := h.service.GetBatchRecommendations(r.Context(), page, limit, at)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Int("page", page).Msg("batch recommendations failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
