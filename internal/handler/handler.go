package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/internal/service"
)

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

type Handler struct {
	service      *service.Service
	defaultLimit int
	maxLimit     int
}

func NewHandler(svc *service.Service, opts Options) *Handler {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(10, opts.MaxLimit)
	}
	return &Handler{
		service:      svc,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
