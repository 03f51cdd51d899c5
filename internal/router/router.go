package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actuallystonmai/feed-recommender/internal/handler"
)

type Options struct {
	RequestTimeout time.Duration

	// RateLimitRequests per RateLimitWindow and client IP. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func Setup(h *handler.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Routes
	r.Group(func(r chi.Router) {
		if opts.RateLimitRequests > 0 {
			r.Use(httprate.Limit(opts.RateLimitRequests, opts.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Get("/post/recommendations/", h.GetPostRecommendations)
		r.Get("/users/{userID}/recommendations", h.GetRecommendations)
		r.Get("/recommendations/batch", h.GetBatchRecommendations)
	})
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
