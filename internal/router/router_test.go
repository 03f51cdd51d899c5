package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/handler"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/internal/metrics"
	"github.com/actuallystonmai/feed-recommender/internal/service"
	"github.com/actuallystonmai/feed-recommender/internal/snapshot"
)

type slowEngine struct {
	snap  *snapshot.Snapshot
	delay time.Duration
}

func (e *slowEngine) Recommend(ctx context.Context, _ int64, _ time.Time, _ int) ([]domain.ItemDescriptor, error) {
	select {
	case <-time.After(e.delay):
		return []domain.ItemDescriptor{{ID: 1, Text: "post", Topic: "movie"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *slowEngine) Snapshot() *snapshot.Snapshot { return e.snap }
func (e *slowEngine) ModelName() string             { return "stub" }

func setup(t *testing.T, delay time.Duration, opts Options) http.Handler {
	t.Helper()
	snap, err := snapshot.New(snapshot.Tables{
		Items: []domain.ItemFeatures{{ID: 1}},
		Users: []domain.UserFeatures{{ID: 1}},
	}, time.Unix(0, 0))
	require.NoError(t, err)

	svc := service.NewService(&slowEngine{snap: snap, delay: delay}, nil, 1)
	return Setup(handler.NewHandler(svc, handler.Options{DefaultLimit: 10, MaxLimit: 100}), opts)
}

func TestRoutes(t *testing.T) {
	r := setup(t, 0, Options{RequestTimeout: time.Second})

	tests := []struct {
		target string
		status int
	}{
		{"/post/recommendations/?id=1&time=2021-12-29T15:04:05", http.StatusOK},
		{"/users/1/recommendations", http.StatusOK},
		{"/recommendations/batch", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
		assert.Equal(t, tt.status, rec.Code, tt.target)
	}
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	r := setup(t, 0, Options{RequestTimeout: time.Second})
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/users/{userID}/recommendations", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "1"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id+"/recommendations", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRequestTimeout(t *testing.T) {
	r := setup(t, time.Second, Options{RequestTimeout: 20 * time.Millisecond})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/1/recommendations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_timeout")
}

func TestRequestID(t *testing.T) {
	r := setup(t, 0, Options{RequestTimeout: time.Second})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "upstream-7")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-7", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDReachesHandlers(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestRateLimit(t *testing.T) {
	r := setup(t, 0, Options{RequestTimeout: time.Second, RateLimitRequests: 2, RateLimitWindow: time.Minute})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/1/recommendations", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health checks are not limited
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
