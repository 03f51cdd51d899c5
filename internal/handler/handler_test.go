package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/model"
	"github.com/actuallystonmai/feed-recommender/internal/service"
	"github.com/actuallystonmai/feed-recommender/internal/snapshot"
)

type call struct {
	userID int64
	at     time.Time
	limit  int
}

type fakeEngine struct {
	snap  *snapshot.Snapshot
	err   error
	calls []call
}

func (e *fakeEngine) Recommend(_ context.Context, userID int64, at time.Time, limit int) ([]domain.ItemDescriptor, error) {
	e.calls = append(e.calls, call{userID, at, limit})
	if e.err != nil {
		return nil, e.err
	}
	recs := []domain.ItemDescriptor{
		{ID: 8, Text: "eighth", Topic: "covid"},
		{ID: 1, Text: "first", Topic: "movie"},
		{ID: 5, Text: "fifth", Topic: "sport"},
	}
	return recs[:min(limit, len(recs))], nil
}

func (e *fakeEngine) Snapshot() *snapshot.Snapshot { return e.snap }
func (e *fakeEngine) ModelName() string             { return "logistic:test" }

func newTestHandler(t *testing.T, engErr error) (http.Handler, *fakeEngine) {
	t.Helper()
	snap, err := snapshot.New(snapshot.Tables{
		Items: []domain.ItemFeatures{{ID: 1}, {ID: 5}, {ID: 8}},
		Users: []domain.UserFeatures{{ID: 1}, {ID: 2}},
	}, time.Unix(0, 0))
	require.NoError(t, err)

	eng := &fakeEngine{snap: snap, err: engErr}
	h := NewHandler(service.NewService(eng, nil, 2), Options{DefaultLimit: 10, MaxLimit: 20})

	r := chi.NewRouter()
	r.Get("/post/recommendations/", h.GetPostRecommendations)
	r.Get("/users/{userID}/recommendations", h.GetRecommendations)
	r.Get("/recommendations/batch", h.GetBatchRecommendations)
	r.Get("/health", h.Health)
	return r, eng
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetPostRecommendations(t *testing.T) {
	h, eng := newTestHandler(t, nil)

	rec := do(t, h, "/post/recommendations/?id=1&time=2021-12-29T15:04:05&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []domain.ItemDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []domain.ItemDescriptor{
		{ID: 8, Text: "eighth", Topic: "covid"},
		{ID: 1, Text: "first", Topic: "movie"},
	}, got)

	require.Len(t, eng.calls, 1)
	assert.Equal(t, int64(1), eng.calls[0].userID)
	assert.Equal(t, 2, eng.calls[0].limit)
	assert.Equal(t, 15, eng.calls[0].at.Hour())
	assert.Equal(t, time.December, eng.calls[0].at.Month())
}

func TestGetPostRecommendationsDefaults(t *testing.T) {
	h, eng := newTestHandler(t, nil)

	rec := do(t, h, "/post/recommendations/?id=2&time=2021-06-01T09:30:00%2B03:00")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, eng.calls, 1)
	assert.Equal(t, 10, eng.calls[0].limit)
	// the offset in the request is kept
	assert.Equal(t, 9, eng.calls[0].at.Hour())
}

func TestGetPostRecommendationsBadRequest(t *testing.T) {
	h, eng := newTestHandler(t, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"missing id", "time=2021-12-29T15:04:05"},
		{"bad id", "id=abc&time=2021-12-29T15:04:05"},
		{"missing time", "id=1"},
		{"bad time", "id=1&time=yesterday"},
		{"zero limit", "id=1&time=2021-12-29T15:04:05&limit=0"},
		{"limit above max", "id=1&time=2021-12-29T15:04:05&limit=21"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "/post/recommendations/?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "invalid_parameter", body.Error)
		})
	}
	assert.Empty(t, eng.calls)
}

func TestGetRecommendationsEnvelope(t *testing.T) {
	h, eng := newTestHandler(t, nil)

	rec := do(t, h, "/users/2/recommendations?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var got RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.UserID)
	assert.Len(t, got.Recommendations, 3)
	assert.Equal(t, 3, got.Metadata.TotalCount)
	assert.False(t, got.Metadata.CacheHit)
	assert.NotEmpty(t, got.Metadata.GeneratedAt)

	require.Len(t, eng.calls, 1)
	assert.WithinDuration(t, time.Now(), eng.calls[0].at, time.Minute)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "/users/abc/recommendations").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/users/1/recommendations?time=noon").Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("user 9: %w", domain.ErrUserNotFound), http.StatusNotFound, "user_not_found"},
		{"ambiguous", fmt.Errorf("user 9: %w", domain.ErrAmbiguousData), http.StatusInternalServerError, "internal_error"},
		{"model failure", &model.ModelInferenceError{Model: "logistic:test", Msg: "score batch", Err: errors.New("nan")}, http.StatusInternalServerError, "internal_error"},
		{"model unavailable", &model.ModelInferenceError{Model: "remote:v1", Msg: "score batch", Err: domain.ErrModelUnavailable}, http.StatusServiceUnavailable, "model_unavailable"},
		{"timeout", &model.ModelInferenceError{Model: "remote:v1", Msg: "score batch", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, "request_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, tt.err)

			for _, target := range []string{
				"/post/recommendations/?id=9&time=2021-12-29T15:04:05",
				"/users/9/recommendations",
			} {
				rec := do(t, h, target)
				assert.Equal(t, tt.status, rec.Code, target)

				var body ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.code, body.Error, target)
			}
		})
	}
}

func TestGetBatchRecommendations(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := do(t, h, "/recommendations/batch?page=1&limit=5&time=2021-12-29T15:04:05Z")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalUsers)
	require.Len(t, got.Results, 2)
	assert.Equal(t, int64(1), got.Results[0].UserID)
	assert.Equal(t, int64(2), got.Results[1].UserID)
	assert.Equal(t, 2, got.Summary.SuccessCount)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "/recommendations/batch?page=0").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/recommendations/batch?limit=500").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/recommendations/batch?time=later").Code)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := do(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, HealthResponse{Status: "ok", Items: 3, Users: 2, Model: "logistic:test"}, got)
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{
		"2021-12-29T15:04:05",
		"2021-12-29T15:04:05.123456",
		"2021-12-29 15:04:05",
		"2021-12-29T15:04:05Z",
		"2021-12-29T15:04",
		"2021-12-29 15:04",
		"2021-12-29 15:04:05.5",
		"2021-12-29 15:04:05Z",
	} {
		got, err := parseTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, 15, got.Hour(), in)
		assert.Equal(t, time.December, got.Month(), in)
	}

	got, err := parseTime("2021-12-29 15:04:05+03:00")
	require.NoError(t, err)
	_, offset := got.Zone()
	assert.Equal(t, 3*3600, offset)
	assert.Equal(t, 15, got.Hour())

	_, err = parseTime("29/12/2021")
	assert.Error(t, err)
}
