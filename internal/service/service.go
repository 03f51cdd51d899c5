package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/feed-recommender/internal/cache"
	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/internal/metrics"
	"github.com/actuallystonmai/feed-recommender/internal/model"
	"github.com/actuallystonmai/feed-recommender/internal/snapshot"
)

const (
	defaultBatchConcurrency = 10
	batchRecLimit           = 10
)

type Recommender interface {
	Recommend(ctx context.Context, userID int64, at time.Time, limit int) ([]domain.ItemDescriptor, error)
	Snapshot() *snapshot.Snapshot
	ModelName() string
}

type ResultCache interface {
	Get(ctx context.Context, key cache.Key) ([]domain.ItemDescriptor, bool, error)
	Set(ctx context.Context, key cache.Key, recs []domain.ItemDescriptor) error
}

type Service struct {
	engine           Recommender
	cache            ResultCache
	batchConcurrency int
	logger           zerolog.Logger
}

// NewService wires the engine with an optional result cache (nil disables caching).
func NewService(engine Recommender, cache ResultCache, batchConcurrency int) *Service {
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}
	return &Service{
		engine:           engine,
		cache:            cache,
		batchConcurrency: batchConcurrency,
		logger:           logging.Component("service"),
	}
}

func (s *Service) Snapshot() *snapshot.Snapshot { return s.engine.Snapshot() }

func (s *Service) ModelName() string { return s.engine.ModelName() }

func (s *Service) GetRecommendations(ctx context.Context, userID int64, at time.Time, limit int) (*domain.RecommendationResult, error) {
	key := cache.KeyFor(s.engine.ModelName(), s.engine.Snapshot().Version(), userID, at, limit)

	// Check Cache
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("cache get failed")
		}
		if found {
			metrics.CacheHits.Inc()
			metrics.RecommendationsServed.WithLabelValues("cache").Inc()
			return &domain.RecommendationResult{Recommendations: cached, CacheHit: true}, nil
		}
		metrics.CacheMisses.Inc()
	}

	recs, err := s.engine.Recommend(ctx, userID, at, limit)
	if err != nil {
		code, _ := categorizeError(err)
		metrics.RecommendationsServed.WithLabelValues(code).Inc()
		return nil, err
	}
	metrics.RecommendationsServed.WithLabelValues("ranked").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, recs); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("cache set failed")
		}
	}

	return &domain.RecommendationResult{Recommendations: recs, CacheHit: false}, nil
}

// GetBatchRecommendations ranks a page of users, ordered by id, at the same instant.
func (s *Service) GetBatchRecommendations(ctx context.Context, page, limit int, at time.Time) (*domain.BatchResponse, error) {
	start := time.Now()
	snap := s.engine.Snapshot()
	userIDs := snap.UserIDs(page, limit)

	results := make([]domain.BatchUserResult, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			results[i] = s.processUserForBatch(gctx, userID, at)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch recommendations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	successCount := 0
	failedCount := 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalUsers: snap.CountUsers(),
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// Generates recommendations for a single user, capturing errors.
func (s *Service) processUserForBatch(ctx context.Context, userID int64, at time.Time) domain.BatchUserResult {
	result, err := s.GetRecommendations(ctx, userID, at, batchRecLimit)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("batch: user failed")
		code, msg := categorizeError(err)
		return domain.BatchUserResult{
			UserID:  userID,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		}
	}

	return domain.BatchUserResult{
		UserID:          userID,
		Recommendations: result.Recommendations,
		Status:          domain.StatusSuccess,
	}
}

// Handle response error
func categorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found", "user not found"
	case errors.Is(err, domain.ErrInvalidLimit):
		return "invalid_parameter", "limit must be positive"
	case errors.Is(err, domain.ErrAmbiguousData):
		return "ambiguous_data", "user has more than one feature row"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable", "recommendation model is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out"
	case model.IsModelInferenceError(err):
		return "model_inference_error", "recommendation model failed to generate a response"
	}
	return "internal_error", "an unexpected error occurred"
}

// ErrorCode exposes the error classification used in batch results.
func ErrorCode(err error) string {
	code, _ := categorizeError(err)
	return code
}
