package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Model
	ModelScoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_score_batch_duration_seconds",
			Help:    "Duration of one batched model scoring call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	ModelScoreBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_score_batch_size",
			Help:    "Number of rows submitted per scoring call",
			Buckets: []float64{10, 100, 1000, 5000, 10000, 50000},
		},
	)

	ModelErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_errors_total",
			Help: "Total number of failed scoring calls",
		},
		[]string{"model"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Recommendations
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Feature snapshot
	SnapshotRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feature_snapshot_rows",
			Help: "Rows held in the feature snapshot per table",
		},
		[]string{"table"},
	)

	SnapshotLoadDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feature_snapshot_load_seconds",
			Help: "Time taken to load the feature snapshot at startup",
		},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordModelCall records one batched scoring call.
func RecordModelCall(model string, rows int, duration time.Duration, err error) {
	ModelScoreDuration.WithLabelValues(model).Observe(duration.Seconds())
	ModelScoreBatchSize.Observe(float64(rows))
	if err != nil {
		ModelErrors.WithLabelValues(model).Inc()
	}
}
