package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/internal/metrics"
)

// Remote scores batches on an external model server (e.g. the CatBoost
// model behind a small Python service).
//
// Request:  {"model_version": "...", "columns": ["topic", ...], "rows": [["covid", 0.1, ...], ...]}
// Response: {"scores": [0.85, 0.72, ...]}
type Remote struct {
	endpoint string
	version  string
	schema   feature.Schema
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[[]float64]
}

type scoreRequest struct {
	ModelVersion string   `json:"model_version,omitempty"`
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

type RemoteConfig struct {
	Endpoint     string
	MetadataPath string
	Timeout      time.Duration
	MaxFailures  uint32 // consecutive failures that open the breaker, 0 disables it
	OpenTimeout  time.Duration
}

func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote model endpoint is empty")
	}
	meta, err := LoadFeatureMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}
	schema, err := meta.Schema()
	if err != nil {
		return nil, fmt.Errorf("feature metadata %s: %w", cfg.MetadataPath, err)
	}
	return newRemote(cfg, meta.ModelVersion, schema), nil
}

func newRemote(cfg RemoteConfig, version string, schema feature.Schema) *Remote {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	r := &Remote{
		endpoint: cfg.Endpoint,
		version:  version,
		schema:   schema,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.MaxFailures > 0 {
		r.cb = newBreaker("remote-model", cfg.MaxFailures, cfg.OpenTimeout)
	}
	return r
}

func newBreaker(name string, maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]float64] {
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	log := logging.Component("model")

	return gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Cancelled requests say nothing about the model server.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

func (r *Remote) Name() string { return "remote:" + r.version }

func (r *Remote) Schema() feature.Schema { return r.schema }

func (r *Remote) ScoreBatch(ctx context.Context, rows []feature.Row) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	if r.cb == nil {
		return r.call(ctx, rows)
	}
	scores, err := r.cb.Execute(func() ([]float64, error) {
		return r.call(ctx, rows)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return scores, err
}

func (r *Remote) call(ctx context.Context, rows []feature.Row) ([]float64, error) {
	body, err := json.Marshal(r.encode(rows))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Scores) != len(rows) {
		return nil, fmt.Errorf("response scores count mismatch: expected %d, got %d", len(rows), len(out.Scores))
	}
	return out.Scores, nil
}

func (r *Remote) encode(rows []feature.Row) scoreRequest {
	req := scoreRequest{
		ModelVersion: r.version,
		Columns:      r.schema.Names(),
		Rows:         make([][]any, len(rows)),
	}
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if j < len(r.schema) && r.schema[j].Kind == feature.Categorical {
				cells[j] = v.Str
			} else {
				cells[j] = v.Num
			}
		}
		req.Rows[i] = cells
	}
	return req
}
