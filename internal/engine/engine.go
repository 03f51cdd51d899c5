// Package engine ranks posts for a user against a feature snapshot.
//
// For every request it joins each post's features with the user's features
// and the request hour and month, scores all posts in one model call, drops
// the posts the user already liked and returns the top of the ranking.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
	"github.com/actuallystonmai/feed-recommender/internal/metrics"
	"github.com/actuallystonmai/feed-recommender/internal/model"
	"github.com/actuallystonmai/feed-recommender/internal/snapshot"
)

// Model scores a batch of rows laid out in Schema order. It must return one
// probability per row, in input order, and be safe for concurrent use.
type Model interface {
	Name() string
	Schema() feature.Schema
	ScoreBatch(ctx context.Context, rows []feature.Row) ([]float64, error)
}

// TemporalSchema lists the request-time columns appended to every row.
var TemporalSchema = feature.Schema{
	{Name: "hour", Kind: feature.Numeric},
	{Name: "month", Kind: feature.Numeric},
}

type Engine struct {
	snap   *snapshot.Snapshot
	model  Model
	logger zerolog.Logger
}

// ScoringSchema is the row layout the engine builds for a snapshot.
func ScoringSchema(snap *snapshot.Snapshot) feature.Schema {
	return snap.ItemSchema().Concat(snap.UserSchema(), TemporalSchema)
}

// New checks once that the rows built from snap match what m was trained on.
func New(snap *snapshot.Snapshot, m Model, logger zerolog.Logger) (*Engine, error) {
	if snap == nil || m == nil {
		return nil, fmt.Errorf("engine needs a snapshot and a model")
	}
	if err := ScoringSchema(snap).Compare(m.Schema()); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaMismatch, err)
	}
	return &Engine{
		snap:   snap,
		model:  m,
		logger: logger.With().Str("component", "engine").Logger(),
	}, nil
}

func (e *Engine) Snapshot() *snapshot.Snapshot { return e.snap }

func (e *Engine) ModelName() string { return e.model.Name() }

// Recommend returns up to limit posts the user has not liked, most likely
// to be liked first. Equal probabilities rank the lower post id first.
func (e *Engine) Recommend(ctx context.Context, userID int64, at time.Time, limit int) ([]domain.ItemDescriptor, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, limit)
	}

	user, err := e.snap.User(userID)
	if err != nil {
		return nil, err
	}

	items := e.snap.Items()
	rows := e.buildRows(user, at)

	start := time.Now()
	scores, err := e.model.ScoreBatch(ctx, rows)
	if err == nil {
		err = checkScores(scores, len(rows))
	}
	metrics.RecordModelCall(e.model.Name(), len(rows), time.Since(start), err)
	if err != nil {
		return nil, &model.ModelInferenceError{Model: e.model.Name(), Msg: "score batch", Err: err}
	}

	candidates := make([]domain.ScoredItem, 0, len(items))
	for i, it := range items {
		if e.snap.Liked(userID, it.ID) {
			continue
		}
		candidates = append(candidates, domain.ScoredItem{ItemID: it.ID, Probability: scores[i]})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Probability != candidates[j].Probability {
			return candidates[i].Probability > candidates[j].Probability
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	recs := make([]domain.ItemDescriptor, 0, len(candidates))
	for _, c := range candidates {
		it, _ := e.snap.Item(c.ItemID)
		recs = append(recs, it.Descriptor())
	}

	e.logger.Debug().
		Int64("user_id", userID).
		Int("candidates", len(items)).
		Int("liked", e.snap.LikedCount(userID)).
		Int("returned", len(recs)).
		Msg("ranked")
	return recs, nil
}

// buildRows lays out one row per item: item values, user values, hour, month.
// Hour and month are read in the location carried by at.
func (e *Engine) buildRows(user domain.UserFeatures, at time.Time) []feature.Row {
	items := e.snap.Items()
	width := len(e.snap.ItemSchema()) + len(user.Values) + len(TemporalSchema)
	hour := feature.Num(float64(at.Hour()))
	month := feature.Num(float64(at.Month()))

	// one backing array for the whole batch
	cells := make([]feature.Value, 0, width*len(items))
	rows := make([]feature.Row, len(items))
	for i, it := range items {
		begin := len(cells)
		cells = append(cells, it.Values...)
		cells = append(cells, user.Values...)
		cells = append(cells, hour, month)
		rows[i] = cells[begin:len(cells):len(cells)]
	}
	return rows
}

func checkScores(scores []float64, want int) error {
	if len(scores) != want {
		return fmt.Errorf("got %d scores for %d rows", len(scores), want)
	}
	for i, s := range scores {
		if math.IsNaN(s) || s < 0 || s > 1 {
			return fmt.Errorf("score %d out of range: %v", i, s)
		}
	}
	return nil
}
