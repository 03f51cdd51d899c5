package repository

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/feed-recommender/internal/metrics"
	"github.com/actuallystonmai/feed-recommender/internal/snapshot"
)

// LoadSnapshot reads the three tables concurrently and freezes them.
func (r *Repository) LoadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	start := time.Now()
	var t snapshot.Tables

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info().Str("table", r.tables.Interactions).Msg("loading liked posts")
		var err error
		t.Interactions, err = r.LoadInteractions(gctx)
		return err
	})
	g.Go(func() error {
		r.logger.Info().Str("table", r.tables.Items).Msg("loading post features")
		var err error
		t.ItemSchema, t.Items, err = r.LoadItemFeatures(gctx)
		return err
	})
	g.Go(func() error {
		r.logger.Info().Str("table", r.tables.Users).Msg("loading user features")
		var err error
		t.UserSchema, t.Users, err = r.LoadUserFeatures(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}

	snap, err := snapshot.New(t, time.Now())
	if err != nil {
		return nil, fmt.Errorf("build feature snapshot: %w", err)
	}

	elapsed := time.Since(start)
	metrics.SnapshotLoadDuration.Set(elapsed.Seconds())
	metrics.SnapshotRows.WithLabelValues("interactions").Set(float64(snap.CountInteractions()))
	metrics.SnapshotRows.WithLabelValues("items").Set(float64(snap.CountItems()))
	metrics.SnapshotRows.WithLabelValues("users").Set(float64(snap.CountUsers()))

	r.logger.Info().
		Int("items", snap.CountItems()).
		Int("users", snap.CountUsers()).
		Int("likes", snap.CountInteractions()).
		Dur("elapsed", elapsed).
		Msg("feature snapshot loaded")
	return snap, nil
}
