package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/actuallystonmai/feed-recommender/internal/cache"
	"github.com/actuallystonmai/feed-recommender/internal/config"
	"github.com/actuallystonmai/feed-recommender/internal/engine"
	"github.com/actuallystonmai/feed-recommender/internal/handler"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/internal/model"
	"github.com/actuallystonmai/feed-recommender/internal/repository"
	"github.com/actuallystonmai/feed-recommender/internal/router"
	"github.com/actuallystonmai/feed-recommender/internal/service"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// ------------ PostgreSQL ---------------
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.close()

	// ------------ Migrations & Seed Data ---------------
	repo := repository.NewRepository(db.pool, repositoryTables(cfg.Tables))
	if err := prepareDatabase(ctx, cfg.Database, startupStore{database: db, repo: repo}); err != nil {
		return err
	}

	// ------------ Features & Model ---------------
	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	m, err := loadModel(cfg.Model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	logging.Info().Str("model", m.Name()).Int("features", len(m.Schema())).Msg("model loaded")

	eng, err := engine.New(snap, m, logging.Logger())
	if err != nil {
		return err
	}

	// ------------ Redis ---------------
	var resultCache service.ResultCache
	if rc := connectCache(ctx, cfg.Redis); rc != nil {
		defer rc.Close()
		resultCache = rc
	}

	// ---------------- Server --------------------
	svc := service.NewService(eng, resultCache, cfg.API.BatchConcurrency)
	h := handler.NewHandler(svc, handler.Options{
		DefaultLimit: cfg.API.DefaultLimit,
		MaxLimit:     cfg.API.MaxLimit,
	})
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(h, router.Options{
			RequestTimeout:    cfg.Server.RequestTimeout,
			RateLimitRequests: cfg.API.RateLimitRequests,
			RateLimitWindow:   cfg.API.RateLimitWindow,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("service is up and running")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type featureStore interface {
	migrateUp(ctx context.Context) error
	countUsers(ctx context.Context) (int, error)
	seed(ctx context.Context) error
}

type startupStore struct {
	*database
	repo *repository.Repository
}

func (s startupStore) countUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// prepareDatabase runs the DDL and the demo seed only when enabled.
// The seed check counts the configured users table.
func prepareDatabase(ctx context.Context, cfg config.DatabaseConfig, store featureStore) error {
	if cfg.Migrate {
		if err := store.migrateUp(ctx); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}
	if !cfg.Seed {
		return nil
	}

	count, err := store.countUsers(ctx)
	if err != nil {
		return fmt.Errorf("check seed: %w", err)
	}
	if count > 0 {
		logging.Info().Int("users", count).Msg("database already seeded, skipping")
		return nil
	}
	return store.seed(ctx)
}

func repositoryTables(cfg config.TablesConfig) repository.Tables {
	t := repository.DefaultTables()
	t.Interactions = cfg.Interactions
	t.Items = cfg.Items
	t.Users = cfg.Users
	t.LikeAction = cfg.LikeAction
	t.LogEvery = cfg.LogEvery
	return t
}

func loadModel(cfg config.ModelConfig) (engine.Model, error) {
	switch cfg.Kind {
	case config.ModelRemote:
		return model.NewRemote(model.RemoteConfig{
			Endpoint:     cfg.Endpoint,
			MetadataPath: cfg.MetadataPath,
			Timeout:      cfg.Timeout,
			MaxFailures:  cfg.MaxFailures,
			OpenTimeout:  cfg.OpenTimeout,
		})
	default:
		return model.LoadLogistic(model.ResolvePath(cfg.Path))
	}
}

// connectCache returns nil when caching is disabled or redis is unreachable.
func connectCache(ctx context.Context, cfg config.RedisConfig) *cache.Cache {
	if cfg.URL == "" {
		logging.Info().Msg("result cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logging.Warn().Err(err).Msg("invalid redis url, result cache disabled")
		return nil
	}
	c := cache.NewCache(redis.NewClient(opts), cfg.CacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("redis unreachable, result cache disabled")
		c.Close()
		return nil
	}
	logging.Info().Msg("connected to Redis")
	return c
}
