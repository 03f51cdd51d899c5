package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/actuallystonmai/feed-recommender/internal/config"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
	"github.com/actuallystonmai/feed-recommender/seeds"
)

type database struct {
	pool *pgxpool.Pool
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.PoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &database{pool: pool}
	if err := db.waitForDB(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logging.Info().Msg("connected to PostgreSQL")
	return db, nil
}

func (db *database) close() {
	db.pool.Close()
}

func (db *database) waitForDB(ctx context.Context) error {
	for i := 0; i < 30; i++ {
		if err := db.pool.Ping(ctx); err == nil {
			return nil
		}
		logging.Info().Msgf("waiting for database... (%d/30)", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func (db *database) migrateDown(ctx context.Context) error {
	sql, err := os.ReadFile("migrations/create_tables.down.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := db.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	logging.Info().Msg("migrations dropped successfully")
	return nil
}

func (db *database) migrateUp(ctx context.Context) error {
	sql, err := os.ReadFile("migrations/create_tables.up.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := db.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	logging.Info().Msg("migrations applied successfully")
	return nil
}

func (db *database) seed(ctx context.Context) error {
	return seeds.Setup(ctx, db.pool)
}
