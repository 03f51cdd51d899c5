// Package main provides the feed recommender server and its maintenance commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/actuallystonmai/feed-recommender/internal/config"
	"github.com/actuallystonmai/feed-recommender/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Fatal().Err(err).Msg("command failed")
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "feed-recommender",
		Short:        "Post recommendations ranked by predicted like probability",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a yaml config file (overrides CONFIG_PATH)")

	// Serve command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Load features and serve HTTP (default); DB_MIGRATE and SEED_DATA opt into startup DDL and demo data",
		RunE:  runServe,
	})

	// Migration commands
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate-up",
		Short: "Create the feature tables",
		RunE: withDB(func(ctx context.Context, db *database) error {
			return db.migrateUp(ctx)
		}),
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate-down",
		Short: "Drop the feature tables",
		RunE: withDB(func(ctx context.Context, db *database) error {
			return db.migrateDown(ctx)
		}),
	})

	// Seed command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Replace table contents with deterministic demo data",
		RunE: withDB(func(ctx context.Context, db *database) error {
			if err := db.migrateUp(ctx); err != nil {
				return err
			}
			return db.seed(ctx)
		}),
	})

	return rootCmd
}

// loadConfig loads configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return cfg, nil
}

func withDB(fn func(ctx context.Context, db *database) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.close()
		return fn(cmd.Context(), db)
	}
}
