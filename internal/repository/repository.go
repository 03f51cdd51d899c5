package repository

import (
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/feed-recommender/internal/logging"
)

// Tables names the source tables and their key columns.
type Tables struct {
	Interactions    string
	InteractionUser string
	InteractionItem string
	ActionColumn    string
	LikeAction      string
	Items           string
	ItemID          string
	ItemText        string
	ItemTopic       string
	ItemDropColumns []string
	Users           string
	UserID          string
	UserDropColumns []string
	LogEvery        int
}

func DefaultTables() Tables {
	return Tables{
		Interactions:    "public.feed_data",
		InteractionUser: "user_id",
		InteractionItem: "post_id",
		ActionColumn:    "action",
		LikeAction:      "like",
		Items:           "public.posts_info_features",
		ItemID:          "post_id",
		ItemText:        "text",
		ItemTopic:       "topic",
		ItemDropColumns: []string{"index"},
		Users:           "public.user_data",
		UserID:          "user_id",
		LogEvery:        200000,
	}
}

type Repository struct {
	pool   *pgxpool.Pool
	tables Tables
	logger zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, tables Tables) *Repository {
	if tables.LogEvery <= 0 {
		tables.LogEvery = 200000
	}
	return &Repository{
		pool:   pool,
		tables: tables,
		logger: logging.Component("repository"),
	}
}

// ident quotes a possibly schema-qualified name.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
