package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
)

// LoadInteractions streams the distinct (user, post) pairs with a like.
func (r *Repository) LoadInteractions(ctx context.Context) ([]domain.Interaction, error) {
	t := r.tables
	query := fmt.Sprintf(`SELECT DISTINCT %s, %s FROM %s WHERE %s = $1`,
		ident(t.InteractionUser), ident(t.InteractionItem), ident(t.Interactions), ident(t.ActionColumn))

	rows, err := r.pool.Query(ctx, query, t.LikeAction)
	if err != nil {
		return nil, fmt.Errorf("query liked posts: %w", err)
	}
	return scanInteractions(rows, t.LogEvery, r.logger)
}

// scanInteractions drains rows of (user_id, post_id), logging progress every logEvery rows.
func scanInteractions(rows pgx.Rows, logEvery int, logger zerolog.Logger) ([]domain.Interaction, error) {
	defer rows.Close()

	var items []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.UserID, &in.ItemID); err != nil {
			return nil, fmt.Errorf("scan liked post: %w", err)
		}
		items = append(items, in)
		if logEvery > 0 && len(items)%logEvery == 0 {
			logger.Info().Int("rows", len(items)).Msg("loading liked posts")
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over liked posts: %w", err)
	}
	return items, nil
}
