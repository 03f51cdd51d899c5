package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

// LoadItemFeatures reads the whole post feature table. The returned schema
// holds every column except the id, the text and the dropped ones.
func (r *Repository) LoadItemFeatures(ctx context.Context) (feature.Schema, []domain.ItemFeatures, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %s`, ident(r.tables.Items)))
	if err != nil {
		return nil, nil, fmt.Errorf("query post features: %w", err)
	}
	return scanItems(rows, r.tables)
}

func scanItems(rows pgx.Rows, t Tables) (feature.Schema, []domain.ItemFeatures, error) {
	defer rows.Close()

	layout, err := newLayout(rows.FieldDescriptions(), t.ItemID, t.ItemText, t.ItemTopic, t.ItemDropColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("post features %s: %w", t.Items, err)
	}

	var items []domain.ItemFeatures
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("decode post features: %w", err)
		}
		id, err := toID(values[layout.id])
		if err != nil {
			return nil, nil, fmt.Errorf("post id: %w", err)
		}
		row, err := layout.row(values)
		if err != nil {
			return nil, nil, fmt.Errorf("post %d: %w", id, err)
		}
		items = append(items, domain.ItemFeatures{
			ID:     id,
			Text:   toText(values[layout.text]),
			Topic:  toText(values[layout.topic]),
			Values: row,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate over post features: %w", err)
	}
	return layout.schema, items, nil
}
