package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

// LoadUserFeatures reads the whole user feature table; the user id is not a feature.
func (r *Repository) LoadUserFeatures(ctx context.Context) (feature.Schema, []domain.UserFeatures, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %s`, ident(r.tables.Users)))
	if err != nil {
		return nil, nil, fmt.Errorf("query user features: %w", err)
	}
	return scanUsers(rows, r.tables)
}

func scanUsers(rows pgx.Rows, t Tables) (feature.Schema, []domain.UserFeatures, error) {
	defer rows.Close()

	layout, err := newLayout(rows.FieldDescriptions(), t.UserID, "", "", t.UserDropColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("user features %s: %w", t.Users, err)
	}

	var users []domain.UserFeatures
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("decode user features: %w", err)
		}
		id, err := toID(values[layout.id])
		if err != nil {
			return nil, nil, fmt.Errorf("user id: %w", err)
		}
		row, err := layout.row(values)
		if err != nil {
			return nil, nil, fmt.Errorf("user %d: %w", id, err)
		}
		users = append(users, domain.UserFeatures{ID: id, Values: row})
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate over user features: %w", err)
	}
	return layout.schema, users, nil
}

// CountUsers returns the number of rows in the users table.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countQuery(r.tables.Users)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.tables.Users, err)
	}
	return count, nil
}

func countQuery(table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ident(table))
}
