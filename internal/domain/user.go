package domain

import "github.com/actuallystonmai/feed-recommender/internal/feature"

// UserFeatures is one row of the user feature table, user id excluded from Values.
type UserFeatures struct {
	ID     int64
	Values feature.Row
}
