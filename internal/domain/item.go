package domain

import "github.com/actuallystonmai/feed-recommender/internal/feature"

// ItemFeatures is one row of the post feature table.
// Values follows the item schema: every column except the id and the text.
type ItemFeatures struct {
	ID     int64
	Text   string
	Topic  string
	Values feature.Row
}

// ItemDescriptor is what a recommendation returns for a post.
type ItemDescriptor struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

func (it ItemFeatures) Descriptor() ItemDescriptor {
	return ItemDescriptor{ID: it.ID, Text: it.Text, Topic: it.Topic}
}
