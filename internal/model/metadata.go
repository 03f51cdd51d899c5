package model

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

// FeatureMetadata describes the columns a served model was trained on,
// as exported next to the model (feature_meta.json).
type FeatureMetadata struct {
	FeatureColumns     []string `json:"feature_columns"`
	CategoricalColumns []string `json:"categorical_columns"`
	ModelVersion       string   `json:"model_version"`
}

func LoadFeatureMetadata(path string) (*FeatureMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature metadata: %w", err)
	}
	var meta FeatureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode feature metadata %s: %w", path, err)
	}
	return &meta, nil
}

// Schema turns the column list into a typed schema. Columns not listed as
// categorical are numeric.
func (m *FeatureMetadata) Schema() (feature.Schema, error) {
	cats := make(map[string]struct{}, len(m.CategoricalColumns))
	for _, c := range m.CategoricalColumns {
		cats[c] = struct{}{}
	}

	schema := make(feature.Schema, len(m.FeatureColumns))
	for i, name := range m.FeatureColumns {
		kind := feature.Numeric
		if _, ok := cats[name]; ok {
			kind = feature.Categorical
			delete(cats, name)
		}
		schema[i] = feature.Column{Name: name, Kind: kind}
	}
	for name := range cats {
		return nil, fmt.Errorf("categorical column %q is not a feature column", name)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}
