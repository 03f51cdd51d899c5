package model

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

// Logistic is an in-process logistic regression over a fixed feature schema.
//
//	p = sigmoid(bias + Σ weights[col]·x + Σ categorical[col][value])
//
// Categorical values missing from the artifact contribute nothing.
type Logistic struct {
	version     string
	schema      feature.Schema
	bias        float64
	weights     []float64
	categorical []map[string]float64
}

type logisticArtifact struct {
	ModelVersion string                        `json:"model_version"`
	Features     feature.Schema                `json:"features"`
	Bias         float64                       `json:"bias"`
	Weights      map[string]float64            `json:"weights"`
	Categorical  map[string]map[string]float64 `json:"categorical"`
}

func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var raw logisticArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	return NewLogistic(raw.ModelVersion, raw.Features, raw.Bias, raw.Weights, raw.Categorical)
}

func NewLogistic(version string, schema feature.Schema, bias float64, weights map[string]float64, categorical map[string]map[string]float64) (*Logistic, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("model schema is empty")
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("model schema: %w", err)
	}

	m := &Logistic{
		version:     version,
		schema:      schema,
		bias:        bias,
		weights:     make([]float64, len(schema)),
		categorical: make([]map[string]float64, len(schema)),
	}

	for name, w := range weights {
		i := schema.Index(name)
		if i < 0 || schema[i].Kind != feature.Numeric {
			return nil, fmt.Errorf("weight for unknown numeric column %q", name)
		}
		m.weights[i] = w
	}
	for name, levels := range categorical {
		i := schema.Index(name)
		if i < 0 || schema[i].Kind != feature.Categorical {
			return nil, fmt.Errorf("levels for unknown categorical column %q", name)
		}
		m.categorical[i] = levels
	}
	return m, nil
}

func (m *Logistic) Name() string { return "logistic:" + m.version }

func (m *Logistic) Schema() feature.Schema { return m.schema }

// ScoreBatch scores every row; the result has the same length and order.
func (m *Logistic) ScoreBatch(ctx context.Context, rows []feature.Row) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(rows))
	for r, row := range rows {
		if len(row) != len(m.schema) {
			return nil, fmt.Errorf("row %d: %d values for %d columns", r, len(row), len(m.schema))
		}
		z := m.bias
		for i, v := range row {
			if m.schema[i].Kind == feature.Categorical {
				z += m.categorical[i][v.Str]
				continue
			}
			z += m.weights[i] * v.Num
		}
		scores[r] = 1 / (1 + math.Exp(-z))
	}
	return scores, nil
}
