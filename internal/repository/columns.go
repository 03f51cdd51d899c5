package repository

import (
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

// tableLayout maps the columns of a SELECT * result onto a feature schema.
type tableLayout struct {
	schema  feature.Schema
	columns []int // result position of each schema column
	id      int
	text    int
	topic   int
}

func columnKind(oid uint32) (feature.Kind, error) {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID, pgtype.BoolOID:
		return feature.Numeric, nil
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		return feature.Categorical, nil
	}
	return "", fmt.Errorf("unsupported column type oid %d", oid)
}

// newLayout finds the id column and, if named, the text and topic columns.
// Every other column not in drop becomes a feature, text excluded. Topic stays
// a feature and is also kept for display.
func newLayout(fields []pgconn.FieldDescription, idCol, textCol, topicCol string, drop []string) (*tableLayout, error) {
	l := &tableLayout{id: -1, text: -1, topic: -1}
	for i, f := range fields {
		switch {
		case f.Name == idCol:
			l.id = i
			continue
		case textCol != "" && f.Name == textCol:
			l.text = i
			continue
		case slices.Contains(drop, f.Name):
			continue
		}
		if topicCol != "" && f.Name == topicCol {
			l.topic = i
		}
		kind, err := columnKind(f.DataTypeOID)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		l.schema = append(l.schema, feature.Column{Name: f.Name, Kind: kind})
		l.columns = append(l.columns, i)
	}

	if l.id < 0 {
		return nil, fmt.Errorf("id column %q not found", idCol)
	}
	if textCol != "" && l.text < 0 {
		return nil, fmt.Errorf("text column %q not found", textCol)
	}
	if topicCol != "" && l.topic < 0 {
		return nil, fmt.Errorf("topic column %q not found", topicCol)
	}
	return l, nil
}

func (l *tableLayout) row(values []any) (feature.Row, error) {
	row := make(feature.Row, len(l.columns))
	for i, pos := range l.columns {
		v, err := toValue(l.schema[i].Kind, values[pos])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", l.schema[i].Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// toValue converts a decoded cell. NULL becomes 0 or the empty category.
func toValue(kind feature.Kind, v any) (feature.Value, error) {
	if kind == feature.Categorical {
		switch x := v.(type) {
		case nil:
			return feature.Cat(""), nil
		case string:
			return feature.Cat(x), nil
		default:
			return feature.Cat(fmt.Sprint(x)), nil
		}
	}

	switch x := v.(type) {
	case nil:
		return feature.Num(0), nil
	case int16:
		return feature.Num(float64(x)), nil
	case int32:
		return feature.Num(float64(x)), nil
	case int64:
		return feature.Num(float64(x)), nil
	case float32:
		return feature.Num(float64(x)), nil
	case float64:
		return feature.Num(x), nil
	case bool:
		if x {
			return feature.Num(1), nil
		}
		return feature.Num(0), nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil {
			return feature.Value{}, err
		}
		return feature.Num(f.Float64), nil
	}
	return feature.Value{}, fmt.Errorf("unexpected numeric value %T", v)
}

func toID(v any) (int64, error) {
	switch x := v.(type) {
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("unexpected id value %T", v)
}

func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
