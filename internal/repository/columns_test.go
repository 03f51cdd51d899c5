package repository

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

func fields(cols ...any) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, 0, len(cols)/2)
	for i := 0; i < len(cols); i += 2 {
		out = append(out, pgconn.FieldDescription{Name: cols[i].(string), DataTypeOID: cols[i+1].(uint32)})
	}
	return out
}

func TestNewLayoutItems(t *testing.T) {
	fd := fields(
		"index", uint32(pgtype.Int8OID),
		"post_id", uint32(pgtype.Int8OID),
		"text", uint32(pgtype.TextOID),
		"topic", uint32(pgtype.TextOID),
		"total_tfidf", uint32(pgtype.Float8OID),
		"max_tfidf", uint32(pgtype.NumericOID),
	)

	l, err := newLayout(fd, "post_id", "text", "topic", []string{"index"})
	require.NoError(t, err)

	assert.Equal(t, feature.Schema{
		{Name: "topic", Kind: feature.Categorical},
		{Name: "total_tfidf", Kind: feature.Numeric},
		{Name: "max_tfidf", Kind: feature.Numeric},
	}, l.schema)
	assert.Equal(t, 1, l.id)
	assert.Equal(t, 2, l.text)
	assert.Equal(t, 3, l.topic)

	var num pgtype.Numeric
	num.Int = big.NewInt(125)
	num.Exp = -2
	num.Valid = true

	row, err := l.row([]any{int64(0), int64(42), "some text", "covid", 0.5, num})
	require.NoError(t, err)
	assert.Equal(t, feature.Row{feature.Cat("covid"), feature.Num(0.5), feature.Num(1.25)}, row)
}

func TestNewLayoutErrors(t *testing.T) {
	fd := fields("user_id", uint32(pgtype.Int4OID), "age", uint32(pgtype.Int4OID))

	_, err := newLayout(fd, "id", "", "", nil)
	assert.ErrorContains(t, err, "id column")

	_, err = newLayout(fd, "user_id", "text", "", nil)
	assert.ErrorContains(t, err, "text column")

	_, err = newLayout(fd, "user_id", "", "topic", nil)
	assert.ErrorContains(t, err, "topic column")

	withJSON := fields("user_id", uint32(pgtype.Int4OID), "extra", uint32(pgtype.JSONBOID))
	_, err = newLayout(withJSON, "user_id", "", "", nil)
	assert.ErrorContains(t, err, "unsupported column type")

	l, err := newLayout(withJSON, "user_id", "", "", []string{"extra"})
	require.NoError(t, err)
	assert.Empty(t, l.schema)
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name string
		kind feature.Kind
		in   any
		want feature.Value
	}{
		{"int16", feature.Numeric, int16(3), feature.Num(3)},
		{"int32", feature.Numeric, int32(-4), feature.Num(-4)},
		{"int64", feature.Numeric, int64(1 << 40), feature.Num(1 << 40)},
		{"float32", feature.Numeric, float32(0.5), feature.Num(0.5)},
		{"bool", feature.Numeric, true, feature.Num(1)},
		{"null numeric", feature.Numeric, nil, feature.Num(0)},
		{"string", feature.Categorical, "iOS", feature.Cat("iOS")},
		{"null category", feature.Categorical, nil, feature.Cat("")},
		{"int as category", feature.Categorical, int64(7), feature.Cat("7")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toValue(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := toValue(feature.Numeric, "oops")
	assert.Error(t, err)
}

func TestToID(t *testing.T) {
	id, err := toID(int32(12))
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = toID("12")
	assert.Error(t, err)
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"public"."feed_data"`, ident("public.feed_data"))
	assert.Equal(t, `"user_data"`, ident("user_data"))
	assert.Equal(t, `SELECT COUNT(*) FROM "lab"."users"`, countQuery("lab.users"))
}
