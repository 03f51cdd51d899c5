package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

var (
	itemSchema = feature.Schema{{Name: "topic", Kind: feature.Categorical}}
	userSchema = feature.Schema{{Name: "age", Kind: feature.Numeric}}
)

func testTables() Tables {
	return Tables{
		ItemSchema: itemSchema,
		UserSchema: userSchema,
		Items: []domain.ItemFeatures{
			{ID: 2, Text: "b", Topic: "sport", Values: feature.Row{feature.Cat("sport")}},
			{ID: 1, Text: "a", Topic: "covid", Values: feature.Row{feature.Cat("covid")}},
		},
		Users: []domain.UserFeatures{
			{ID: 30, Values: feature.Row{feature.Num(25)}},
			{ID: 10, Values: feature.Row{feature.Num(40)}},
			{ID: 20, Values: feature.Row{feature.Num(31)}},
		},
		Interactions: []domain.Interaction{
			{UserID: 10, ItemID: 1},
			{UserID: 10, ItemID: 1},
			{UserID: 20, ItemID: 2},
		},
	}
}

func TestNew(t *testing.T) {
	s, err := New(testTables(), time.Unix(1700000000, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, s.CountItems())
	assert.Equal(t, 3, s.CountUsers())
	assert.Equal(t, 2, s.CountInteractions(), "duplicate likes are collapsed")
	assert.Equal(t, int64(1700000000), s.Version())

	// load order is preserved
	assert.Equal(t, int64(2), s.Items()[0].ID)

	it, ok := s.Item(1)
	require.True(t, ok)
	assert.Equal(t, "covid", it.Topic)

	assert.True(t, s.Liked(10, 1))
	assert.False(t, s.Liked(10, 2))
	assert.False(t, s.Liked(99, 1))
	assert.Equal(t, 1, s.LikedCount(10))
}

func TestUserLookup(t *testing.T) {
	tables := testTables()
	tables.Users = append(tables.Users, domain.UserFeatures{ID: 20, Values: feature.Row{feature.Num(32)}})

	s, err := New(tables, time.Now())
	require.NoError(t, err)

	u, err := s.User(10)
	require.NoError(t, err)
	assert.Equal(t, 40.0, u.Values[0].Num)

	_, err = s.User(404)
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))

	_, err = s.User(20)
	assert.True(t, errors.Is(err, domain.ErrAmbiguousData))
}

func TestNewRejectsBadTables(t *testing.T) {
	dupItem := testTables()
	dupItem.Items = append(dupItem.Items, dupItem.Items[0])
	_, err := New(dupItem, time.Now())
	assert.True(t, errors.Is(err, domain.ErrAmbiguousData))

	shortRow := testTables()
	shortRow.Users[0].Values = nil
	_, err = New(shortRow, time.Now())
	assert.Error(t, err)

	badSchema := testTables()
	badSchema.ItemSchema = feature.Schema{{Name: "topic", Kind: "blob"}}
	_, err = New(badSchema, time.Now())
	assert.Error(t, err)
}

func TestUserIDsPagination(t *testing.T) {
	s, err := New(testTables(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20}, s.UserIDs(1, 2))
	assert.Equal(t, []int64{30}, s.UserIDs(2, 2))
	assert.Empty(t, s.UserIDs(3, 2))
	assert.Empty(t, s.UserIDs(0, 2))
}
