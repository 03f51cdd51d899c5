// Package snapshot holds the feature state loaded at startup.
//
// A Snapshot is built once and never mutated afterwards, so it can be shared
// by any number of concurrent requests without locking. Picking up new data
// requires building a new Snapshot (in practice, restarting the process).
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
	"github.com/actuallystonmai/feed-recommender/internal/feature"
)

type Snapshot struct {
	itemSchema feature.Schema
	userSchema feature.Schema

	items     []domain.ItemFeatures
	itemIndex map[int64]int

	users   map[int64][]domain.UserFeatures
	userIDs []int64

	liked        map[int64]map[int64]struct{}
	interactions int

	loadedAt time.Time
}

// Tables is the raw output of the feature store loader.
type Tables struct {
	ItemSchema   feature.Schema
	UserSchema   feature.Schema
	Items        []domain.ItemFeatures
	Users        []domain.UserFeatures
	Interactions []domain.Interaction
}

// New validates the tables and builds the read-only lookup structures.
// Items keep their load order; it is the order candidates are scored in.
func New(t Tables, loadedAt time.Time) (*Snapshot, error) {
	if err := t.ItemSchema.Validate(); err != nil {
		return nil, fmt.Errorf("item schema: %w", err)
	}
	if err := t.UserSchema.Validate(); err != nil {
		return nil, fmt.Errorf("user schema: %w", err)
	}

	s := &Snapshot{
		itemSchema: t.ItemSchema,
		userSchema: t.UserSchema,
		items:      make([]domain.ItemFeatures, len(t.Items)),
		itemIndex:  make(map[int64]int, len(t.Items)),
		users:      make(map[int64][]domain.UserFeatures, len(t.Users)),
		liked:      make(map[int64]map[int64]struct{}),
		loadedAt:   loadedAt,
	}

	for i, it := range t.Items {
		if len(it.Values) != len(t.ItemSchema) {
			return nil, fmt.Errorf("item %d: %d values for %d columns", it.ID, len(it.Values), len(t.ItemSchema))
		}
		if _, dup := s.itemIndex[it.ID]; dup {
			return nil, fmt.Errorf("item %d appears twice: %w", it.ID, domain.ErrAmbiguousData)
		}
		s.itemIndex[it.ID] = i
		it.Values = append(feature.Row(nil), it.Values...)
		s.items[i] = it
	}

	// Duplicate user rows are kept; the lookup reports them per request.
	for _, u := range t.Users {
		if len(u.Values) != len(t.UserSchema) {
			return nil, fmt.Errorf("user %d: %d values for %d columns", u.ID, len(u.Values), len(t.UserSchema))
		}
		if _, ok := s.users[u.ID]; !ok {
			s.userIDs = append(s.userIDs, u.ID)
		}
		u.Values = append(feature.Row(nil), u.Values...)
		s.users[u.ID] = append(s.users[u.ID], u)
	}
	sort.Slice(s.userIDs, func(i, j int) bool { return s.userIDs[i] < s.userIDs[j] })

	for _, in := range t.Interactions {
		set, ok := s.liked[in.UserID]
		if !ok {
			set = make(map[int64]struct{})
			s.liked[in.UserID] = set
		}
		if _, seen := set[in.ItemID]; !seen {
			set[in.ItemID] = struct{}{}
			s.interactions++
		}
	}

	return s, nil
}

func (s *Snapshot) ItemSchema() feature.Schema { return s.itemSchema }
func (s *Snapshot) UserSchema() feature.Schema { return s.userSchema }
func (s *Snapshot) LoadedAt() time.Time        { return s.loadedAt }

// Version identifies the snapshot in cache keys.
func (s *Snapshot) Version() int64 { return s.loadedAt.Unix() }

// Items returns the item table in load order. Callers must not modify it.
func (s *Snapshot) Items() []domain.ItemFeatures { return s.items }

func (s *Snapshot) Item(id int64) (domain.ItemFeatures, bool) {
	i, ok := s.itemIndex[id]
	if !ok {
		return domain.ItemFeatures{}, false
	}
	return s.items[i], true
}

// User returns the single feature row of a user.
func (s *Snapshot) User(id int64) (domain.UserFeatures, error) {
	rows := s.users[id]
	switch len(rows) {
	case 0:
		return domain.UserFeatures{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	case 1:
		return rows[0], nil
	default:
		return domain.UserFeatures{}, fmt.Errorf("user %d has %d feature rows: %w", id, len(rows), domain.ErrAmbiguousData)
	}
}

// Liked reports whether the user already liked the item.
func (s *Snapshot) Liked(userID, itemID int64) bool {
	_, ok := s.liked[userID][itemID]
	return ok
}

func (s *Snapshot) LikedCount(userID int64) int { return len(s.liked[userID]) }

// UserIDs returns a page of distinct user ids in ascending order.
func (s *Snapshot) UserIDs(page, limit int) []int64 {
	if page < 1 || limit < 1 {
		return nil
	}
	offset := (page - 1) * limit
	if offset >= len(s.userIDs) {
		return nil
	}
	end := min(offset+limit, len(s.userIDs))
	return append([]int64(nil), s.userIDs[offset:end]...)
}

func (s *Snapshot) CountUsers() int        { return len(s.userIDs) }
func (s *Snapshot) CountItems() int        { return len(s.items) }
func (s *Snapshot) CountInteractions() int { return s.interactions }
