package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/feed-recommender/internal/domain"
)

const defaultTTL = 10 * time.Minute

// Key identifies a ranked result. Rankings only depend on the model, the
// snapshot, the user, the request hour and month, and the limit.
type Key struct {
	Model   string
	Version int64
	UserID  int64
	Hour    int
	Month   int
	Limit   int
}

func KeyFor(model string, version, userID int64, at time.Time, limit int) Key {
	return Key{Model: model, Version: version, UserID: userID, Hour: at.Hour(), Month: int(at.Month()), Limit: limit}
}

func (k Key) String() string {
	return fmt.Sprintf("rec:%s:v%d:user:%d:h:%d:m:%d:limit:%d", k.Model, k.Version, k.UserID, k.Hour, k.Month, k.Limit)
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get recommendations from cache
func (c *Cache) Get(ctx context.Context, key Key) ([]domain.ItemDescriptor, bool, error) {
	val, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendations from cache: %w", err)
	}

	var recs []domain.ItemDescriptor
	if err := json.Unmarshal(val, &recs); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendations %s: %w", key, err)
	}
	return recs, true, nil
}

// Store recommendations in cache
func (c *Cache) Set(ctx context.Context, key Key, recs []domain.ItemDescriptor) error {
	val, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	if err := c.client.Set(ctx, key.String(), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set recommendations in cache: %w", err)
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
