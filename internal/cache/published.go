package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/pkg/domain"
)

const opTimeout = 2 * time.Second

// PublishedCache caches the published-collections listing in Redis, keyed by
// the requested limit. Failures degrade to cache misses so the store stays
// the source of truth.
type PublishedCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPublishedCache creates a Redis-backed listing cache.
func NewPublishedCache(addr, password string, ttl time.Duration) (*PublishedCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("cache redis addr is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PublishedCache{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: "paygate:published",
		ttl:    ttl,
	}, nil
}

func (c *PublishedCache) key(limit int) string {
	return fmt.Sprintf("%s:limit:%d", c.prefix, limit)
}

// Get returns the cached listing for limit, with ok=false on miss or error.
func (c *PublishedCache) Get(ctx context.Context, limit int) ([]domain.Collection, bool) {
	if c == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := c.client.Get(ctx, c.key(limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []domain.Collection
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Set stores the listing for limit with the configured TTL.
func (c *PublishedCache) Set(ctx context.Context, limit int, collections []domain.Collection) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.key(limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops every cached listing. Called on any collection write.
func (c *PublishedCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
