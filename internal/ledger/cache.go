package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps redis-based read caching of aggregated balances. Keys embed a
// per-book version; bumping the version after a voucher mutation orphans
// every cached value for that book, and the TTL reaps the orphans. A nil
// Cache (or nil client) passes every fetch straight to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(bookID int64) string {
	return fmt.Sprintf("ledger:version:%d", bookID)
}

// Version returns the book's current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, bookID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(bookID)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, versionKey(bookID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a cache key scoped to the book's current version.
func (c *Cache) BuildKey(ctx context.Context, bookID int64, parts ...string) (string, error) {
	joined := fmt.Sprintf("ledger:%d:%s", bookID, strings.Join(parts, ":"))
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx, bookID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("ledger: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the book's cached balances by incrementing its version.
func (c *Cache) Bump(ctx context.Context, bookID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(bookID)).Err()
}
