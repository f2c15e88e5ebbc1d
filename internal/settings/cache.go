package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "kodeit:settings:"

// Cache wraps Redis helpers for setting payloads. A nil Cache, or one without
// a client, behaves as a permanent miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func idKey(id string) string       { return cachePrefix + "id:" + id }
func typeKey(t string) string      { return cachePrefix + "type:" + t }
func lastKnownKey(k string) string { return k + ":last" }

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with the configured TTL and keeps a copy without
// expiry that LastKnown serves when the store is down.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, data, c.ttl)
		p.Set(ctx, lastKnownKey(key), data, 0)
		return nil
	})
	return err
}

// LastKnown reads the non-expiring copy written by SetJSON.
func (c *Cache) LastKnown(ctx context.Context, key string, dst any) (bool, error) {
	return c.GetJSON(ctx, lastKnownKey(key), dst)
}

// Invalidate drops the fresh entries of keys. Last known copies stay.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Forget drops keys together with their last known copies.
func (c *Cache) Forget(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	all := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		all = append(all, k, lastKnownKey(k))
	}
	return c.client.Del(ctx, all...).Err()
}
