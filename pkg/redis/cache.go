package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// JSONCache stores JSON values under a key prefix. Each namespace carries a
// generation counter; bumping it orphans every key built with the old value,
// which then expires on its own.
type JSONCache struct {
	rdb    goredis.Cmdable
	prefix string
}

func NewJSONCache(rdb goredis.Cmdable, prefix string) *JSONCache {
	return &JSONCache{rdb: rdb, prefix: prefix}
}

func (c *JSONCache) generationKey(namespace string) string {
	return c.prefix + ":gen:" + namespace
}

// Key builds the entry key for a namespace at a generation.
func (c *JSONCache) Key(namespace string, generation int64, parts ...string) string {
	key := c.prefix + ":" + namespace + ":" + strconv.FormatInt(generation, 10)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Generation returns the current generation of a namespace, zero if unset.
func (c *JSONCache) Generation(ctx context.Context, namespace string) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey(namespace)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// Bump advances the generation of a namespace.
func (c *JSONCache) Bump(ctx context.Context, namespace string) (int64, error) {
	gen, err := c.rdb.Incr(ctx, c.generationKey(namespace)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache bump: %w", err)
	}
	return gen, nil
}

// Get decodes the value at key into v. It reports false on a miss.
func (c *JSONCache) Get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
