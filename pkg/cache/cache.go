// Package cache is a thin read-through layer over Redis. It never originates
// data: the persistent store stays the source of truth, and a cold or
// unreachable Redis only degrades reads to store lookups.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"inkwell/pkg/logger"
)

// Cache is the subset of operations the document service needs. Absence of a
// key is a miss, never an error; Set and Delete failures are logged but do
// not fail the request, so a down cache cannot block the persistent path.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

type Redis struct {
	client *redis.Client
}

func New(addr, password string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Redis{client: client}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Sugar.Warnf("Cache get %s failed, falling back to store: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Sugar.Warnf("Cache set %s failed: %v", key, err)
	}
}

// Delete removes the given keys. Deleting an absent key is a no-op. A failed
// delete is a correctness risk (a stale entry may live until its TTL), so it
// is logged loudly, but the already-persisted mutation still stands.
func (c *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Sugar.Warnf("Cache invalidation failed for %v, stale entries may persist until TTL: %v", keys, err)
	}
}

func (c *Redis) Close() error { return c.client.Close() }

// DocumentKey is the cache key for a single document snapshot.
func DocumentKey(docID string) string { return "document:" + docID }

// ListKey is the cache key for one principal's document list.
func ListKey(principal string) string { return "documents:" + principal }
