// Package cache is the short-lived memoization layer in front of the clinic
// backend: fetched collections are kept in Redis for a small TTL and
// invalidated explicitly when a write operation succeeds. The engine works
// identically with a nil cache; a miss just means fetch.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicboard/clinicboard/pkg/logging"
)

const keyPrefix = "clinicboard:snapshot:"

// SnapshotCache stores JSON-encoded collections keyed by resource key.
type SnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// Config configures the snapshot cache.
type Config struct {
	Addr     string
	Password string
	TLS      bool
	TTL      time.Duration
	Logger   *logging.Logger
}

// New connects a snapshot cache. Returns nil (and no error) when no address
// is configured, which disables caching entirely.
func New(cfg Config) (*SnapshotCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotCache{
		rdb:    redis.NewClient(opts),
		ttl:    ttl,
		logger: logger.Component("cache"),
	}, nil
}

// NewWithClient wraps an existing redis client, used by tests with miniredis.
func NewWithClient(rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *SnapshotCache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, logger: logger.Component("cache")}
}

// Get loads a cached collection into out. Returns false on miss or any cache
// failure; a broken cache must never break a fetch.
func (c *SnapshotCache) Get(ctx context.Context, key string, out any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		c.rdb.Del(ctx, keyPrefix+key)
		return false
	}
	return true
}

// Set stores a collection under the resource key with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops the given resource keys, called after a successful write
// operation so the next fetch observes the mutation.
func (c *SnapshotCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", "keys", fmt.Sprint(keys), "error", err)
	}
}
