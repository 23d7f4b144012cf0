// Package cache wraps go-redis with the typed get/set helpers and key
// naming the pipeline uses for fingerprints, alerts, and closing lines.
// Cache failures never propagate as fatal errors to callers: every method
// logs and returns a zero value/no-op on Redis errors, since a cache miss
// should degrade the pipeline (recompute from scratch) rather than break it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

// TTLs for the object families the pipeline caches.
const (
	FingerprintTTL = 6 * time.Hour
	ClosingLineTTL = 8 * time.Hour
	ConfidenceTTL  = 6 * time.Hour
)

// Cache is a thin typed wrapper around a go-redis client.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

// New connects to Redis using cfg. It does not block on a ping; callers
// check connectivity via Ping if they want a fail-fast startup.
func New(cfg config.CacheConfig, log zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, log: log.With().Str("subsystem", "cache").Logger()}
}

// Ping verifies connectivity at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// FingerprintKey builds the cache key for a market fingerprint, keyed by
// cacheKey (see models.MarketFingerprint.CacheKey).
func FingerprintKey(cacheKey string) string {
	return fmt.Sprintf("fingerprint:%s", cacheKey)
}

// DedupeKey builds the cache key used for alert dedup/cooldown state.
func DedupeKey(dedupeKey string) string {
	return fmt.Sprintf("alert:dedupe:%s", dedupeKey)
}

// ClosingLineKey builds the cache key for a pending closing-line capture.
func ClosingLineKey(eventID, marketKey string) string {
	return fmt.Sprintf("closingline:%s:%s", eventID, marketKey)
}

// ConfidenceKey builds the cache key for a market's last-computed
// ConfidenceScore, keyed by marketKey (see models.MarketFingerprint.MarketKey).
func ConfidenceKey(marketKey string) string {
	return fmt.Sprintf("confidence:%s", marketKey)
}

// SetJSON marshals v and stores it with the given TTL. Errors are logged and
// swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("marshal cache value")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// GetJSON unmarshals the value stored at key into dest. It returns false if
// the key is missing or Redis is unavailable, never an error the caller must
// handle.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("unmarshal cache value")
		return false
	}
	return true
}

// SetNX sets key only if absent, returning whether this call won the write —
// used for dedupe/cooldown gating.
func (c *Cache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) bool {
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache setnx failed")
		return false
	}
	return ok
}

// Exists reports whether key is present.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache exists failed")
		return false
	}
	return n > 0
}

// SetConfidence caches the last-computed ConfidenceScore for marketKey.
func (c *Cache) SetConfidence(ctx context.Context, marketKey string, score models.ConfidenceScore) {
	c.SetJSON(ctx, ConfidenceKey(marketKey), score, ConfidenceTTL)
}

// Confidence returns the cached ConfidenceScore for marketKey, if present.
func (c *Cache) Confidence(ctx context.Context, marketKey string) (models.ConfidenceScore, bool) {
	var score models.ConfidenceScore
	ok := c.GetJSON(ctx, ConfidenceKey(marketKey), &score)
	return score, ok
}

// Delete removes one or more keys, used to invalidate a closing-line capture
// once the history writer has durably persisted it.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}
