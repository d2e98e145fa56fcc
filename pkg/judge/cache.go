package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultVerdictTTL keeps cached verdicts for a day; prompts embed the full
// material under judgment, so staleness only matters across model updates.
const defaultVerdictTTL = 24 * time.Hour

// Cache stores judge verdicts keyed by a digest of provider, model, and
// prompt. Implementations must be safe for concurrent use; misses and
// backend failures are indistinguishable to callers.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// verdictKey derives the cache key for one judgment. Two providers or two
// models never share an entry.
func verdictKey(provider, model, system, prompt string) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	digest := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("judge:%s:%s:%s", provider, model, digest)
}

// MemoryCache is a process-local verdict cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get returns the cached verdict for the key, if any.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores a verdict under the key.
func (c *MemoryCache) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len returns the number of cached verdicts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache backs the verdict cache with Redis, sharing judgments across
// processes. Backend failures degrade gracefully: reads become misses and
// writes are dropped, with a warning either way.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps an existing Redis client. A non-positive TTL selects
// the default; a nil logger selects slog's default.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultVerdictTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "verdict-cache"),
	}
}

// Get returns the cached verdict for the key. Backend errors are logged and
// reported as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("verdict cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

// Set stores a verdict under the key with the configured TTL. Backend
// errors are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("verdict cache write failed", "key", key, "error", err)
	}
}
