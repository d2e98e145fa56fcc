package judge

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictKey(t *testing.T) {
	base := verdictKey("openai", "gpt-4o-mini", "system", "prompt")

	assert.Equal(t, base, verdictKey("openai", "gpt-4o-mini", "system", "prompt"))
	assert.NotEqual(t, base, verdictKey("anthropic", "gpt-4o-mini", "system", "prompt"))
	assert.NotEqual(t, base, verdictKey("openai", "gpt-4o", "system", "prompt"))
	assert.NotEqual(t, base, verdictKey("openai", "gpt-4o-mini", "system", "other prompt"))

	// The digest must keep the system/user boundary: shifting bytes across
	// it yields a different key.
	assert.NotEqual(t,
		verdictKey("openai", "m", "ab", "c"),
		verdictKey("openai", "m", "a", "bc"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok := cache.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	cache.Set(ctx, "k1", "verdict one")
	cache.Set(ctx, "k2", "verdict two")
	cache.Set(ctx, "k1", "verdict one revised")

	got, ok := cache.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "verdict one revised", got)
	assert.Equal(t, 2, cache.Len())
}

// An unreachable Redis backend must degrade to cache misses and dropped
// writes rather than surfacing errors to the judge.
func TestRedisCache_DegradesOnBackendFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewRedisCache(client, 0, logger)
	assert.Equal(t, defaultVerdictTTL, cache.ttl)

	ctx := context.Background()
	_, ok := cache.Get(ctx, "judge:test:m:deadbeef")
	assert.False(t, ok)

	// Must not panic or block beyond the dial timeout.
	cache.Set(ctx, "judge:test:m:deadbeef", "verdict")
}
