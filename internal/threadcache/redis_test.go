package threadcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	cache, err := NewRedis(context.Background(), "redis://"+server.Addr()+"/0", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return cache, server
}

func sampleListing() *models.ThreadListing {
	return &models.ThreadListing{
		ThreadID: "chapter-1",
		Comments: []models.ThreadComment{
			{
				CommentEntry: models.CommentEntry{
					ID:        "c1",
					ThreadID:  "chapter-1",
					Text:      "first",
					CreatedAt: "2026-01-01T00:00:00.000Z",
				},
				Username: "alice",
			},
		},
	}
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, time.Minute)

	_, ok, err := cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, sampleListing(), 0))
	assert.True(t, server.Exists("thesiscomments:thread:chapter-1"))

	got, ok, err := cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleListing(), got)

	require.NoError(t, cache.Invalidate(ctx, "chapter-1"))
	_, ok, err = cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, 30*time.Second)

	require.NoError(t, cache.Set(ctx, sampleListing(), 0))
	server.FastForward(31 * time.Second)

	_, ok, err := cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	cache, server := newTestCache(t, time.Minute)
	require.NoError(t, server.Set("thesiscomments:thread:chapter-1", "{broken"))

	_, ok, err := cache.Get(context.Background(), "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://not-redis", time.Minute)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var cache Cache = Noop{}

	generation, err := cache.Generation(ctx, "chapter-1")
	require.NoError(t, err)
	assert.Zero(t, generation)
	require.NoError(t, cache.Set(ctx, sampleListing(), generation))
	_, ok, err := cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx, "chapter-1"))
	assert.NoError(t, cache.Close())
}

func TestRedisCacheSkipsListingScannedBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, time.Minute)

	generation, err := cache.Generation(ctx, "chapter-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), generation)

	// A write lands while the scan that read generation is still running.
	require.NoError(t, cache.Invalidate(ctx, "chapter-1"))

	require.NoError(t, cache.Set(ctx, sampleListing(), generation))
	assert.False(t, server.Exists("thesiscomments:thread:chapter-1"))
	_, ok, err := cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.False(t, ok)

	current, err := cache.Generation(ctx, "chapter-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	require.NoError(t, cache.Set(ctx, sampleListing(), current))
	_, ok, err = cache.Get(ctx, "chapter-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCacheInvalidateDropsEntryAndBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t, time.Minute)

	require.NoError(t, cache.Set(ctx, sampleListing(), 0))
	require.NoError(t, cache.Invalidate(ctx, "chapter-1"))
	require.NoError(t, cache.Invalidate(ctx, "chapter-1"))

	assert.False(t, server.Exists("thesiscomments:thread:chapter-1"))
	value, err := server.Get("thesiscomments:thread-gen:chapter-1")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
	assert.Greater(t, server.TTL("thesiscomments:thread-gen:chapter-1"), time.Minute)
}
