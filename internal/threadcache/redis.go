package threadcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

const (
	keyPrefix           = "thesiscomments:thread:"
	generationKeyPrefix = "thesiscomments:thread-gen:"

	// generationTTL outlives any scan by far; an expired counter reads as 0
	// and only makes older generations fail the check.
	generationTTL = 24 * time.Hour

	connectTimeout = 5 * time.Second
)

// RedisCache keeps listings as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL (redis://[user:pass@]host:port/db) and
// checks the connection before returning.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("in internal/threadcache/redis.go/NewRedis(): error while `redis.ParseURL()` calling: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("in internal/threadcache/redis.go/NewRedis(): error while `client.Ping()` calling: %w", err)
	}

	logger.Log.Infow("thread cache connected", "addr", opts.Addr, "ttl", ttl)

	return NewRedisFromClient(client, ttl), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// setIfGeneration writes ARGV[2] to KEYS[2] with a PX of ARGV[3] only while
// the counter at KEYS[1] (missing = 0) equals ARGV[1].
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func key(threadID string) string {
	return keyPrefix + threadID
}

func generationKey(threadID string) string {
	return generationKeyPrefix + threadID
}

func (c *RedisCache) Generation(ctx context.Context, threadID string) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(threadID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation of thread %s: %w", threadID, err)
	}
	return generation, nil
}

func (c *RedisCache) Get(ctx context.Context, threadID string) (*models.ThreadListing, bool, error) {
	raw, err := c.client.Get(ctx, key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached thread %s: %w", threadID, err)
	}

	var listing models.ThreadListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		// A corrupted entry behaves like a miss and gets overwritten.
		logger.Log.Warnw("dropping undecodable cache entry", "thread_id", threadID, "error", err)
		return nil, false, nil
	}

	return &listing, true, nil
}

func (c *RedisCache) Set(ctx context.Context, listing *models.ThreadListing, generation int64) error {
	raw, err := json.Marshal(listing)
	if err != nil {
		return err
	}

	stored, err := setIfGeneration.Run(
		ctx,
		c.client,
		[]string{generationKey(listing.ThreadID), key(listing.ThreadID)},
		strconv.FormatInt(generation, 10),
		raw,
		c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("cache thread %s: %w", listing.ThreadID, err)
	}
	if stored == 0 {
		logger.Log.Debugw("listing is stale, not cached", "thread_id", listing.ThreadID, "generation", generation)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, threadID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(threadID))
		pipe.Expire(ctx, generationKey(threadID), generationTTL)
		pipe.Del(ctx, key(threadID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate thread %s: %w", threadID, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
