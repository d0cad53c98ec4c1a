package core

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys used by the API.
const (
	UploadSequenceKey     = "blog:upload:seq"
	PostListCacheKey      = "blog:posts:summaries"
	PostListGenerationKey = "blog:posts:gen"
)

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisSequencer is a Sequencer shared by every API process pointing at the same redis.
type RedisSequencer struct {
	client redis.Cmdable
	key    string
}

func NewRedisSequencer(client redis.Cmdable) *RedisSequencer {
	return &RedisSequencer{client: client, key: UploadSequenceKey}
}

// Next increments the counter atomically (INCR).
func (s *RedisSequencer) Next(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, s.key).Result()
}

// ListCache caches the projected post list under a generation.
// A fill computed before an invalidation lands on the old generation and is never read again.
type ListCache interface {
	// Generation returns the current generation; read it before loading posts from the store.
	Generation(ctx context.Context) (int64, error)
	// Get returns ok=false on a miss.
	Get(ctx context.Context, gen int64) ([]PostSummary, bool, error)
	Set(ctx context.Context, gen int64, items []PostSummary) error
	// Invalidate advances the generation.
	Invalidate(ctx context.Context) error
}

// RedisListCache stores each generation's list as one JSON value with a TTL.
type RedisListCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisListCache(client redis.Cmdable, ttl time.Duration) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl}
}

func postListKey(gen int64) string {
	return PostListCacheKey + ":" + strconv.FormatInt(gen, 10)
}

func (c *RedisListCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, PostListGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisListCache) Get(ctx context.Context, gen int64) ([]PostSummary, bool, error) {
	val, err := c.client.Get(ctx, postListKey(gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var items []PostSummary
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (c *RedisListCache) Set(ctx context.Context, gen int64, items []PostSummary) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, postListKey(gen), b, c.ttl).Err()
}

func (c *RedisListCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, PostListGenerationKey).Err()
}

// noopListCache is used when redis is not configured.
type noopListCache struct{}

func (noopListCache) Generation(context.Context) (int64, error)               { return 0, nil }
func (noopListCache) Get(context.Context, int64) ([]PostSummary, bool, error) { return nil, false, nil }
func (noopListCache) Set(context.Context, int64, []PostSummary) error         { return nil }
func (noopListCache) Invalidate(context.Context) error                        { return nil }
