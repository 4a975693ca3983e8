package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"bizlist-scraper/utils"
)

const pagePrefix = "bizlist:page:v1:"

// PageCache stores fetched page bodies. Get returns nil, nil on a miss.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, body []byte) error
}

// PageKey returns the cache key for a fetch of target with opts.
func PageKey(target string, opts Options) string {
	raw := fmt.Sprintf("%s|render=%v|cc=%s", utils.NormalizeURL(target), opts.Render, opts.CountryCode)
	h := sha256.Sum256([]byte(raw))
	return pagePrefix + fmt.Sprintf("%x", h)
}

// RedisCache is a PageCache backed by Redis with a fixed TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a RedisCache. addr example: "localhost:6379".
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.rdb.Close() }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, body []byte) error {
	return c.rdb.Set(ctx, key, body, c.ttl).Err()
}

// CachedFetcher serves repeated fetches from a PageCache so overlapping runs
// do not pay for the same proxy request twice. Cache errors are logged and
// never fail a fetch.
type CachedFetcher struct {
	next   Fetcher
	cache  PageCache
	logger *utils.Logger
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next Fetcher, cache PageCache, logger *utils.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, logger: logger}
}

func (c *CachedFetcher) Fetch(ctx context.Context, target string, opts Options) ([]byte, error) {
	key := PageKey(target, opts)

	body, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("[cache] get %s: %v", target, err)
	}
	if body != nil {
		c.logger.Debug("[cache] hit %s", target)
		return body, nil
	}

	body, err = c.next.Fetch(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.logger.Warn("[cache] set %s: %v", target, err)
	}
	return body, nil
}
