package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "catalog:"

// Cache keeps successful, non-empty results in Redis. A Redis outage only
// costs the cache: lookups fall through to the wrapped source.
type Cache struct {
	next Source
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCache(next Source, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cache) Name() string { return c.next.Name() }

func (c *Cache) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	key := fmt.Sprintf("%ssearch:%s:%d:%s", cacheKeyPrefix, c.next.Name(), limit, strings.ToLower(strings.TrimSpace(query)))
	return c.cached(ctx, key, func() ([]Track, error) {
		return c.next.Search(ctx, query, limit)
	})
}

func (c *Cache) Trending(ctx context.Context, limit int) ([]Track, error) {
	key := fmt.Sprintf("%strending:%s:%d", cacheKeyPrefix, c.next.Name(), limit)
	return c.cached(ctx, key, func() ([]Track, error) {
		return c.next.Trending(ctx, limit)
	})
}

func (c *Cache) cached(ctx context.Context, key string, load func() ([]Track, error)) ([]Track, error) {
	logger := log.WithFields(log.Fields{"component": "catalog", "key": key})

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var tracks []Track
			if err := json.Unmarshal(raw, &tracks); err == nil {
				return tracks, nil
			}
			logger.Warn("discarding malformed cache entry")
		case err != redis.Nil:
			logger.Warnf("cache read: %v", err)
		}
	}

	tracks, err := load()
	if err != nil || len(tracks) == 0 || c.rdb == nil {
		return tracks, err
	}

	data, err := json.Marshal(tracks)
	if err != nil {
		logger.Warnf("cache encode: %v", err)
		return tracks, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warnf("cache write: %v", err)
	}
	return tracks, nil
}
