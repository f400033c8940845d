// Package cache stores query results in Redis under invalidation tags.
//
// Each tag has a generation counter and an entry's key embeds the current
// generation of every tag it depends on. A mutation calls Invalidate with the
// tags it touched, which bumps their generations; older entries are never
// read again and age out with their TTL. Concurrent misses for the same key
// share one load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	redisclient "github.com/angelmondragon/cookerz-backend/pkg/redis"
)

// Store is the Redis surface the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(namespace, key string) string
	CacheTagKey(namespace, tag string) string
}

// Observer receives hit/miss notifications. *metrics.RealtimeMetrics satisfies it.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// Invalidator is what mutating services depend on.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

type Cache struct {
	store     Store
	namespace string
	ttl       time.Duration
	logg      *logger.Logger
	obs       Observer
	group     singleflight.Group
}

func New(store Store, cfg config.CacheConfig, logg *logger.Logger, obs Observer) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cache store required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	return &Cache{
		store:     store,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
		logg:      logg,
		obs:       obs,
	}, nil
}

// Load returns the cached value for key, or calls load, stores the result
// under tags and returns it. Redis failures degrade to calling load directly.
func Load[T any](ctx context.Context, c *Cache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	var zero T
	entryKey, err := c.entryKey(ctx, key, tags)
	if err != nil {
		c.warn(ctx, "cache.generation_failed", key)
		c.miss()
		return load(ctx)
	}

	if raw, err := c.store.Get(ctx, entryKey); err == nil {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			c.hit()
			return cached, nil
		}
		c.warn(ctx, "cache.decode_failed", key)
	} else if !redisclient.IsNil(err) {
		c.warn(ctx, "cache.get_failed", key)
	}
	c.miss()

	value, err, _ := c.group.Do(entryKey, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.write(ctx, entryKey, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// entryKey reads the tag generations before any load so a result computed
// from data that an Invalidate has since replaced lands under a stale key.
func (c *Cache) entryKey(ctx context.Context, key string, tags []string) (string, error) {
	base := c.store.CacheKey(c.namespace, key)
	if len(tags) == 0 {
		return base, nil
	}
	gens := make([]string, 0, len(tags))
	for _, tag := range tags {
		raw, err := c.store.Get(ctx, c.store.CacheTagKey(c.namespace, tag))
		switch {
		case redisclient.IsNil(err):
			raw = "0"
		case err != nil:
			return "", err
		}
		gens = append(gens, raw)
	}
	return base + ":g" + strings.Join(gens, "."), nil
}

func (c *Cache) write(ctx context.Context, entryKey, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "cache.encode_failed", key)
		return
	}
	if err := c.store.Set(ctx, entryKey, string(encoded), c.ttl); err != nil {
		c.warn(ctx, "cache.set_failed", key)
	}
}

// Invalidate retires every entry carrying any of tags.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	if c == nil {
		return nil
	}
	for _, tag := range tags {
		if _, err := c.store.Incr(ctx, c.store.CacheTagKey(c.namespace, tag)); err != nil {
			return fmt.Errorf("invalidate cache tag %s: %w", tag, err)
		}
	}
	return nil
}

func (c *Cache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}

func (c *Cache) warn(ctx context.Context, msg, key string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "cache_key", key), msg)
}

// Tag helpers shared by readers and writers.

const TagSettings = "settings"

func TagMenu(cookerID string) string {
	return "menu_items:cooker:" + cookerID
}

func TagReviews(cookerID string) string {
	return "reviews:cooker:" + cookerID
}
