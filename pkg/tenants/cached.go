// pkg/tenants/cached.go
package tenants

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// registryCache is the minimal get/set surface the cached registry needs;
// redis-backed in production, faked in tests.
type registryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, raw []byte, ttl time.Duration)
}

type redisCache struct {
	rdb *redis.Client
	log *zap.SugaredLogger
}

func (r redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (r redisCache) Set(ctx context.Context, key string, raw []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.log.Warnw("registry cache write", "key", key, "err", err)
	}
}

// cachedRegistry fronts another Registry with a short-TTL cache. The pipeline
// tolerates slightly stale registry data; per-request state never enters this
// cache.
type cachedRegistry struct {
	inner Registry
	cache registryCache
	ttl   time.Duration
}

// NewCachedRegistry decorates inner with redis caching. A nil client returns
// inner unchanged.
func NewCachedRegistry(inner Registry, rdb *redis.Client, ttl time.Duration, log *zap.SugaredLogger) Registry {
	if rdb == nil {
		return inner
	}
	return newCachedRegistry(inner, redisCache{rdb: rdb, log: log}, ttl)
}

func newCachedRegistry(inner Registry, cache registryCache, ttl time.Duration) Registry {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &cachedRegistry{inner: inner, cache: cache, ttl: ttl}
}

func (c *cachedRegistry) AllHostnames(ctx context.Context) ([]string, error) {
	const key = "environments:hostnames"
	if raw, ok := c.cache.Get(ctx, key); ok {
		var hosts []string
		if json.Unmarshal(raw, &hosts) == nil {
			return hosts, nil
		}
	}
	hosts, err := c.inner.AllHostnames(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(hosts); err == nil {
		c.cache.Set(ctx, key, raw, c.ttl)
	}
	return hosts, nil
}

func (c *cachedRegistry) FindByHostname(ctx context.Context, host string) (Environment, error) {
	return c.cachedFind(ctx, "environments:host:"+host, func(ctx context.Context) (Environment, error) {
		return c.inner.FindByHostname(ctx, host)
	})
}

func (c *cachedRegistry) FindByID(ctx context.Context, id int64) (Environment, error) {
	return c.cachedFind(ctx, "environments:id:"+strconv.FormatInt(id, 10), func(ctx context.Context) (Environment, error) {
		return c.inner.FindByID(ctx, id)
	})
}

func (c *cachedRegistry) cachedFind(ctx context.Context, key string, load func(context.Context) (Environment, error)) (Environment, error) {
	if raw, ok := c.cache.Get(ctx, key); ok {
		var e Environment
		if json.Unmarshal(raw, &e) == nil && e.PrimaryDomain != "" {
			return e, nil
		}
	}
	e, err := load(ctx)
	if err != nil {
		// Misses are not cached: a just-registered domain must resolve promptly.
		return Environment{}, err
	}
	if raw, err := json.Marshal(e); err == nil {
		c.cache.Set(ctx, key, raw, c.ttl)
	}
	return e, nil
}
