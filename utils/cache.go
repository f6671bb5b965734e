package utils

import (
	"bytes"
	"context"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
	minLocalBytes   = 512 * 1024
)

// Cache is a read-through helper with an in-process freecache layer in front
// of an optional Redis layer. A nil *Cache is valid and never hits.
type Cache struct {
	local   *freecache.Cache
	remote  *redis.Client
	ttl     time.Duration
	metrics Metrics
}

// NewCache builds a Cache. localMB <= 0 disables the in-process layer and a
// nil remote disables Redis.
func NewCache(localMB int, remote *redis.Client, ttl time.Duration, m Metrics) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if m == nil {
		m = NopMetrics{}
	}
	c := &Cache{remote: remote, ttl: ttl, metrics: m}
	if localMB > 0 {
		c.local = freecache.NewCache(max(localMB*1024*1024, minLocalBytes))
	}
	return c
}

// GetBytes returns cached bytes for key, checking the local layer first.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	if c.local != nil {
		if b, err := c.local.Get([]byte(key)); err == nil {
			c.metrics.IncCacheHits("local")
			return b, true
		}
	}
	if c.remote != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		b, err := c.remote.Get(ctx, key).Bytes()
		if err == nil {
			c.metrics.IncCacheHits("redis")
			c.setLocal(key, b)
			return b, true
		}
		if err != redis.Nil {
			Sugar.Debugf("cache get key=%s err=%v", key, err)
		}
	}
	c.metrics.IncCacheMisses()
	return nil, false
}

// GetJSON decodes a cached value into dst.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	b, ok := c.GetBytes(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		Sugar.Warnf("cache decode key=%s err=%v", key, err)
		return false
	}
	return true
}

// SetBytes stores b in every enabled layer.
func (c *Cache) SetBytes(ctx context.Context, key string, b []byte) {
	if c == nil {
		return
	}
	c.setLocal(key, b)
	if c.remote == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.remote.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// SetJSON marshals v and stores JSON bytes.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SetBytes(ctx, key, b)
}

// InvalidateByPrefix deletes keys that start with prefix from both layers.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) {
	if c == nil {
		return
	}
	if c.local != nil {
		var stale [][]byte
		it := c.local.NewIterator()
		for e := it.Next(); e != nil; e = it.Next() {
			if bytes.HasPrefix(e.Key, []byte(prefix)) {
				stale = append(stale, e.Key)
			}
		}
		for _, k := range stale {
			c.local.Del(k)
		}
	}
	if c.remote == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // bounded number of SCAN rounds
		keys, cur, err := c.remote.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache scan prefix=%s err=%v", prefix, err)
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.remote.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

func (c *Cache) setLocal(key string, b []byte) {
	if c.local == nil {
		return
	}
	secs := int(c.ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	_ = c.local.Set([]byte(key), b, secs)
}
