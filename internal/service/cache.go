package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Cache 缓存读接口的 JSON 响应，任何写操作之后整体失效。
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any)
	Flush(ctx context.Context)
}

func CacheKeyBlog(slug, language string) string {
	return "blog:" + slug + ":" + language
}

func CacheKeyLatest(page, limit int, language string) string {
	return fmt.Sprintf("latest:%d:%d:%s", page, limit, language)
}

// MemoryCache 基于 go-cache 的进程内缓存。
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) bool {
	raw, ok := c.store.Get(key)
	if !ok {
		return false
	}
	data, ok := raw.([]byte)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.store.Set(key, data, gocache.DefaultExpiration)
}

func (c *MemoryCache) Flush(context.Context) {
	c.store.Flush()
}

// RedisCache 在多实例部署时共享缓存，键统一加前缀以便批量清理。
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[CACHE] redis get %s failed: %v", key, err)
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] redis set %s failed: %v", key, err)
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			log.Printf("[CACHE] redis scan failed: %v", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Printf("[CACHE] redis del failed: %v", err)
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// NoopCache 不缓存任何内容。
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) bool { return false }
func (NoopCache) Set(context.Context, string, any)      {}
func (NoopCache) Flush(context.Context)                 {}
