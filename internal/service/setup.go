package service

import (
	"context"
	"log"
	"time"

	"github.com/buzznfinds/internal/config"
	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "buzznfinds:"

// AIOptionsFromConfig 按供应商选择密钥与模型；translation 为 true 时 OpenAI 优先使用翻译模型。
func AIOptionsFromConfig(cfg config.AIConfig, translation bool) AIOptions {
	if cfg.Provider == AIProviderGemini {
		return AIOptions{
			Provider:   AIProviderGemini,
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			Structured: cfg.StructuredOutput,
		}
	}
	model := cfg.OpenAIModel
	if translation && cfg.TranslationModel != "" {
		model = cfg.TranslationModel
	}
	return AIOptions{
		Provider:   AIProviderOpenAI,
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      model,
		Structured: cfg.StructuredOutput,
	}
}

// NewRedisCacheFromConfig 连接 Redis 并 PING 一次，未启用或不可达时返回 nil。
func NewRedisCacheFromConfig(ctx context.Context, cfg config.AppConfig) *RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[CACHE] redis %s unavailable: %v", cfg.Redis.Addr, err)
		client.Close()
		return nil
	}
	log.Printf("[CACHE] using redis at %s", cfg.Redis.Addr)
	return NewRedisCache(client, redisKeyPrefix, cfg.CacheTTL)
}

// NewCacheFromConfig 在 Redis 可用时使用 Redis，否则退回进程内缓存。
func NewCacheFromConfig(ctx context.Context, cfg config.AppConfig) Cache {
	if cache := NewRedisCacheFromConfig(ctx, cfg); cache != nil {
		return cache
	}
	return NewMemoryCache(cfg.CacheTTL)
}
