package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/buzznfinds/internal/config"
	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/service"
)

// 为已有文章补齐缺失语言的翻译，AI 与数据库配置沿用服务端的环境变量。
func main() {
	cfg := config.Load()

	var dbPath string
	var langs string
	flag.StringVar(&dbPath, "db", cfg.DatabasePath, "sqlite db path (ignored for postgres)")
	flag.StringVar(&langs, "langs", strings.Join(cfg.TranslationLanguages, ","), "comma-separated languages to backfill (e.g. es,fr)")
	flag.Parse()

	gdb, err := db.Open(cfg.DatabaseDriver, dbPath, cfg.DatabaseURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init db: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 服务端启用 Redis 时需要清掉已缓存的文章响应
	var cache service.Cache
	if redisCache := service.NewRedisCacheFromConfig(ctx, cfg); redisCache != nil {
		cache = redisCache
	}

	translations := service.NewTranslationService(gdb, service.NewAITranslator(service.AIOptionsFromConfig(cfg.AI, true), nil), service.TranslationOptions{
		Attempts:  cfg.TranslationAttempts,
		Sanitizer: service.NewContentSanitizer(),
		Sitemap:   service.NewSitemapWriter(cfg.SitemapPath),
		Cache:     cache,
		Links:     cfg.BlogURL,
	})

	created, err := translations.Backfill(ctx, splitCSV(langs))
	fmt.Printf("done: created %d blog translations\n", created)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill translations: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(value string) []string {
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
