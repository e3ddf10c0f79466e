package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buzznfinds/internal/config"
	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/handler"
	"github.com/buzznfinds/internal/router"
	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL, nil)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	cache := service.NewCacheFromConfig(context.Background(), cfg)
	sanitizer := service.NewContentSanitizer()
	sitemap := service.NewSitemapWriter(cfg.SitemapPath)
	notifier := service.NewMailNotifier(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.To)

	writer := service.NewAIBlogWriter(service.AIOptionsFromConfig(cfg.AI, false), metrics)
	translator := service.NewAITranslator(service.AIOptionsFromConfig(cfg.AI, true), metrics)

	translations := service.NewTranslationService(gdb, translator, service.TranslationOptions{
		Attempts:  cfg.TranslationAttempts,
		Sanitizer: sanitizer,
		Sitemap:   sitemap,
		Cache:     cache,
		Metrics:   metrics,
		Links:     cfg.BlogURL,
	})

	genOpts := service.GenerationOptions{
		Languages:          cfg.TranslationLanguages,
		SlugAIAttempts:     cfg.SlugAIAttempts,
		SlugSuffixAttempts: cfg.SlugSuffixAttempts,
		Sanitizer:          sanitizer,
		Sitemap:            sitemap,
		Notifier:           notifier,
		Cache:              cache,
		Metrics:            metrics,
		Links:              cfg.BlogURL,
	}
	if cfg.UnsplashAccessKey != "" {
		genOpts.Images = service.NewUnsplashImageFinder(cfg.UnsplashAccessKey)
	}
	generator := service.NewGenerationService(gdb, writer, translations, genOpts)

	jobs := service.NewJobQueue(gdb, cfg.GenerationDelay, cfg.JobMaxAttempts)
	runner := service.NewJobRunner(jobs, generator, cfg.JobPollInterval, metrics)
	if err := runner.Start(context.Background()); err != nil {
		log.Fatalf("failed to start job runner: %v", err)
	}
	defer runner.Stop()

	api := handler.NewAPI(gdb, handler.Dependencies{
		AuthKey: cfg.AuthKey,
		Blogs: service.NewBlogService(gdb, service.BlogOptions{
			Sanitizer: sanitizer,
			Sitemap:   sitemap,
			Cache:     cache,
			Links:     cfg.BlogURL,
		}),
		Categories:    service.NewCategoryService(gdb, cache),
		SubCategories: service.NewSubCategoryService(gdb, cache),
		Tags:          service.NewTagService(gdb, cache),
		Jobs:          jobs,
		Analytics:     service.NewAnalyticsService(gdb),
		Cache:         cache,
		SitemapPath:   cfg.SitemapPath,
		UploadDir:     cfg.UploadDir,
		UploadURL:     cfg.UploadURLPath,
	})

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, router.Options{
		Prefix:      cfg.APIPrefix,
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticFilesPath,
		Metrics:     metrics,
		Gatherer:    registry,
	})

	if cfg.AuthKey == "" {
		log.Printf("[CONFIG] AUTH_KEY is not set, all write endpoints will reject requests")
	}
	if err := serve(cfg.ListenAddr, r); err != nil {
		log.Printf("server stopped with error: %v", err)
		runner.Stop()
		os.Exit(1)
	}
}

// serve 监听 SIGINT/SIGTERM 并在 30 秒内优雅退出。
func serve(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownError := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		log.Printf("shutting down server (%s)", s)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownError <- srv.Shutdown(ctx)
	}()

	log.Printf("starting server on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownError; err != nil {
		return err
	}
	log.Printf("stopped server on %s", addr)
	return nil
}

