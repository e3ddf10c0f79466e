package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr string
	Port       string
	GinMode    string
	APIPrefix  string
	AuthKey    string

	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string

	ClientURL       string
	BlogPath        string
	SitemapPath     string
	StaticFilesPath string
	UploadDir       string
	UploadURLPath   string
	CORSOrigins     []string

	AI AIConfig

	TranslationLanguages []string
	TranslationAttempts  int
	SlugAIAttempts       int
	SlugSuffixAttempts   int

	GenerationDelay time.Duration
	JobPollInterval time.Duration
	JobMaxAttempts  int

	Redis    RedisConfig
	CacheTTL time.Duration

	Mail MailConfig

	UnsplashAccessKey string
}

// AIConfig 描述大模型供应商相关配置。
type AIConfig struct {
	Provider         string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	TranslationModel string
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiModel      string
	StructuredOutput bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MailConfig 为空 Host 时不发送通知邮件。
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 当前目录存在 .env 时先加载它，已存在的环境变量不会被覆盖。
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[CONFIG] failed to load .env: %v", err)
	}

	port := env("PORT", "8080")

	return AppConfig{
		ListenAddr: env("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:       port,
		GinMode:    env("GIN_MODE", "release"),
		APIPrefix:  normalizePrefix(env("API_PREFIX", "/framework")),
		AuthKey:    env("AUTH_KEY", ""),

		DatabaseDriver: strings.ToLower(env("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   env("DATABASE_PATH", "buzznfinds.db"),
		DatabaseURL:    env("DATABASE_URL", ""),

		ClientURL:       strings.TrimRight(env("CLIENT_URL", "http://localhost:3000"), "/"),
		BlogPath:        strings.Trim(env("BLOG_PATH", "blog"), "/"),
		SitemapPath:     env("SITEMAP_PATH", "public/sitemap.txt"),
		StaticFilesPath: env("STATIC_FILES_PATH", "public"),
		UploadDir:       env("UPLOAD_DIR", "public/uploads"),
		UploadURLPath:   env("UPLOAD_URL_PATH", "/framework/public/uploads"),
		CORSOrigins:     envList("CORS_ORIGINS", []string{"*"}),

		AI: AIConfig{
			Provider:         strings.ToLower(env("AI_PROVIDER", "openai")),
			OpenAIAPIKey:     env("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    env("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:      env("OPENAI_MODEL", "gpt-4o"),
			TranslationModel: env("OPENAI_TRANSLATION_MODEL", "gpt-4o-mini"),
			GeminiAPIKey:     env("GEMINI_API_KEY", ""),
			GeminiBaseURL:    env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			GeminiModel:      env("GEMINI_MODEL", "gemini-1.5-flash"),
			StructuredOutput: envBool("AI_STRUCTURED_OUTPUT", false),
		},

		TranslationLanguages: envList("TRANSLATION_LANGUAGES", []string{"es", "fr", "de", "ar", "ja"}),
		TranslationAttempts:  envInt("TRANSLATION_ATTEMPTS", 3),
		SlugAIAttempts:       envInt("SLUG_AI_ATTEMPTS", 3),
		SlugSuffixAttempts:   envInt("SLUG_SUFFIX_ATTEMPTS", 50),

		GenerationDelay: envDuration("GENERATION_DELAY", 0),
		JobPollInterval: envDuration("JOB_POLL_INTERVAL", 10*time.Second),
		JobMaxAttempts:  envInt("JOB_MAX_ATTEMPTS", 1),

		Redis: RedisConfig{
			Enabled:  envBool("REDIS_ENABLED", false),
			Addr:     env("REDIS_ADDR", "localhost:6379"),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		CacheTTL: envDuration("CACHE_TTL", 5*time.Minute),

		Mail: MailConfig{
			Host:     env("MAIL_HOST", ""),
			Port:     envInt("MAIL_PORT", 587),
			User:     env("MAIL_USER", ""),
			Password: env("MAIL_PASSWORD", ""),
			From:     env("MAIL_FROM", ""),
			To:       env("MAIL_TO", ""),
		},

		UnsplashAccessKey: env("UNSPLASH_ACCESS_KEY", ""),
	}
}

// BlogURL 返回文章在前端的访问地址，language 为空时不带语言段。
func (c AppConfig) BlogURL(language, slug string) string {
	if language == "" {
		return fmt.Sprintf("%s/%s/%s", c.ClientURL, c.BlogPath, slug)
	}
	return fmt.Sprintf("%s/%s/%s/%s", c.ClientURL, language, c.BlogPath, slug)
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		log.Printf("[CONFIG] invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q, using %t", key, raw, fallback)
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		log.Printf("[CONFIG] invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return value
}

func envList(key string, fallback []string) []string {
	raw := env(key, "")
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func normalizePrefix(prefix string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}
