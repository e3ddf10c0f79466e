package handler

import (
	"strings"

	"github.com/buzznfinds/internal/locale"
	"github.com/gin-gonic/gin"
)

const localeContextKey = "__request_locale"

// LocaleMiddleware resolves the request language and sets headers for downstream caching.
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Language", requestLanguage(c))
		appendVaryHeader(c, "Accept-Language")
		c.Next()
	}
}

// requestLanguage 依次使用 ?lang=、Accept-Language，最后回退到英文。
func requestLanguage(c *gin.Context) string {
	if cached, exists := c.Get(localeContextKey); exists {
		if language, ok := cached.(string); ok {
			return language
		}
	}
	language := locale.Resolve(c.Query("lang"), c.GetHeader("Accept-Language"))
	c.Set(localeContextKey, language)
	return language
}

func appendVaryHeader(c *gin.Context, values ...string) {
	existing := c.Writer.Header().Values("Vary")
	seen := make(map[string]struct{}, len(existing)+len(values))
	var merged []string
	for _, header := range existing {
		for _, part := range strings.Split(header, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := strings.ToLower(part)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, part)
		}
	}
	for _, value := range values {
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, value)
	}
	c.Header("Vary", strings.Join(merged, ", "))
}
