package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// HealthCheck 提供负载均衡与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

// AnalyticsOverview 返回总浏览量与热门文章。
func (a *API) AnalyticsOverview(c *gin.Context) {
	overview, err := a.analytics.Overview(queryInt(c, "limit", 5))
	if err != nil {
		respondInternal(c, "analytics overview", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetSitemap 以纯文本返回 sitemap 文件，每行一个 URL。
func (a *API) GetSitemap(c *gin.Context) {
	if a.sitemapPath == "" {
		respondError(c, http.StatusNotFound, "Sitemap not found")
		return
	}
	info, err := os.Stat(a.sitemapPath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			respondInternal(c, "stat sitemap", err)
			return
		}
		respondError(c, http.StatusNotFound, "Sitemap not found")
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.File(a.sitemapPath)
}
