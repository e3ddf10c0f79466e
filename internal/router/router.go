package router

import (
	"strconv"
	"time"

	"github.com/buzznfinds/internal/handler"
	"github.com/buzznfinds/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options 描述路由层的可配置项。
type Options struct {
	Prefix      string
	CORSOrigins []string
	StaticDir   string
	Metrics     *service.Metrics
	// Gatherer 为 nil 时不暴露 /metrics。
	Gatherer prometheus.Gatherer
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(metricsMiddleware(opts.Metrics))
	r.Use(api.LocaleMiddleware())

	r.GET("/health", api.HealthCheck)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	base := r.Group(opts.Prefix)
	if opts.StaticDir != "" {
		base.Static("/public", opts.StaticDir)
	}
	base.GET("/sitemap.txt", api.GetSitemap)
	if opts.Prefix != "" {
		// 根路径别名
		r.GET("/sitemap.txt", api.GetSitemap)
	}
	base.GET("/jobs/:id", api.GetJob)
	base.GET("/analytics/overview", api.AnalyticsOverview)

	auth := api.RequireAuth()

	blog := base.Group("/blog")
	{
		blog.POST("/generateBlog", auth, api.GenerateBlog)
		blog.POST("", auth, api.CreateBlog)
		blog.GET("", api.GetBlogs)
		blog.GET("/latest", api.GetLatestBlogs)
		blog.GET("/:slug", api.GetBlogBySlug)
		blog.PUT("/:id", auth, api.UpdateBlog)
		blog.DELETE("/:id", auth, api.DeleteBlog)
	}

	category := base.Group("/category")
	{
		category.GET("", api.GetCategories)
		category.GET("/:slug", api.GetCategoryBySlug)
		category.POST("", auth, api.CreateCategory)
		category.PUT("/:id", auth, api.UpdateCategory)
		category.DELETE("/:id", auth, api.DeleteCategory)
	}

	subcategory := base.Group("/subcategory")
	{
		subcategory.GET("", api.GetSubCategories)
		subcategory.GET("/:slug", api.GetSubCategoryBySlug)
		subcategory.POST("", auth, api.CreateSubCategory)
		subcategory.PUT("/:id", auth, api.UpdateSubCategory)
		subcategory.DELETE("/:id", auth, api.DeleteSubCategory)
	}

	tag := base.Group("/tag")
	{
		tag.GET("", api.GetTags)
		tag.GET("/:slug", api.GetTagBySlug)
		tag.POST("", auth, api.CreateTag)
		tag.PUT("/:id", auth, api.UpdateTag)
		tag.DELETE("/:id", auth, api.DeleteTag)
	}

	base.POST("/upload", auth, api.UploadImage)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "Accept-Language"},
		ExposeHeaders: []string{"Content-Length", "Content-Language"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// metricsMiddleware 按路由模板记录请求耗时，未匹配的路由记为 unmatched。
func metricsMiddleware(metrics *service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(path, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
