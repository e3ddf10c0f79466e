package handler

import (
	"github.com/buzznfinds/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	authKey       string
	blogs         *service.BlogService
	categories    *service.CategoryService
	subcategories *service.SubCategoryService
	tags          *service.TagService
	jobs          *service.JobQueue
	analytics     *service.AnalyticsService
	cache         service.Cache
	sitemapPath   string
	uploadDir     string
	uploadURL     string
}

// Dependencies 描述 NewAPI 的可选依赖，未提供的服务按默认配置基于 db 创建。
type Dependencies struct {
	AuthKey       string
	Blogs         *service.BlogService
	Categories    *service.CategoryService
	SubCategories *service.SubCategoryService
	Tags          *service.TagService
	Jobs          *service.JobQueue
	Analytics     *service.AnalyticsService
	Cache         service.Cache
	SitemapPath   string
	UploadDir     string
	UploadURL     string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, deps Dependencies) *API {
	cache := deps.Cache
	if cache == nil {
		cache = service.NoopCache{}
	}

	api := &API{
		db:            gdb,
		authKey:       deps.AuthKey,
		blogs:         deps.Blogs,
		categories:    deps.Categories,
		subcategories: deps.SubCategories,
		tags:          deps.Tags,
		jobs:          deps.Jobs,
		analytics:     deps.Analytics,
		cache:         cache,
		sitemapPath:   deps.SitemapPath,
		uploadDir:     deps.UploadDir,
		uploadURL:     deps.UploadURL,
	}
	if api.blogs == nil {
		api.blogs = service.NewBlogService(gdb, service.BlogOptions{Cache: cache})
	}
	if api.categories == nil {
		api.categories = service.NewCategoryService(gdb, cache)
	}
	if api.subcategories == nil {
		api.subcategories = service.NewSubCategoryService(gdb, cache)
	}
	if api.tags == nil {
		api.tags = service.NewTagService(gdb, cache)
	}
	if api.jobs == nil {
		api.jobs = service.NewJobQueue(gdb, 0, 1)
	}
	if api.analytics == nil {
		api.analytics = service.NewAnalyticsService(gdb)
	}
	if api.uploadDir == "" {
		api.uploadDir = "public/uploads"
	}
	if api.uploadURL == "" {
		api.uploadURL = "/public/uploads"
	}
	return api
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
