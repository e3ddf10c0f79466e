package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
)

type generateBlogRequest struct {
	Title   string `json:"title"`
	CTALink string `json:"cta_link"`
	CTAType string `json:"cta_type"`
	Image   string `json:"image"`
}

// GenerateBlog 只负责入队，实际生成由后台任务在延迟后执行。
func (a *API) GenerateBlog(c *gin.Context) {
	var req generateBlogRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(c, http.StatusBadRequest, "title is Required")
		return
	}

	job, err := a.jobs.Enqueue(c.Request.Context(), service.GenerationRequest{
		Title:   req.Title,
		CTAType: req.CTAType,
		CTALink: req.CTALink,
		Image:   req.Image,
	})
	if err != nil {
		if errors.Is(err, service.ErrTitleRequired) {
			respondError(c, http.StatusBadRequest, "title is Required")
			return
		}
		respondInternal(c, "enqueue generation", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Blog generation started",
		"jobId":   job.ID,
		"runAt":   job.RunAt,
	})
}

// CreateBlog 人工创建一篇英文文章。
func (a *API) CreateBlog(c *gin.Context) {
	var input service.BlogInput
	if !bindJSON(c, &input, "invalid request body") {
		return
	}

	blog, err := a.blogs.Create(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTitleRequired):
			respondError(c, http.StatusBadRequest, "title is Required")
		case errors.Is(err, service.ErrCategoryRequired):
			respondError(c, http.StatusBadRequest, "category is Required")
		case errors.Is(err, service.ErrInvalidStatus):
			respondError(c, http.StatusBadRequest, "status must be draft or published")
		default:
			respondInternal(c, "create blog", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Blog created successfully", "blog": blog})
}

// GetBlogs 返回全部文章。
func (a *API) GetBlogs(c *gin.Context) {
	blogs, err := a.blogs.List(c.Request.Context(), requestLanguage(c))
	if err != nil {
		respondInternal(c, "list blogs", err)
		return
	}
	c.JSON(http.StatusOK, blogs)
}

// GetLatestBlogs 分页返回最新文章，结果按页码、条数与语言缓存。
func (a *API) GetLatestBlogs(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	language := requestLanguage(c)
	ctx := c.Request.Context()
	key := service.CacheKeyLatest(page, limit, language)

	var cached service.LatestPage
	if a.cache.Get(ctx, key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	result, err := a.blogs.Latest(ctx, page, limit, language)
	if err != nil {
		respondInternal(c, "list latest blogs", err)
		return
	}
	a.cache.Set(ctx, key, result)
	c.JSON(http.StatusOK, result)
}

// GetBlogBySlug 返回文章详情与相关文章，并记录一次浏览。
func (a *API) GetBlogBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	language := requestLanguage(c)
	ctx := c.Request.Context()
	key := service.CacheKeyBlog(slug, language)

	var page service.BlogPage
	if !a.cache.Get(ctx, key, &page) {
		result, err := a.blogs.GetBySlug(ctx, slug, language)
		if err != nil {
			if errors.Is(err, service.ErrBlogNotFound) {
				respondError(c, http.StatusNotFound, "Blog not found")
				return
			}
			respondInternal(c, "get blog", err)
			return
		}
		page = *result
		a.cache.Set(ctx, key, page)
	}

	if _, err := a.analytics.RecordView(page.Blog.ID, c.ClientIP()); err != nil {
		log.Printf("[ANALYTICS] record view for %s failed: %v", slug, err)
	}
	c.JSON(http.StatusOK, page)
}

// UpdateBlog 部分更新文章，language 为空时更新英文内容。
func (a *API) UpdateBlog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	var input service.BlogUpdateInput
	if !bindJSON(c, &input, "invalid request body") {
		return
	}

	blog, err := a.blogs.Update(c.Request.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBlogNotFound):
			respondError(c, http.StatusNotFound, "Blog Not Found")
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "Category not found")
		case errors.Is(err, service.ErrContentNotFound):
			respondError(c, http.StatusNotFound, "Blog Content not found")
		case errors.Is(err, service.ErrUnsupportedLanguage):
			respondError(c, http.StatusBadRequest, "unsupported language")
		case errors.Is(err, service.ErrInvalidStatus):
			respondError(c, http.StatusBadRequest, "status must be draft or published")
		default:
			respondInternal(c, "update blog", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Blog updated successfully", "blog": blog})
}

// DeleteBlog 删除文章及其全部语言内容。
func (a *API) DeleteBlog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	if err := a.blogs.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrBlogNotFound) {
			respondError(c, http.StatusNotFound, "Blog not found")
			return
		}
		respondInternal(c, "delete blog", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Blog deleted successfully"})
}
