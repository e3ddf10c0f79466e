package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/buzznfinds/internal/db"
	"github.com/gin-gonic/gin"
)

func TestGenerateBlogEnqueuesJob(t *testing.T) {
	api, gdb := setupTestAPI(t)

	c, w := newTestContext(jsonRequest(http.MethodPost, "/framework/blog/generateBlog", map[string]any{
		"title":    "The Future of Solar Power",
		"cta_type": "newsletter",
		"cta_link": "https://example.com/join",
	}))
	api.GenerateBlog(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
		JobID   uint   `json:"jobId"`
	}
	decodeBody(t, w, &resp)
	if resp.Message != "Blog generation started" || resp.JobID == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	var job db.GenerationJob
	if err := gdb.First(&job, resp.JobID).Error; err != nil {
		t.Fatalf("expected job row: %v", err)
	}
	if job.Status != db.JobStatusPending || job.CTALink != "https://example.com/join" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestGenerateBlogRequiresTitle(t *testing.T) {
	api, gdb := setupTestAPI(t)

	c, w := newTestContext(jsonRequest(http.MethodPost, "/framework/blog/generateBlog", map[string]any{"title": "   "}))
	api.GenerateBlog(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["error"] != "title is Required" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
	var count int64
	gdb.Model(&db.GenerationJob{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no jobs, got %d", count)
	}
}

func TestCreateBlogValidation(t *testing.T) {
	api, _ := setupTestAPI(t)

	cases := []struct {
		name    string
		payload map[string]any
		message string
	}{
		{"missing title", map[string]any{"category": "Tech"}, "title is Required"},
		{"missing category", map[string]any{"title": "Hello"}, "category is Required"},
		{"bad status", map[string]any{"title": "Hello", "category": "Tech", "status": "archived"}, "status must be draft or published"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext(jsonRequest(http.MethodPost, "/framework/blog", tc.payload))
			api.CreateBlog(c)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var resp map[string]string
			decodeBody(t, w, &resp)
			if resp["error"] != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, resp["error"])
			}
		})
	}
}

func TestCreateBlogThenListLatest(t *testing.T) {
	api, _ := setupTestAPI(t)

	c, w := newTestContext(jsonRequest(http.MethodPost, "/framework/blog", map[string]any{
		"title":    "Markets Rally",
		"category": "Finance",
		"tags":     []string{"Stocks"},
		"content":  "<p>Up</p><script>alert(1)</script>",
	}))
	api.CreateBlog(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	c, w = newTestContext(jsonRequest(http.MethodGet, "/framework/blog/latest?page=1&limit=5", nil))
	api.GetLatestBlogs(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var page struct {
		Data []struct {
			Slug  string `json:"slug"`
			Title string `json:"title"`
		} `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
			Limit int   `json:"limit"`
		} `json:"pagination"`
	}
	decodeBody(t, w, &page)
	if len(page.Data) != 1 || page.Data[0].Slug != "markets-rally" || page.Data[0].Title != "Markets Rally" {
		t.Fatalf("unexpected latest page %+v", page)
	}
	if page.Pagination.Total != 1 || page.Pagination.Limit != 5 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
}

func TestGetBlogBySlugNotFound(t *testing.T) {
	api, _ := setupTestAPI(t)

	c, w := newTestContext(jsonRequest(http.MethodGet, "/framework/blog/missing", nil), gin.Param{Key: "slug", Value: "missing"})
	api.GetBlogBySlug(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["error"] != "Blog not found" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestGetBlogBySlugRecordsView(t *testing.T) {
	api, gdb := setupTestAPI(t)
	blog := seedBlog(t, api, "Ocean Currents", "Science", "Climate")

	c, w := newTestContext(jsonRequest(http.MethodGet, "/framework/blog/"+blog.Slug+"?lang=fr", nil), gin.Param{Key: "slug", Value: blog.Slug})
	api.GetBlogBySlug(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var page struct {
		Blog struct {
			Title     string   `json:"title"`
			Language  string   `json:"language"`
			Languages []string `json:"languages"`
			Content   struct {
				Content string `json:"content"`
			} `json:"content"`
		} `json:"blog"`
	}
	decodeBody(t, w, &page)
	if page.Blog.Title != "Ocean Currents" || page.Blog.Language != "en" {
		t.Fatalf("expected english fallback, got %+v", page.Blog)
	}
	if !strings.Contains(page.Blog.Content.Content, "Ocean Currents") {
		t.Fatalf("expected content in response, got %q", page.Blog.Content.Content)
	}

	var stored db.Blog
	gdb.First(&stored, blog.ID)
	if stored.Views != 1 {
		t.Fatalf("expected views to be 1, got %d", stored.Views)
	}
}

func TestUpdateBlogErrors(t *testing.T) {
	api, _ := setupTestAPI(t)
	blog := seedBlog(t, api, "Original", "Tech")

	c, w := newTestContext(jsonRequest(http.MethodPut, "/framework/blog/abc", map[string]any{"title": "x"}), gin.Param{Key: "id", Value: "abc"})
	api.UpdateBlog(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad id, got %d", w.Code)
	}

	c, w = newTestContext(jsonRequest(http.MethodPut, "/framework/blog/999", map[string]any{"title": "x"}), idParam(999))
	api.UpdateBlog(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing blog, got %d", w.Code)
	}

	c, w = newTestContext(jsonRequest(http.MethodPut, "/framework/blog/1", map[string]any{"category": "nope"}), idParam(blog.ID))
	api.UpdateBlog(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown category, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["error"] != "Category not found" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestUpdateBlogChangesTitle(t *testing.T) {
	api, gdb := setupTestAPI(t)
	blog := seedBlog(t, api, "Original", "Tech")

	c, w := newTestContext(jsonRequest(http.MethodPut, "/framework/blog/1", map[string]any{"title": "Renamed"}), idParam(blog.ID))
	api.UpdateBlog(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var translation db.BlogTranslation
	if err := gdb.Where("blog_id = ? AND language = ?", blog.ID, "en").First(&translation).Error; err != nil {
		t.Fatalf("failed to load translation: %v", err)
	}
	if translation.Title != "Renamed" {
		t.Fatalf("expected title to be updated, got %q", translation.Title)
	}
}

func TestDeleteBlog(t *testing.T) {
	api, gdb := setupTestAPI(t)
	blog := seedBlog(t, api, "Short Lived", "Tech")

	c, w := newTestContext(jsonRequest(http.MethodDelete, "/framework/blog/1", nil), idParam(blog.ID))
	api.DeleteBlog(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var count int64
	gdb.Model(&db.Blog{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected blog to be removed, got %d rows", count)
	}

	c, w = newTestContext(jsonRequest(http.MethodDelete, "/framework/blog/1", nil), idParam(blog.ID))
	api.DeleteBlog(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second delete, got %d", w.Code)
	}
}
