package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/buzznfinds/internal/db"
	"gorm.io/gorm"
)

func newTestBlogService(t *testing.T) (*gorm.DB, *BlogService, string, *MemoryCache) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	sitemapPath := filepath.Join(t.TempDir(), "sitemap.txt")
	cache := NewMemoryCache(time.Minute)
	svc := NewBlogService(gdb, BlogOptions{
		Sanitizer: NewContentSanitizer(),
		Sitemap:   NewSitemapWriter(sitemapPath),
		Cache:     cache,
		Links:     testLinks,
	})
	return gdb, svc, sitemapPath, cache
}

func createTestBlog(t *testing.T, svc *BlogService, title string, tags ...string) *db.Blog {
	t.Helper()
	blog, err := svc.Create(context.Background(), BlogInput{
		Title:        title,
		Category:     "Technology",
		Tags:         tags,
		Introduction: "<p>Intro</p>",
		Content:      "<p>Body</p>",
		Conclusion:   "<p>End</p>",
	})
	if err != nil {
		t.Fatalf("create blog %q: %v", title, err)
	}
	return blog
}

func TestBlogServiceCreate(t *testing.T) {
	gdb, svc, sitemapPath, cache := newTestBlogService(t)
	cache.Set(context.Background(), "stale", "value")

	blog, err := svc.Create(context.Background(), BlogInput{
		Title:        "Go Tips",
		Category:     "Technology",
		SubCategory:  "Programming",
		Tags:         []string{"Go", "Backend"},
		MainImage:    "https://cdn.test/go.png",
		Introduction: "# Heading\n\nSome **bold** text",
		Content:      "<p>ok</p><script>alert(1)</script>",
		Overview:     "<b>Quick</b> overview<script>alert(1)</script>",
		Markdown:     true,
		Author:       &db.Author{Name: "Ann"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if blog.Slug != "go-tips" || blog.Status != db.BlogStatusPublished {
		t.Fatalf("unexpected blog: %+v", blog)
	}

	content := blog.ContentFor("en")
	if content == nil || !strings.Contains(content.Introduction, "<h1>Heading</h1>") || !strings.Contains(content.Introduction, "<strong>bold</strong>") {
		t.Fatalf("expected rendered markdown, got %+v", content)
	}
	if strings.Contains(content.Content, "script") {
		t.Fatalf("script should be removed: %q", content.Content)
	}
	if overview := blog.TranslationFor("en").Overview; overview != "Quick overview" {
		t.Fatalf("overview should be plain text, got %q", overview)
	}

	var stored db.Blog
	if err := gdb.Preload("Tags").Preload("SubCategory").First(&stored, blog.ID).Error; err != nil {
		t.Fatalf("reload blog: %v", err)
	}
	if len(stored.Tags) != 2 || stored.SubCategory == nil {
		t.Fatalf("unexpected associations: %+v", stored)
	}

	var dst string
	if cache.Get(context.Background(), "stale", &dst) {
		t.Fatalf("cache should be flushed after create")
	}

	data, _ := os.ReadFile(sitemapPath)
	if !strings.Contains(string(data), testLinks("", "go-tips")) {
		t.Fatalf("sitemap missing new blog: %s", data)
	}

	again := createTestBlog(t, svc, "Go Tips")
	if again.Slug != "go-tips-2" {
		t.Fatalf("expected suffixed slug, got %q", again.Slug)
	}
}

func TestBlogServiceCreateValidation(t *testing.T) {
	_, svc, sitemapPath, _ := newTestBlogService(t)

	if _, err := svc.Create(context.Background(), BlogInput{Category: "x"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.Create(context.Background(), BlogInput{Title: "No Category"}); !errors.Is(err, ErrCategoryRequired) {
		t.Fatal("expected error without category")
	}
	if _, err := svc.Create(context.Background(), BlogInput{Title: "Bad", Category: "x", Status: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatal("expected error for invalid status")
	}

	if _, err := svc.Create(context.Background(), BlogInput{Title: "Draft Post", Category: "x", Status: db.BlogStatusDraft}); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := os.Stat(sitemapPath); !os.IsNotExist(err) {
		t.Fatalf("drafts should not be added to the sitemap")
	}
}

func TestBlogServiceLatestPagination(t *testing.T) {
	_, svc, _, _ := newTestBlogService(t)
	for _, title := range []string{"One", "Two", "Three"} {
		createTestBlog(t, svc, title)
	}

	page, err := svc.Latest(context.Background(), 1, 2, "en")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected first page: %+v", page.Pagination)
	}
	if page.Data[0].Title != "Three" {
		t.Fatalf("expected newest first, got %q", page.Data[0].Title)
	}

	page, err = svc.Latest(context.Background(), 2, 2, "")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Title != "One" {
		t.Fatalf("unexpected second page: %+v", page.Data)
	}

	page, _ = svc.Latest(context.Background(), 0, 1000, "")
	if page.Pagination.Page != 1 || page.Pagination.Limit != maxLatestLimit {
		t.Fatalf("expected clamped pagination, got %+v", page.Pagination)
	}

	huge := math.MaxInt
	page, err = svc.Latest(context.Background(), huge, 2, "")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(page.Data) != 0 || page.Pagination.Page != math.MaxInt32/2 {
		t.Fatalf("expected an empty clamped page, got %d rows %+v", len(page.Data), page.Pagination)
	}

	all, err := svc.List(context.Background(), "en")
	if err != nil || len(all) != 3 {
		t.Fatalf("List returned %d, %v", len(all), err)
	}
}

func TestBlogServiceGetBySlug(t *testing.T) {
	gdb, svc, _, _ := newTestBlogService(t)
	primary := createTestBlog(t, svc, "Main Story", "Go")
	createTestBlog(t, svc, "Sibling Story", "Go", "Rust")
	createTestBlog(t, svc, "Unrelated Story", "Cooking")

	if err := gdb.Create(&db.BlogTranslation{BlogID: primary.ID, Language: "es", Title: "Historia"}).Error; err != nil {
		t.Fatalf("seed es translation: %v", err)
	}
	if err := gdb.Create(&db.Content{BlogID: primary.ID, Language: "es", Content: "<p>Hola</p>"}).Error; err != nil {
		t.Fatalf("seed es content: %v", err)
	}
	if err := gdb.Create(&db.Comment{BlogID: primary.ID, Name: "Reader", Body: "Nice"}).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	page, err := svc.GetBySlug(context.Background(), "main-story", "es")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if page.Blog.Title != "Historia" || page.Blog.Content == nil || page.Blog.Content.Content != "<p>Hola</p>" {
		t.Fatalf("expected es fields, got %+v", page.Blog)
	}
	if len(page.Blog.Languages) != 2 || page.Blog.Languages[0] != "en" || page.Blog.Languages[1] != "es" {
		t.Fatalf("unexpected languages: %v", page.Blog.Languages)
	}
	if len(page.Blog.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(page.Blog.Comments))
	}
	if len(page.Related) != 1 || page.Related[0].Slug != "sibling-story" {
		t.Fatalf("unexpected related blogs: %+v", page.Related)
	}
	if page.Related[0].Title != "Sibling Story" {
		t.Fatalf("related blog should fall back to en title, got %q", page.Related[0].Title)
	}

	fallback, err := svc.GetBySlug(context.Background(), "main-story", "ja")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if fallback.Blog.Language != "en" || fallback.Blog.Title != "Main Story" {
		t.Fatalf("expected en fallback, got %+v", fallback.Blog.BlogSummary)
	}

	if _, err := svc.GetBySlug(context.Background(), "missing", "en"); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("expected ErrBlogNotFound, got %v", err)
	}
}

func TestBlogServiceUpdate(t *testing.T) {
	gdb, svc, _, _ := newTestBlogService(t)
	blog := createTestBlog(t, svc, "Editable")
	other, err := NewCategoryService(gdb, nil).Create(context.Background(), "Science", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	featured := true
	if _, err := svc.Update(context.Background(), blog.ID, BlogUpdateInput{
		Title:     "Edited",
		Overview:  "<i>New</i> overview",
		Content:   "<p>New body</p>",
		Category:  "Science",
		MainImage: json.RawMessage(`"https://cdn.test/new.png"`),
		SEO:       json.RawMessage(`{"metaTitle":"Edited"}`),
		Featured:  &featured,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	var stored db.Blog
	gdb.Preload("Contents").Preload("Translations").First(&stored, blog.ID)
	if stored.CategoryID == nil || *stored.CategoryID != other.ID || !stored.Featured {
		t.Fatalf("unexpected blog after update: %+v", stored)
	}
	if stored.TranslationFor("en").Title != "Edited" || stored.ContentFor("en").Content != "<p>New body</p>" {
		t.Fatalf("unexpected text after update")
	}
	if overview := stored.TranslationFor("en").Overview; overview != "New overview" {
		t.Fatalf("overview should be plain text after update, got %q", overview)
	}
	if stored.ContentFor("en").Introduction != "<p>Intro</p>" {
		t.Fatalf("untouched fields must keep their value")
	}
	if seo := decodeSEO(stored.ContentFor("en").SEO); seo.MetaTitle != "Edited" {
		t.Fatalf("unexpected SEO: %+v", seo)
	}
	var image db.MainImage
	if err := json.Unmarshal(stored.MainImage, &image); err != nil || image.URL != "https://cdn.test/new.png" {
		t.Fatalf("unexpected main image: %s", stored.MainImage)
	}
}

func TestBlogServiceUpdateUnknownCategoryChangesNothing(t *testing.T) {
	gdb, svc, _, _ := newTestBlogService(t)
	blog := createTestBlog(t, svc, "Stable")

	_, err := svc.Update(context.Background(), blog.ID, BlogUpdateInput{
		Title:    "Changed",
		Status:   db.BlogStatusDraft,
		Category: "Does Not Exist",
	})
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	var stored db.Blog
	gdb.Preload("Translations").First(&stored, blog.ID)
	if stored.Status != db.BlogStatusPublished || stored.TranslationFor("en").Title != "Stable" {
		t.Fatalf("blog should be unchanged, got %+v", stored)
	}

	if _, err := svc.Update(context.Background(), blog.ID, BlogUpdateInput{Language: "fr", Title: "Bonjour"}); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
	if _, err := svc.Update(context.Background(), blog.ID+99, BlogUpdateInput{Title: "x"}); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("expected ErrBlogNotFound, got %v", err)
	}
}

func TestBlogServiceDelete(t *testing.T) {
	gdb, svc, sitemapPath, _ := newTestBlogService(t)
	blog := createTestBlog(t, svc, "Doomed", "Go")
	keep := createTestBlog(t, svc, "Survivor", "Go")
	gdb.Create(&db.Comment{BlogID: blog.ID, Name: "A", Body: "B"})
	job := db.GenerationJob{Title: "Doomed", Status: db.JobStatusSucceeded, RunAt: time.Now(), BlogID: &blog.ID}
	gdb.Create(&job)

	if err := svc.Delete(context.Background(), blog.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var count int64
	gdb.Model(&db.Blog{}).Where("id = ?", blog.ID).Count(&count)
	if count != 0 {
		t.Fatalf("blog should be deleted")
	}
	for _, model := range []any{&db.Content{}, &db.BlogTranslation{}, &db.Comment{}} {
		gdb.Model(model).Where("blog_id = ?", blog.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected %T rows to be deleted, got %d", model, count)
		}
	}
	gdb.Table("blog_tags").Where("blog_id = ?", blog.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected blog_tags rows to be deleted")
	}
	if n := countRows(t, gdb, &db.Tag{}); n != 1 {
		t.Fatalf("tags must survive blog deletion, got %d", n)
	}

	var reloaded db.GenerationJob
	gdb.First(&reloaded, job.ID)
	if reloaded.BlogID != nil {
		t.Fatalf("job should no longer reference the blog")
	}

	data, _ := os.ReadFile(sitemapPath)
	if strings.Contains(string(data), testLinks("", "doomed")) || !strings.Contains(string(data), testLinks("", keep.Slug)) {
		t.Fatalf("unexpected sitemap: %s", data)
	}

	if err := svc.Delete(context.Background(), blog.ID); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("expected ErrBlogNotFound, got %v", err)
	}
}
