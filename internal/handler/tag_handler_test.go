package handler

import (
	"net/http"
	"testing"

	"github.com/buzznfinds/internal/db"
	"github.com/gin-gonic/gin"
)

func TestCreateTagDuplicateName(t *testing.T) {
	api, _ := setupTestAPI(t)
	if _, err := api.tags.Create(t.Context(), "Go"); err != nil {
		t.Fatalf("failed to seed tag: %v", err)
	}

	c, w := newTestContext(jsonRequest(http.MethodPost, "/framework/tag", map[string]any{"name": "Go"}))
	api.CreateTag(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestUpdateTagDuplicateName(t *testing.T) {
	api, _ := setupTestAPI(t)
	if _, err := api.tags.Create(t.Context(), "Go"); err != nil {
		t.Fatalf("failed to seed tagA: %v", err)
	}
	tagB, err := api.tags.Create(t.Context(), "Gin")
	if err != nil {
		t.Fatalf("failed to seed tagB: %v", err)
	}

	c, w := newTestContext(jsonRequest(http.MethodPut, "/framework/tag/2", map[string]any{"name": "Go"}), idParam(tagB.ID))
	api.UpdateTag(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestDeleteTagBlockedWhenInUse(t *testing.T) {
	api, gdb := setupTestAPI(t)
	seedBlog(t, api, "Tagged", "Tech", "Go")

	var tag db.Tag
	if err := gdb.Where("slug = ?", "go").First(&tag).Error; err != nil {
		t.Fatalf("failed to load tag: %v", err)
	}

	c, w := newTestContext(jsonRequest(http.MethodDelete, "/framework/tag/1", nil), idParam(tag.ID))
	api.DeleteTag(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestGetTagsWithUsage(t *testing.T) {
	api, _ := setupTestAPI(t)

	c, w := newTestContext(jsonRequest(http.MethodGet, "/framework/tag", nil))
	api.GetTags(c)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("expected empty array, got %d %s", w.Code, w.Body.String())
	}

	seedBlog(t, api, "First", "Tech", "Go", "Web")
	seedBlog(t, api, "Second", "Tech", "Go")

	c, w = newTestContext(jsonRequest(http.MethodGet, "/framework/tag", nil))
	api.GetTags(c)
	var tags []struct {
		Slug  string `json:"slug"`
		Count int64  `json:"count"`
	}
	decodeBody(t, w, &tags)
	if len(tags) != 2 || tags[0].Slug != "go" || tags[0].Count != 2 || tags[1].Count != 1 {
		t.Fatalf("unexpected tag usage %+v", tags)
	}

	c, w = newTestContext(jsonRequest(http.MethodGet, "/framework/tag/go", nil), gin.Param{Key: "slug", Value: "go"})
	api.GetTagBySlug(c)
	var page struct {
		Blogs []struct {
			Slug string `json:"slug"`
		} `json:"blogs"`
	}
	decodeBody(t, w, &page)
	if w.Code != http.StatusOK || len(page.Blogs) != 2 {
		t.Fatalf("expected two blogs for tag, got %d (%d)", len(page.Blogs), w.Code)
	}

	c, w = newTestContext(jsonRequest(http.MethodGet, "/framework/tag/none", nil), gin.Param{Key: "slug", Value: "none"})
	api.GetTagBySlug(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
