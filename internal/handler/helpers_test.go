package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAuthKey = "secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.DriverSQLite, dsn, "", &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir := t.TempDir()
	api := NewAPI(gdb, Dependencies{
		AuthKey:     testAuthKey,
		SitemapPath: filepath.Join(dir, "sitemap.txt"),
		UploadDir:   filepath.Join(dir, "uploads"),
		UploadURL:   "/public/uploads",
	})
	return api, gdb
}

func seedBlog(t *testing.T, api *API, title, category string, tags ...string) *db.Blog {
	t.Helper()
	blog, err := api.blogs.Create(t.Context(), service.BlogInput{
		Title:    title,
		Category: category,
		Tags:     tags,
		Content:  "<p>" + title + "</p>",
	})
	if err != nil {
		t.Fatalf("failed to seed blog: %v", err)
	}
	return blog
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newTestContext(req *http.Request, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func idParam(id uint) gin.Param {
	return gin.Param{Key: "id", Value: fmt.Sprint(id)}
}
