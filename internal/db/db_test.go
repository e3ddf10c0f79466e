package db

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:db-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := Open(DriverSQLite, dsn, "", &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return gdb
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "", "", nil); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestOpenPostgresRequiresURL(t *testing.T) {
	if _, err := Open(DriverPostgres, "", "  ", nil); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}

func TestContentLanguageIsUniquePerBlog(t *testing.T) {
	gdb := openTestDB(t)

	blog := Blog{Slug: "unique-content"}
	if err := gdb.Create(&blog).Error; err != nil {
		t.Fatalf("create blog: %v", err)
	}
	if err := gdb.Create(&Content{BlogID: blog.ID, Language: "en", Content: "a"}).Error; err != nil {
		t.Fatalf("create first content: %v", err)
	}
	if err := gdb.Create(&Content{BlogID: blog.ID, Language: "en", Content: "b"}).Error; err == nil {
		t.Fatalf("expected duplicate (blog, language) content to be rejected")
	}
	if err := gdb.Create(&Content{BlogID: blog.ID, Language: "fr", Content: "c"}).Error; err != nil {
		t.Fatalf("create french content: %v", err)
	}
}

func TestBlogSlugIsUnique(t *testing.T) {
	gdb := openTestDB(t)

	if err := gdb.Create(&Blog{Slug: "same"}).Error; err != nil {
		t.Fatalf("create blog: %v", err)
	}
	if err := gdb.Create(&Blog{Slug: "same"}).Error; err == nil {
		t.Fatalf("expected duplicate slug to be rejected")
	}
}

func TestBlogLanguageLookups(t *testing.T) {
	blog := Blog{
		Contents:     []Content{{Language: "en", Content: "hello"}, {Language: "fr", Content: "bonjour"}},
		Translations: []BlogTranslation{{Language: "en", Title: "Hello"}},
	}
	if c := blog.ContentFor("fr"); c == nil || c.Content != "bonjour" {
		t.Fatalf("expected french content, got %#v", c)
	}
	if c := blog.ContentFor("de"); c != nil {
		t.Fatalf("expected nil for missing language, got %#v", c)
	}
	if tr := blog.TranslationFor("en"); tr == nil || tr.Title != "Hello" {
		t.Fatalf("expected english translation, got %#v", tr)
	}
}

func TestToJSON(t *testing.T) {
	if got := ToJSON(nil); got != nil {
		t.Fatalf("expected nil column for nil value, got %s", got)
	}
	got := ToJSON(Author{Name: "Ann", About: "writer"})
	if string(got) != `{"name":"Ann","about":"writer"}` {
		t.Fatalf("unexpected json: %s", got)
	}
}
