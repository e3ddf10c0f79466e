package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/buzznfinds/internal/db"
	"github.com/go-mail/mail/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func jsonHTTPResponse(status int, v any) *http.Response {
	buf, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(buf)),
		Header:     make(http.Header),
	}
}

func openAIReply(content string) *http.Response {
	return jsonHTTPResponse(http.StatusOK, map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
	})
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.DriverSQLite, dsn, "", &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func sampleGeneratedBlog(title string) *GeneratedBlog {
	return &GeneratedBlog{
		Title:        title,
		Subtitle:     "A closer look",
		Slug:         Slugify(title),
		Overview:     "Short overview.",
		Category:     "International Affairs",
		SubCategory:  "Political Analysis",
		SEO:          db.SEOMeta{MetaTitle: title, MetaDescription: "desc", MetaKeywords: []string{"news"}},
		Tags:         []string{"Politics", "World News"},
		Introduction: "<p>Intro</p>",
		Content:      "<h2>Part one</h2><p>Body</p>",
		Content1:     "<p>Body 1</p>",
		Content2:     "<p>Body 2</p>",
		Conclusion:   "<p>The end</p>",
		CallToAction: "Subscribe now",
		ImagePrompt:  "parliament building",
		Author:       db.Author{Name: "Jane Roe", About: "Reporter"},
	}
}

type stubWriter struct {
	mu          sync.Mutex
	blogs       map[string]*GeneratedBlog
	err         error
	suggestions []string
	suggested   int
	written     int
}

func (w *stubWriter) WriteBlog(_ context.Context, req BlogRequest) (*GeneratedBlog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written++
	if w.err != nil {
		return nil, w.err
	}
	if blog, ok := w.blogs[req.Title]; ok {
		copied := *blog
		return &copied, nil
	}
	return sampleGeneratedBlog(req.Title), nil
}

func (w *stubWriter) SuggestSlug(_ context.Context, _, taken string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.suggested >= len(w.suggestions) {
		w.suggested++
		return "", errors.New("no suggestion")
	}
	s := w.suggestions[w.suggested]
	w.suggested++
	return s, nil
}

type stubTranslator struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	langs    []string
}

func (s *stubTranslator) Translate(_ context.Context, source TranslationPayload, language string) (*TranslationPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.failures > 0 {
		s.failures--
		return nil, &MalformedOutputError{Stage: "decode", Err: errors.New("bad json")}
	}
	s.langs = append(s.langs, language)
	out := source
	out.Title = "[" + language + "] " + source.Title
	out.Content = "<p>" + language + "</p>"
	return &out, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	generated []string
	failed    []string
}

func (n *recordingNotifier) BlogGenerated(title, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generated = append(n.generated, title+"|"+url)
	return nil
}

func (n *recordingNotifier) BlogFailed(title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
	return nil
}

type fakeDialer struct {
	messages []*mail.Message
	err      error
}

func (d *fakeDialer) DialAndSend(m ...*mail.Message) error {
	d.messages = append(d.messages, m...)
	return d.err
}

func testLinks(language, slug string) string {
	if language == "" {
		return "https://buzznfinds.test/blog/" + slug
	}
	return "https://buzznfinds.test/" + language + "/blog/" + slug
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if err := gdb.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}
