package service

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SitemapWriter 维护纯文本 sitemap，每行一个 URL，重复的 URL 只写一次。
type SitemapWriter struct {
	mu   sync.Mutex
	path string
}

func NewSitemapWriter(path string) *SitemapWriter {
	return &SitemapWriter{path: strings.TrimSpace(path)}
}

// Add 追加 url；文件或目录不存在时自动创建。
func (w *SitemapWriter) Add(url string) error {
	if w == nil || w.path == "" {
		return nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("sitemap url is empty")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	exists, err := w.contains(url)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if dir := filepath.Dir(w.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sitemap dir: %w", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sitemap: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(url + "\n"); err != nil {
		return fmt.Errorf("append sitemap: %w", err)
	}
	return nil
}

// Remove 删除与 url 完全相同的行，文章删除后调用。
func (w *SitemapWriter) Remove(urls ...string) error {
	if w == nil || w.path == "" || len(urls) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	drop := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		drop[strings.TrimSpace(url)] = struct{}{}
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := drop[line]; ok {
			continue
		}
		kept = append(kept, line)
	}

	content := strings.Join(kept, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(w.path, []byte(content), 0o644)
}

func (w *SitemapWriter) contains(url string) (bool, error) {
	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == url {
			return true, nil
		}
	}
	return false, scanner.Err()
}
