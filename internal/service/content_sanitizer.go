package service

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var embedSrcPattern = regexp.MustCompile(`^https://(?:www\.)?(?:youtube\.com/embed/|youtube-nocookie\.com/embed/|player\.vimeo\.com/video/)`)

// ContentSanitizer 清洗写入数据库的 HTML 正文，并可把 Markdown 渲染为 HTML。
type ContentSanitizer struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

func NewContentSanitizer() *ContentSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("iframe")
	policy.AllowAttrs("src").Matching(embedSrcPattern).OnElements("iframe")
	policy.AllowAttrs("title", "allow", "allowfullscreen", "frameborder", "loading", "referrerpolicy").OnElements("iframe")

	return &ContentSanitizer{
		policy: policy,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
		),
	}
}

// HTML 去掉脚本、事件属性等不安全内容。
func (s *ContentSanitizer) HTML(input string) string {
	if s == nil || strings.TrimSpace(input) == "" {
		return input
	}
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// Markdown 渲染后再清洗，渲染失败时按 HTML 处理原文。
func (s *ContentSanitizer) Markdown(input string) string {
	if s == nil || strings.TrimSpace(input) == "" {
		return input
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(input), &buf); err != nil {
		return s.HTML(input)
	}
	return strings.TrimSpace(s.policy.Sanitize(buf.String()))
}

// Text 去掉全部标签，用于标题等纯文本字段。
func (s *ContentSanitizer) Text(input string) string {
	if s == nil {
		return strings.TrimSpace(input)
	}
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(input))
}
