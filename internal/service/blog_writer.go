package service

import (
	"context"
	"errors"
	"strings"
)

const (
	defaultOpenAIWriterModel = "gpt-4o"
	defaultGeminiWriterModel = "gemini-1.5-flash"
	blogWriterMaxTokens      = 16000
	blogWriterTemperature    = 0.8
	slugSuggestTemperature   = 0.9
)

// BlogRequest 是一次生成请求的输入。
type BlogRequest struct {
	Title   string
	CTAType string
}

// BlogWriter 生成文章正文，并在 slug 冲突时给出新的候选。
type BlogWriter interface {
	WriteBlog(ctx context.Context, req BlogRequest) (*GeneratedBlog, error)
	SuggestSlug(ctx context.Context, title, taken string) (string, error)
}

// AIBlogWriter 基于 OpenAI 或 Gemini 生成文章。
type AIBlogWriter struct {
	client     *aiChatClient
	structured bool
}

// NewAIBlogWriter 根据供应商选择默认模型。
func NewAIBlogWriter(opts AIOptions, metrics *Metrics) *AIBlogWriter {
	defaultModel := defaultOpenAIWriterModel
	if normalizeAIProvider(opts.Provider) == AIProviderGemini {
		defaultModel = defaultGeminiWriterModel
	}
	client := newAIChatClient(opts, defaultModel)
	client.metrics = metrics
	return &AIBlogWriter{client: client, structured: opts.Structured}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (w *AIBlogWriter) SetHTTPClient(client httpDoer) {
	w.client.SetHTTPClient(client)
}

// SetBaseURL 覆盖供应商 API 地址。
func (w *AIBlogWriter) SetBaseURL(base string) {
	w.client.SetBaseURL(base)
}

// WriteBlog 调用模型生成文章；输出无法解析时返回 *MalformedOutputError，不做重试。
func (w *AIBlogWriter) WriteBlog(ctx context.Context, req BlogRequest) (*GeneratedBlog, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	prompt := buildBlogPrompt(req, w.structured)
	logAIExchange("GENERATE", "prompt", prompt)

	chatReq := aiChatRequest{
		SystemPrompt: blogWriterSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    blogWriterMaxTokens,
		Temperature:  blogWriterTemperature,
	}
	if w.structured {
		chatReq.Schema = generatedBlogSchema()
		chatReq.SchemaName = "blog_post"
	}

	resp, err := w.client.call(ctx, "generate", chatReq)
	if err != nil {
		return nil, err
	}
	logAIExchange("GENERATE", "response", resp.Content)

	var blog GeneratedBlog
	if err := decodeAIJSON(resp.Content, &blog); err != nil {
		return nil, err
	}
	if len(blog.Tags) > maxGeneratedTags {
		blog.Tags = blog.Tags[:maxGeneratedTags]
	}
	return &blog, nil
}

const slugSystemPrompt = `You generate unique, SEO-friendly slugs for blog posts. Reply with exactly one slug and nothing else.`

// SuggestSlug 请求模型基于已占用的 slug 给出一个新的候选。
func (w *AIBlogWriter) SuggestSlug(ctx context.Context, title, taken string) (string, error) {
	prompt := "The slug \"" + taken + "\" for the article \"" + strings.TrimSpace(title) + "\" is already in use. Suggest a new, unique and relevant slug."
	logAIExchange("SLUG", "prompt", prompt)

	resp, err := w.client.call(ctx, "slug", aiChatRequest{
		SystemPrompt: slugSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    64,
		Temperature:  slugSuggestTemperature,
	})
	if err != nil {
		return "", err
	}
	logAIExchange("SLUG", "response", resp.Content)

	slug := Slugify(stripControlChars(resp.Content))
	if slug == "" {
		return "", errors.New("model returned an empty slug")
	}
	return slug, nil
}
