package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/locale"
)

const (
	defaultOpenAITranslationModel = "gpt-4o-mini"
	defaultGeminiTranslationModel = "gemini-1.5-flash"
	translationTemperature        = 0.2
	translationMaxTokens          = 16000
)

// TranslationPayload 是一篇文章中需要翻译的全部字段。
type TranslationPayload struct {
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	Overview     string     `json:"overview"`
	Introduction string     `json:"introduction"`
	Content      string     `json:"content"`
	Content1     string     `json:"content1"`
	Content2     string     `json:"content2"`
	Conclusion   string     `json:"conclusion"`
	CTA          string     `json:"cta"`
	SEO          db.SEOMeta `json:"SEO"`
	Author       db.Author  `json:"author"`
}

func (p *TranslationPayload) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("missing required fields: title")
	}
	return nil
}

// BlogTranslator 把英文内容翻译成目标语言。
type BlogTranslator interface {
	Translate(ctx context.Context, source TranslationPayload, language string) (*TranslationPayload, error)
}

// AITranslator 支持两种模式：结构化输出一次翻译整篇，或按字段分组逐个翻译。
type AITranslator struct {
	client     *aiChatClient
	structured bool
}

// NewAITranslator 构造翻译器，OpenAI 默认使用 gpt-4o-mini。
func NewAITranslator(opts AIOptions, metrics *Metrics) *AITranslator {
	defaultModel := defaultOpenAITranslationModel
	if normalizeAIProvider(opts.Provider) == AIProviderGemini {
		defaultModel = defaultGeminiTranslationModel
	}
	client := newAIChatClient(opts, defaultModel)
	client.metrics = metrics
	return &AITranslator{client: client, structured: opts.Structured}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (t *AITranslator) SetHTTPClient(client httpDoer) {
	t.client.SetHTTPClient(client)
}

// SetBaseURL 覆盖供应商 API 地址。
func (t *AITranslator) SetBaseURL(base string) {
	t.client.SetBaseURL(base)
}

// Translate 翻译整篇文章，HTML 标签与 JSON 键名保持不变。
func (t *AITranslator) Translate(ctx context.Context, source TranslationPayload, language string) (*TranslationPayload, error) {
	lang := locale.NormalizeLanguage(language)
	if lang == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if t.structured {
		return t.translateStructured(ctx, source, lang)
	}
	return t.translateFields(ctx, source, lang)
}

// translationRules 附加在每个翻译系统提示之后。
const translationRules = " Do not translate proper nouns such as brand names or the author's name." +
	" Keep SEO keywords that have no natural equivalent in the target language unchanged."

func (t *AITranslator) translateStructured(ctx context.Context, source TranslationPayload, lang string) (*TranslationPayload, error) {
	body, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("encode translation source: %w", err)
	}

	prompt := fmt.Sprintf("Translate the string values of this JSON object into %s (language code %q). Keep all keys and HTML tags unchanged. Keep proper nouns such as author.name as they are.\n%s",
		locale.DisplayName(lang), lang, body)
	logAIExchange("TRANSLATE", "prompt", prompt)

	resp, err := t.client.call(ctx, "translate", aiChatRequest{
		SystemPrompt: "You are a professional translator for a news and lifestyle blog." + translationRules,
		UserPrompt:   prompt,
		MaxTokens:    translationMaxTokens,
		Temperature:  translationTemperature,
		Schema:       translationSchema(),
		SchemaName:   "blog_translation",
	})
	if err != nil {
		return nil, err
	}
	logAIExchange("TRANSLATE", "response", resp.Content)

	var translated TranslationPayload
	if err := decodeAIJSON(resp.Content, &translated); err != nil {
		return nil, err
	}
	return &translated, nil
}

func (t *AITranslator) translateFields(ctx context.Context, source TranslationPayload, lang string) (*TranslationPayload, error) {
	out := TranslationPayload{}

	texts := []struct {
		src string
		dst *string
	}{
		{source.Title, &out.Title},
		{source.Subtitle, &out.Subtitle},
		{source.Overview, &out.Overview},
		{source.CTA, &out.CTA},
	}
	for _, field := range texts {
		translated, err := t.translateText(ctx, field.src, lang)
		if err != nil {
			return nil, err
		}
		*field.dst = translated
	}

	htmlFields := []struct {
		src string
		dst *string
	}{
		{source.Introduction, &out.Introduction},
		{source.Content, &out.Content},
		{source.Content1, &out.Content1},
		{source.Content2, &out.Content2},
		{source.Conclusion, &out.Conclusion},
	}
	for _, field := range htmlFields {
		translated, err := t.translateHTML(ctx, field.src, lang)
		if err != nil {
			return nil, err
		}
		*field.dst = translated
	}

	if err := t.translateJSON(ctx, source.SEO, &out.SEO, lang); err != nil {
		return nil, err
	}
	if err := t.translateJSON(ctx, source.Author, &out.Author, lang); err != nil {
		return nil, err
	}

	if err := out.validate(); err != nil {
		return nil, &MalformedOutputError{Stage: "validate", Err: err}
	}
	return &out, nil
}

func (t *AITranslator) translateText(ctx context.Context, text, lang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return t.translateOne(ctx, "text",
		"You are a translator. Return only the translated text, without quotes or extra formatting."+translationRules,
		fmt.Sprintf("Translate the following text into %s (%s):\n%s", locale.DisplayName(lang), lang, text))
}

func (t *AITranslator) translateHTML(ctx context.Context, html, lang string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	translated, err := t.translateOne(ctx, "html",
		"You are a translator for HTML documents. Translate only human-readable text and keep every tag and attribute unchanged. Return only the HTML."+translationRules,
		fmt.Sprintf("Translate the following HTML into %s (%s):\n%s", locale.DisplayName(lang), lang, html))
	if err != nil {
		return "", err
	}
	return stripCodeFence(translated), nil
}

func (t *AITranslator) translateJSON(ctx context.Context, src, dst any, lang string) error {
	body, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode translation source: %w", err)
	}
	translated, err := t.translateOne(ctx, "json",
		"You are a translator for JSON documents. Translate only string values and keep every key unchanged. Return only the JSON."+translationRules,
		fmt.Sprintf("Translate the following JSON into %s (%s):\n%s", locale.DisplayName(lang), lang, body))
	if err != nil {
		return err
	}
	return decodeAIJSON(translated, dst)
}

func (t *AITranslator) translateOne(ctx context.Context, kind, system, prompt string) (string, error) {
	logAIExchange("TRANSLATE "+strings.ToUpper(kind), "prompt", prompt)
	resp, err := t.client.call(ctx, "translate_"+kind, aiChatRequest{
		SystemPrompt: system,
		UserPrompt:   prompt,
		MaxTokens:    translationMaxTokens,
		Temperature:  translationTemperature,
	})
	if err != nil {
		return "", err
	}
	logAIExchange("TRANSLATE "+strings.ToUpper(kind), "response", resp.Content)
	if resp.Content == "" {
		return "", &MalformedOutputError{Stage: "extract", Err: errors.New("empty translation")}
	}
	return resp.Content, nil
}

// stripCodeFence 去掉模型偶尔包裹在 HTML 外面的 ``` 代码块。
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

func translationSchema() *jsonSchema {
	return objectSchema(map[string]*jsonSchema{
		"title":        stringSchema("Translated title."),
		"subtitle":     stringSchema("Translated subtitle."),
		"overview":     stringSchema("Translated overview."),
		"introduction": stringSchema("Translated HTML introduction."),
		"content":      stringSchema("Translated HTML content."),
		"content1":     stringSchema("Translated HTML content1."),
		"content2":     stringSchema("Translated HTML content2."),
		"conclusion":   stringSchema("Translated HTML conclusion."),
		"cta":          stringSchema("Translated call to action."),
		"SEO":          seoSchema(),
		"author":       authorSchema(),
	}, "title", "subtitle", "overview", "introduction", "content", "content1", "content2", "conclusion", "cta", "SEO", "author")
}
