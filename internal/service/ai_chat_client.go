package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultAITimeout     = 5 * time.Minute
)

// ErrAIAPIKeyMissing 表示当前供应商没有配置 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AIOptions 描述一个模型调用端点。
type AIOptions struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	// Structured 为 true 时使用供应商的结构化输出能力而不是自由文本。
	Structured bool
}

func normalizeAIProvider(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case AIProviderGemini:
		return AIProviderGemini
	case AIProviderOpenAI, "":
		return AIProviderOpenAI
	default:
		return ""
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *chatJSONSchema `json:"json_schema,omitempty"`
}

type chatJSONSchema struct {
	Name   string      `json:"name"`
	Schema *jsonSchema `json:"schema"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64     `json:"temperature,omitempty"`
	MaxOutputTokens  int         `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string      `json:"responseMimeType,omitempty"`
	ResponseSchema   *jsonSchema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type aiChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	// Schema 非空时请求结构化 JSON 输出。
	Schema     *jsonSchema
	SchemaName string
}

type aiChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

type aiChatClient struct {
	http     httpDoer
	provider string
	apiKey   string
	baseURL  string
	model    string
	metrics  *Metrics
}

func newAIChatClient(opts AIOptions, defaultModel string) *aiChatClient {
	provider := normalizeAIProvider(opts.Provider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultOpenAIBaseURL
		if provider == AIProviderGemini {
			base = defaultGeminiBaseURL
		}
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &aiChatClient{
		http:     &http.Client{Timeout: defaultAITimeout},
		provider: provider,
		apiKey:   strings.TrimSpace(opts.APIKey),
		baseURL:  base,
		model:    model,
	}
}

func (c *aiChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: defaultAITimeout}
		return
	}
	c.http = client
}

func (c *aiChatClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

func (c *aiChatClient) label() string {
	if c.provider == AIProviderGemini {
		return "Gemini"
	}
	return "OpenAI"
}

// call 发送一次对话请求，kind 仅用于日志与指标。
func (c *aiChatClient) call(ctx context.Context, kind string, req aiChatRequest) (aiChatResponse, error) {
	if c.apiKey == "" {
		return aiChatResponse{}, ErrAIAPIKeyMissing
	}

	started := time.Now()
	defer func() {
		c.metrics.ObserveAIRequest(c.provider, kind, time.Since(started))
	}()

	if c.provider == AIProviderGemini {
		return c.callGemini(ctx, req)
	}
	return c.callOpenAI(ctx, req)
}

func (c *aiChatClient) callOpenAI(ctx context.Context, req aiChatRequest) (aiChatResponse, error) {
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   max(req.MaxTokens, 0),
		Temperature: req.Temperature,
	}
	if req.Schema != nil {
		payload.ResponseFormat = &chatResponseFormat{
			Type:       "json_schema",
			JSONSchema: &chatJSONSchema{Name: schemaName(req.SchemaName), Schema: req.Schema},
		}
	}

	respBody, status, err := c.post(ctx, c.baseURL+"/chat/completions", payload, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return aiChatResponse{}, err
	}

	var completion chatCompletionResponse
	if status >= http.StatusBadRequest {
		_ = json.Unmarshal(respBody, &completion)
		return aiChatResponse{}, c.statusError(status, completion.Error.Message, respBody)
	}
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return aiChatResponse{}, fmt.Errorf("decode %s response: %w", c.label(), err)
	}

	if len(completion.Choices) == 0 {
		return aiChatResponse{}, fmt.Errorf("%s returned no choices", c.label())
	}

	return aiChatResponse{
		Content:          strings.TrimSpace(completion.Choices[0].Message.Content),
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}

func (c *aiChatClient) callGemini(ctx context.Context, req aiChatRequest) (aiChatResponse, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: max(req.MaxTokens, 0),
		},
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if req.Schema != nil {
		payload.GenerationConfig.ResponseMimeType = "application/json"
		payload.GenerationConfig.ResponseSchema = req.Schema.forGemini()
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	respBody, status, err := c.post(ctx, endpoint, payload, map[string]string{
		"x-goog-api-key": c.apiKey,
	})
	if err != nil {
		return aiChatResponse{}, err
	}

	var generated geminiResponse
	if status >= http.StatusBadRequest {
		_ = json.Unmarshal(respBody, &generated)
		return aiChatResponse{}, c.statusError(status, generated.Error.Message, respBody)
	}
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return aiChatResponse{}, fmt.Errorf("decode %s response: %w", c.label(), err)
	}

	if len(generated.Candidates) == 0 {
		return aiChatResponse{}, fmt.Errorf("%s returned no candidates", c.label())
	}

	var builder strings.Builder
	for _, part := range generated.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}

	return aiChatResponse{
		Content:          strings.TrimSpace(builder.String()),
		PromptTokens:     generated.UsageMetadata.PromptTokenCount,
		CompletionTokens: generated.UsageMetadata.CandidatesTokenCount,
	}, nil
}

func (c *aiChatClient) post(ctx context.Context, endpoint string, payload any, headers map[string]string) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", c.label(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create %s request: %w", c.label(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "buzznfinds-ai/1.0")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("call %s: %w", c.label(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s response: %w", c.label(), err)
	}
	return respBody, resp.StatusCode, nil
}

func (c *aiChatClient) statusError(status int, message string, body []byte) error {
	errMsg := strings.TrimSpace(message)
	if errMsg == "" {
		errMsg = strings.TrimSpace(string(body))
	}
	if errMsg == "" {
		errMsg = http.StatusText(status)
	}
	return fmt.Errorf("%s returned %d: %s", c.label(), status, errMsg)
}

func schemaName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "response"
	}
	return name
}
