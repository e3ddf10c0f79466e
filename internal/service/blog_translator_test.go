package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/buzznfinds/internal/db"
)

func samplePayload() TranslationPayload {
	return TranslationPayload{
		Title:        "Hello",
		Subtitle:     "Sub",
		Overview:     "Overview",
		Introduction: "<p>Intro</p>",
		Content:      "<p>Body</p>",
		Conclusion:   "<p>End</p>",
		CTA:          "Subscribe",
		SEO:          db.SEOMeta{MetaTitle: "Hello", MetaKeywords: []string{"k"}},
		Author:       db.Author{Name: "Ann", About: "Writer"},
	}
}

func TestAITranslatorFieldMode(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	translator := NewAITranslator(AIOptions{APIKey: "k"}, nil)
	translator.SetHTTPClient(fakeHTTPClient{handler: func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		var payload chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != defaultOpenAITranslationModel {
			t.Fatalf("unexpected model: %s", payload.Model)
		}
		if system := payload.Messages[0].Content; !strings.Contains(system, "proper nouns") || !strings.Contains(system, "SEO keywords") {
			t.Fatalf("system prompt should keep proper nouns and SEO keywords: %s", system)
		}
		prompt := payload.Messages[1].Content
		if !strings.Contains(prompt, "Spanish") {
			t.Fatalf("prompt should name the target language: %s", prompt)
		}
		switch {
		case strings.Contains(payload.Messages[0].Content, "JSON"):
			source := prompt[strings.Index(prompt, "{"):]
			return openAIReply(strings.ReplaceAll(source, `"Hello"`, `"Hola"`)), nil
		case strings.Contains(payload.Messages[0].Content, "HTML"):
			return openAIReply("```html\n<p>es</p>\n```"), nil
		default:
			return openAIReply("es:" + prompt[strings.LastIndex(prompt, "\n")+1:]), nil
		}
	}})

	out, err := translator.Translate(context.Background(), samplePayload(), "es")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if out.Title != "es:Hello" || out.CTA != "es:Subscribe" {
		t.Fatalf("unexpected text fields: %+v", out)
	}
	if out.Introduction != "<p>es</p>" || out.Conclusion != "<p>es</p>" {
		t.Fatalf("expected code fences stripped, got %q / %q", out.Introduction, out.Conclusion)
	}
	if out.Content1 != "" || out.Content2 != "" {
		t.Fatalf("empty fields should stay empty")
	}
	if out.SEO.MetaTitle != "Hola" || out.Author.Name != "Ann" {
		t.Fatalf("unexpected json fields: %+v %+v", out.SEO, out.Author)
	}
	// title, subtitle, overview, cta, introduction, content, conclusion, SEO, author
	if calls != 9 {
		t.Fatalf("expected 9 model calls, got %d", calls)
	}
}

func TestAITranslatorStructuredMode(t *testing.T) {
	translated := samplePayload()
	translated.Title = "Bonjour"
	body, _ := json.Marshal(translated)

	calls := 0
	translator := NewAITranslator(AIOptions{APIKey: "k", Structured: true}, nil)
	translator.SetHTTPClient(fakeHTTPClient{handler: func(req *http.Request) (*http.Response, error) {
		calls++
		var payload chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if system := payload.Messages[0].Content; !strings.Contains(system, "proper nouns") || !strings.Contains(system, "SEO keywords") {
			t.Fatalf("system prompt should keep proper nouns and SEO keywords: %s", system)
		}
		if prompt := payload.Messages[1].Content; strings.Contains(prompt, "every string value") || !strings.Contains(prompt, "author.name") {
			t.Fatalf("prompt should exempt the author name from translation: %s", prompt)
		}
		if payload.ResponseFormat == nil || payload.ResponseFormat.JSONSchema.Name != "blog_translation" {
			t.Fatalf("expected blog_translation schema, got %+v", payload.ResponseFormat)
		}
		return openAIReply(string(body)), nil
	}})

	out, err := translator.Translate(context.Background(), samplePayload(), "fr-FR")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if out.Title != "Bonjour" {
		t.Fatalf("unexpected title: %q", out.Title)
	}
	if calls != 1 {
		t.Fatalf("structured mode should make one call, got %d", calls)
	}
}

func TestAITranslatorRejectsUnsupportedLanguage(t *testing.T) {
	translator := NewAITranslator(AIOptions{APIKey: "k"}, nil)
	if _, err := translator.Translate(context.Background(), samplePayload(), "xx"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestAITranslatorEmptyResponse(t *testing.T) {
	translator := NewAITranslator(AIOptions{APIKey: "k"}, nil)
	translator.SetHTTPClient(fakeHTTPClient{handler: func(*http.Request) (*http.Response, error) {
		return openAIReply("   "), nil
	}})
	if _, err := translator.Translate(context.Background(), samplePayload(), "de"); !errors.Is(err, ErrMalformedAIOutput) {
		t.Fatalf("expected ErrMalformedAIOutput, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"<p>x</p>":               "<p>x</p>",
		"```html\n<p>x</p>\n```": "<p>x</p>",
		"  ```\n<p>y</p>```  ":   "<p>y</p>",
	}
	for input, want := range cases {
		if got := stripCodeFence(input); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", input, got, want)
		}
	}
}
