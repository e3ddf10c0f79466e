package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buzznfinds/internal/db"
)

// GeneratedBlog 是模型生成的一篇完整文章，字段名与提示词中的 JSON 模板一致。
type GeneratedBlog struct {
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	Slug         string     `json:"slug"`
	Overview     string     `json:"overview"`
	Category     string     `json:"category"`
	SubCategory  string     `json:"subcategory"`
	SEO          db.SEOMeta `json:"SEO"`
	Tags         []string   `json:"tags"`
	Introduction string     `json:"introduction"`
	Content      string     `json:"content"`
	Content1     string     `json:"content1"`
	Content2     string     `json:"content2"`
	Conclusion   string     `json:"conclusion"`
	CallToAction string     `json:"callToAction"`
	ImagePrompt  string     `json:"imagePrompt"`
	Author       db.Author  `json:"author"`
}

func (b *GeneratedBlog) validate() error {
	var missing []string
	if strings.TrimSpace(b.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(b.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(b.Introduction) == "" {
		missing = append(missing, "introduction")
	}
	if strings.TrimSpace(b.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(b.Conclusion) == "" {
		missing = append(missing, "conclusion")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(b.Slug) == "" {
		b.Slug = Slugify(b.Title)
	}
	if Slugify(b.Slug) == "" {
		return errors.New("slug is empty")
	}
	return nil
}

const maxGeneratedTags = 4

const blogWriterSystemPrompt = `You are a professional blogger writing one complete article for the title in the prompt. Follow these rules:
* The article must be original and read as if written by an experienced human author in a natural, conversational voice.
* Vary sentence length, use concrete examples, short anecdotes and rhetorical questions, and avoid clichés and filler.
* Weave low-competition long-tail keywords and their semantic variations into headings and text without stuffing.
* Use HTML (<h2>, <h3>, <p>, <ul>, <li>) only inside introduction, content, content1, content2 and conclusion.
* Open with a strong hook. Split the body into content, content1 and content2 so that together they cover causes, effects, solutions and examples, at least 3000 words in total.
* Support claims with recent data and credible sources, following E-E-A-T principles.
* End with a clear call to action that matches the requested CTA type.`

const blogJSONTemplate = `{
  "title": "final article title",
  "subtitle": "one-line subtitle",
  "slug": "seo-friendly-slug",
  "overview": "two or three sentence summary",
  "category": "main category, e.g. International Affairs",
  "subcategory": "subcategory, e.g. Political Analysis",
  "SEO": {
    "metaTitle": "meta title under 60 characters",
    "metaDescription": "meta description with the primary keyword",
    "metaKeywords": ["keyword"],
    "OGtitle": "social title",
    "OGdescription": "social description"
  },
  "tags": ["at most 4 tags"],
  "introduction": "<p>HTML</p>",
  "content": "<h2>HTML</h2>",
  "content1": "<h2>HTML</h2>",
  "content2": "<h2>HTML</h2>",
  "conclusion": "<p>HTML</p>",
  "callToAction": "call to action sentence",
  "imagePrompt": "short search phrase for a cover photo",
  "author": {"name": "author name", "about": "short author bio"}
}`

func buildBlogPrompt(req BlogRequest, structured bool) string {
	var builder strings.Builder
	builder.WriteString("title: ")
	builder.WriteString(strings.TrimSpace(req.Title))
	builder.WriteString("\ncta_for: ")
	builder.WriteString(strings.TrimSpace(req.CTAType))
	if !structured {
		builder.WriteString("\n\nReply with a single JSON object only, no markdown fences, using exactly this shape:\n")
		builder.WriteString(blogJSONTemplate)
	}
	return builder.String()
}

func seoSchema() *jsonSchema {
	return objectSchema(map[string]*jsonSchema{
		"metaTitle":       stringSchema("An SEO-friendly meta title, under 60 characters."),
		"metaDescription": stringSchema("Meta description with primary keywords and a hook."),
		"metaKeywords":    stringListSchema("Focused SEO keywords."),
		"OGtitle":         stringSchema("Open Graph title for social sharing."),
		"OGdescription":   stringSchema("Short, engaging description for social media."),
	}, "metaTitle", "metaDescription", "metaKeywords", "OGtitle", "OGdescription")
}

func authorSchema() *jsonSchema {
	return objectSchema(map[string]*jsonSchema{
		"name":  stringSchema("Author name."),
		"about": stringSchema("Author bio highlighting expertise."),
	}, "name", "about")
}

func generatedBlogSchema() *jsonSchema {
	return objectSchema(map[string]*jsonSchema{
		"title":        stringSchema("Engaging title of the blog post."),
		"subtitle":     stringSchema("Short subtitle."),
		"slug":         stringSchema("SEO-friendly slug based on the title."),
		"overview":     stringSchema("Brief overview of the article."),
		"category":     stringSchema("Relevant main category."),
		"subcategory":  stringSchema("Appropriate subcategory."),
		"SEO":          seoSchema(),
		"tags":         stringListSchema("Relevant tags for the blog post (max 4)."),
		"introduction": stringSchema("HTML introduction with a strong hook."),
		"content":      stringSchema("First HTML body section."),
		"content1":     stringSchema("Second HTML body section."),
		"content2":     stringSchema("Third HTML body section."),
		"conclusion":   stringSchema("HTML conclusion."),
		"callToAction": stringSchema("Call to action matching the CTA type."),
		"imagePrompt":  stringSchema("Short search phrase for a cover photo."),
		"author":       authorSchema(),
	}, "title", "subtitle", "slug", "overview", "category", "subcategory", "SEO", "tags",
		"introduction", "content", "content1", "content2", "conclusion", "callToAction", "author")
}
