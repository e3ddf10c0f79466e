package service

import (
	"time"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/locale"
	"gorm.io/datatypes"
)

// BlogSummary 是列表接口返回的文章摘要，标题等字段按请求语言取值并回退到英文。
type BlogSummary struct {
	ID          uint            `json:"id"`
	Slug        string          `json:"slug"`
	MainImage   datatypes.JSON  `json:"mainImage,omitempty"`
	Status      string          `json:"status"`
	Views       int64           `json:"views"`
	Featured    bool            `json:"featured"`
	Category    *db.Category    `json:"category,omitempty"`
	SubCategory *db.SubCategory `json:"subcategory,omitempty"`
	Tags        []db.Tag        `json:"tags,omitempty"`
	Language    string          `json:"language"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle"`
	Overview    string          `json:"overview"`
	Author      datatypes.JSON  `json:"author,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BlogDetail 在摘要之外附带正文、评论与可用语言列表。
type BlogDetail struct {
	BlogSummary
	Content   *db.Content  `json:"content,omitempty"`
	Comments  []db.Comment `json:"comments"`
	Languages []string     `json:"languages"`
}

// BlogPage 是按 slug 查询文章的响应。
type BlogPage struct {
	Blog    BlogDetail    `json:"blog"`
	Related []BlogSummary `json:"related"`
}

// Pagination 描述分页信息。
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// LatestPage 是最新文章分页接口的响应。
type LatestPage struct {
	Data       []BlogSummary `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

func summarize(blog *db.Blog, language string) BlogSummary {
	summary := BlogSummary{
		ID:          blog.ID,
		Slug:        blog.Slug,
		MainImage:   blog.MainImage,
		Status:      blog.Status,
		Views:       blog.Views,
		Featured:    blog.Featured,
		Category:    blog.Category,
		SubCategory: blog.SubCategory,
		Tags:        blog.Tags,
		CreatedAt:   blog.CreatedAt,
		UpdatedAt:   blog.UpdatedAt,
	}

	translation := blog.TranslationFor(language)
	if translation == nil {
		translation = blog.TranslationFor(locale.Source)
	}
	if translation != nil {
		summary.Language = translation.Language
		summary.Title = translation.Title
		summary.Subtitle = translation.Subtitle
		summary.Overview = translation.Overview
		summary.Author = translation.Author
	}
	return summary
}

func summarizeAll(blogs []db.Blog, language string) []BlogSummary {
	result := make([]BlogSummary, 0, len(blogs))
	for i := range blogs {
		result = append(result, summarize(&blogs[i], language))
	}
	return result
}

func detail(blog *db.Blog, language string) BlogDetail {
	d := BlogDetail{
		BlogSummary: summarize(blog, language),
		Comments:    blog.Comments,
	}
	if d.Comments == nil {
		d.Comments = []db.Comment{}
	}

	content := blog.ContentFor(language)
	if content == nil {
		content = blog.ContentFor(locale.Source)
	}
	d.Content = content

	d.Languages = make([]string, 0, len(blog.Contents))
	for _, code := range locale.Supported() {
		if blog.ContentFor(code) != nil {
			d.Languages = append(d.Languages, code)
		}
	}
	return d
}
