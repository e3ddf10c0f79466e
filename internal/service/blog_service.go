package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/locale"
	"gorm.io/gorm"
)

var (
	ErrBlogNotFound     = errors.New("blog not found")
	ErrContentNotFound  = errors.New("blog content not found")
	ErrCategoryRequired = errors.New("category is required")
	ErrInvalidStatus    = errors.New("invalid status")
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
	relatedBlogLimit   = 6
)

// BlogOptions 汇总写操作之后的副作用依赖。
type BlogOptions struct {
	Sanitizer *ContentSanitizer
	Sitemap   *SitemapWriter
	Cache     Cache
	Links     LinkBuilder
}

// BlogService 负责文章的查询与人工维护。
type BlogService struct {
	db   *gorm.DB
	opts BlogOptions
}

func NewBlogService(gdb *gorm.DB, opts BlogOptions) *BlogService {
	if opts.Cache == nil {
		opts.Cache = NoopCache{}
	}
	return &BlogService{db: gdb, opts: opts}
}

// List 返回全部文章及其分类，按创建时间倒序。
func (s *BlogService) List(ctx context.Context, language string) ([]BlogSummary, error) {
	var blogs []db.Blog
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Translations").
		Order("created_at desc").
		Order("id desc").
		Find(&blogs).Error; err != nil {
		return nil, err
	}
	return summarizeAll(blogs, locale.NormalizeLanguage(language)), nil
}

// Latest 分页返回最新文章，page 从 1 开始。
func (s *BlogService) Latest(ctx context.Context, page, limit int, language string) (LatestPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}
	// offset 必须放得进 int32
	if maxPage := math.MaxInt32 / limit; page > maxPage {
		page = maxPage
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&db.Blog{}).Count(&total).Error; err != nil {
		return LatestPage{}, err
	}

	var blogs []db.Blog
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Translations").
		Order("created_at desc").
		Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&blogs).Error; err != nil {
		return LatestPage{}, err
	}

	return LatestPage{
		Data: summarizeAll(blogs, locale.NormalizeLanguage(language)),
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// GetBySlug 返回文章详情与最多 6 篇共享标签的相关文章。
func (s *BlogService) GetBySlug(ctx context.Context, slug, language string) (*BlogPage, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrBlogNotFound
	}

	var blog db.Blog
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("SubCategory").
		Preload("Tags").
		Preload("Contents").
		Preload("Translations").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc") }).
		Where("slug = ?", slug).
		First(&blog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}

	lang := locale.NormalizeLanguage(language)
	related, err := s.related(ctx, &blog)
	if err != nil {
		return nil, err
	}

	return &BlogPage{
		Blog:    detail(&blog, lang),
		Related: summarizeAll(related, lang),
	}, nil
}

func (s *BlogService) related(ctx context.Context, blog *db.Blog) ([]db.Blog, error) {
	related := []db.Blog{}
	if len(blog.Tags) == 0 {
		return related, nil
	}

	tagIDs := make([]uint, 0, len(blog.Tags))
	for _, tag := range blog.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}

	sharing := s.db.Table("blog_tags").Select("blog_id").Where("tag_id IN ?", tagIDs)
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Translations").
		Where("id IN (?)", sharing).
		Where("id <> ?", blog.ID).
		Order("created_at desc").
		Limit(relatedBlogLimit).
		Find(&related).Error; err != nil {
		return nil, err
	}
	return related, nil
}

// BlogInput 是人工创建文章的输入；Markdown 为 true 时正文字段按 Markdown 渲染。
type BlogInput struct {
	Title        string      `json:"title"`
	Subtitle     string      `json:"subtitle"`
	Slug         string      `json:"slug"`
	Overview     string      `json:"overview"`
	Category     string      `json:"category"`
	SubCategory  string      `json:"subcategory"`
	Tags         []string    `json:"tags"`
	MainImage    string      `json:"mainImage"`
	Introduction string      `json:"introduction"`
	Content      string      `json:"content"`
	Content1     string      `json:"content1"`
	Content2     string      `json:"content2"`
	Conclusion   string      `json:"conclusion"`
	SEO          *db.SEOMeta `json:"SEO"`
	Author       *db.Author  `json:"author"`
	CTA          string      `json:"cta"`
	CTALink      string      `json:"cta_link"`
	CTAType      string      `json:"cta_type"`
	Status       string      `json:"status"`
	Featured     bool        `json:"featured"`
	Markdown     bool        `json:"markdown"`
}

// Create 以英文内容创建文章，slug 冲突时追加数字后缀。
func (s *BlogService) Create(ctx context.Context, input BlogInput) (*db.Blog, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, ErrCategoryRequired
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = db.BlogStatusPublished
	}
	if status != db.BlogStatusDraft && status != db.BlogStatusPublished {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	render := s.opts.Sanitizer.HTML
	if input.Markdown {
		render = s.opts.Sanitizer.Markdown
	}

	var blog db.Blog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, firstNonEmpty(input.Slug, title))
		if err != nil {
			return err
		}

		tags, err := findOrCreateTags(tx, input.Tags)
		if err != nil {
			return err
		}
		category, err := findOrCreateCategory(tx, input.Category)
		if err != nil {
			return err
		}

		blog = db.Blog{
			Slug:       slug,
			Status:     status,
			Featured:   input.Featured,
			CategoryID: &category.ID,
			Tags:       tags,
		}
		if image := strings.TrimSpace(input.MainImage); image != "" {
			blog.MainImage = db.ToJSON(db.MainImage{URL: image})
		}
		if strings.TrimSpace(input.SubCategory) != "" {
			sub, err := findOrCreateSubCategory(tx, input.SubCategory)
			if err != nil {
				return err
			}
			blog.SubCategoryID = &sub.ID
		}
		if err := tx.Create(&blog).Error; err != nil {
			return fmt.Errorf("create blog: %w", err)
		}

		content := db.Content{
			BlogID:       blog.ID,
			Language:     locale.Source,
			Introduction: render(input.Introduction),
			Content:      render(input.Content),
			Content1:     render(input.Content1),
			Content2:     render(input.Content2),
			Conclusion:   render(input.Conclusion),
			CTA:          input.CTA,
			CTALink:      strings.TrimSpace(input.CTALink),
			CTAType:      strings.TrimSpace(input.CTAType),
		}
		if input.SEO != nil {
			content.SEO = db.ToJSON(input.SEO)
		}
		if err := tx.Create(&content).Error; err != nil {
			return fmt.Errorf("create content: %w", err)
		}

		translation := db.BlogTranslation{
			BlogID:   blog.ID,
			Language: locale.Source,
			Title:    s.opts.Sanitizer.Text(title),
			Subtitle: s.opts.Sanitizer.Text(input.Subtitle),
			Overview: s.opts.Sanitizer.Text(input.Overview),
		}
		if input.Author != nil {
			translation.Author = db.ToJSON(input.Author)
		}
		if err := tx.Create(&translation).Error; err != nil {
			return fmt.Errorf("create translation: %w", err)
		}

		blog.Category = category
		blog.Contents = []db.Content{content}
		blog.Translations = []db.BlogTranslation{translation}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if blog.Status == db.BlogStatusPublished {
		s.addToSitemap(locale.Source, blog.Slug)
	}
	s.opts.Cache.Flush(ctx)
	return &blog, nil
}

// BlogUpdateInput 描述部分更新，nil 或空字符串表示保持原值。
type BlogUpdateInput struct {
	Language     string          `json:"language"`
	Title        string          `json:"title"`
	Subtitle     string          `json:"subtitle"`
	Overview     string          `json:"overview"`
	MainImage    json.RawMessage `json:"mainImage"`
	Category     string          `json:"category"`
	Introduction string          `json:"introduction"`
	Content      string          `json:"content"`
	Content1     string          `json:"content1"`
	Content2     string          `json:"content2"`
	Conclusion   string          `json:"conclusion"`
	SEO          json.RawMessage `json:"SEO"`
	CTA          string          `json:"cta"`
	CTALink      string          `json:"cta_link"`
	CTAType      string          `json:"cta_type"`
	Status       string          `json:"status"`
	Featured     *bool           `json:"featured"`
	Markdown     bool            `json:"markdown"`
}

// Update 按语言（默认英文）部分更新文章、正文与标题信息。
// 指定的分类不存在时返回 ErrCategoryNotFound 且不修改任何数据。
func (s *BlogService) Update(ctx context.Context, id uint, input BlogUpdateInput) (*db.Blog, error) {
	lang := locale.NormalizeLanguage(input.Language)
	if strings.TrimSpace(input.Language) == "" {
		lang = locale.Source
	}
	if lang == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, input.Language)
	}

	if input.Status != "" && input.Status != db.BlogStatusDraft && input.Status != db.BlogStatusPublished {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	render := s.opts.Sanitizer.HTML
	if input.Markdown {
		render = s.opts.Sanitizer.Markdown
	}

	var blog db.Blog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Contents").Preload("Translations").First(&blog, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBlogNotFound
			}
			return err
		}

		content := blog.ContentFor(lang)
		translation := blog.TranslationFor(lang)
		if content == nil || translation == nil {
			return ErrContentNotFound
		}

		if name := strings.TrimSpace(input.Category); name != "" {
			var category db.Category
			if err := tx.Where("name = ? OR slug = ?", name, Slugify(name)).First(&category).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCategoryNotFound
				}
				return err
			}
			blog.CategoryID = &category.ID
			blog.Category = &category
		}
		if image := normalizeMainImage(input.MainImage); image != nil {
			blog.MainImage = image
		}
		if input.Status != "" {
			blog.Status = input.Status
		}
		if input.Featured != nil {
			blog.Featured = *input.Featured
		}
		if err := tx.Model(&blog).Select("category_id", "main_image", "status", "featured").Updates(&blog).Error; err != nil {
			return fmt.Errorf("update blog: %w", err)
		}

		assignText(&translation.Title, s.opts.Sanitizer.Text(input.Title))
		assignText(&translation.Subtitle, s.opts.Sanitizer.Text(input.Subtitle))
		assignText(&translation.Overview, s.opts.Sanitizer.Text(input.Overview))
		if err := tx.Save(translation).Error; err != nil {
			return fmt.Errorf("update translation: %w", err)
		}

		assignText(&content.Introduction, render(input.Introduction))
		assignText(&content.Content, render(input.Content))
		assignText(&content.Content1, render(input.Content1))
		assignText(&content.Content2, render(input.Content2))
		assignText(&content.Conclusion, render(input.Conclusion))
		assignText(&content.CTA, input.CTA)
		assignText(&content.CTALink, input.CTALink)
		assignText(&content.CTAType, input.CTAType)
		if len(input.SEO) > 0 && string(input.SEO) != "null" {
			content.SEO = []byte(input.SEO)
		}
		if err := tx.Save(content).Error; err != nil {
			return fmt.Errorf("update content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.Cache.Flush(ctx)
	return &blog, nil
}

// Delete 在一个事务中删除文章及其正文、翻译、评论与标签关联，并从 sitemap 移除。
func (s *BlogService) Delete(ctx context.Context, id uint) error {
	var blog db.Blog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Translations").First(&blog, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBlogNotFound
			}
			return err
		}
		if err := tx.Model(&blog).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		for _, model := range []any{&db.Content{}, &db.BlogTranslation{}, &db.Comment{}} {
			if err := tx.Where("blog_id = ?", blog.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&db.GenerationJob{}).Where("blog_id = ?", blog.ID).Update("blog_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Blog{}, blog.ID).Error
	})
	if err != nil {
		return err
	}

	if s.opts.Links != nil {
		urls := make([]string, 0, len(blog.Translations))
		for _, translation := range blog.Translations {
			lang := translation.Language
			if lang == locale.Source {
				lang = ""
			}
			urls = append(urls, s.opts.Links(lang, blog.Slug))
		}
		if err := s.opts.Sitemap.Remove(urls...); err != nil {
			log.Printf("[SITEMAP] remove %s failed: %v", blog.Slug, err)
		}
	}
	s.opts.Cache.Flush(ctx)
	return nil
}

func (s *BlogService) addToSitemap(language, slug string) {
	if s.opts.Links == nil {
		return
	}
	if language == locale.Source {
		language = ""
	}
	if err := s.opts.Sitemap.Add(s.opts.Links(language, slug)); err != nil {
		log.Printf("[SITEMAP] add %s failed: %v", slug, err)
	}
}

// uniqueSlug 在 base 已被占用时依次尝试 base-2、base-3 等。
func uniqueSlug(tx *gorm.DB, raw string) (string, error) {
	base := Slugify(raw)
	if base == "" {
		return "", errors.New("slug is empty")
	}
	candidate := base
	for n := 2; n < 2+defaultSlugSuffixAttempts; n++ {
		var count int64
		if err := tx.Model(&db.Blog{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("%w: %s", ErrSlugUnavailable, base)
}

// normalizeMainImage 接受 URL 字符串或 {url, attribution} 对象。
func normalizeMainImage(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var url string
	if err := json.Unmarshal(raw, &url); err == nil && strings.TrimSpace(url) != "" {
		return db.ToJSON(db.MainImage{URL: strings.TrimSpace(url)})
	}
	var image db.MainImage
	if err := json.Unmarshal(raw, &image); err == nil && image.URL != "" {
		return db.ToJSON(image)
	}
	return nil
}

func assignText(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
