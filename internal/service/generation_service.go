package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/locale"
	"gorm.io/gorm"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrSlugUnavailable = errors.New("no free slug available")
)

const defaultSlugSuffixAttempts = 50

// GenerationRequest 是一次文章生成的输入，Image 为空时尝试自动查找封面图。
type GenerationRequest struct {
	Title   string
	CTAType string
	CTALink string
	Image   string
}

// GenerationOptions 汇总生成流程的可选依赖与重试上限。
type GenerationOptions struct {
	Languages          []string
	SlugAIAttempts     int
	SlugSuffixAttempts int
	Images             ImageFinder
	Sanitizer          *ContentSanitizer
	Sitemap            *SitemapWriter
	Notifier           Notifier
	Cache              Cache
	Metrics            *Metrics
	Links              LinkBuilder
}

// GenerationService 串联模型生成、slug 去重、落库、副作用与多语言翻译。
type GenerationService struct {
	db           *gorm.DB
	writer       BlogWriter
	translations *TranslationService
	opts         GenerationOptions
}

func NewGenerationService(gdb *gorm.DB, writer BlogWriter, translations *TranslationService, opts GenerationOptions) *GenerationService {
	if opts.SlugAIAttempts < 0 {
		opts.SlugAIAttempts = 0
	}
	if opts.SlugSuffixAttempts <= 0 {
		opts.SlugSuffixAttempts = defaultSlugSuffixAttempts
	}
	if opts.Notifier == nil {
		opts.Notifier = NoopNotifier{}
	}
	if opts.Cache == nil {
		opts.Cache = NoopCache{}
	}
	return &GenerationService{db: gdb, writer: writer, translations: translations, opts: opts}
}

// GenerateAndSave 生成并保存一篇英文文章，随后依次翻译为配置的语言。
// 生成或保存失败时不写入任何行；单个语言翻译失败只记录日志。
func (s *GenerationService) GenerateAndSave(ctx context.Context, req GenerationRequest) (*db.Blog, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	generated, err := s.writer.WriteBlog(ctx, BlogRequest{Title: title, CTAType: req.CTAType})
	if err != nil {
		return nil, s.fail(title, fmt.Errorf("write blog: %w", err))
	}

	slug, err := s.resolveSlug(ctx, title, generated.Slug)
	if err != nil {
		return nil, s.fail(title, err)
	}

	image := s.resolveImage(ctx, req.Image, generated)

	blog, err := s.save(ctx, req, generated, slug, image)
	if err != nil {
		return nil, s.fail(title, fmt.Errorf("save blog: %w", err))
	}
	s.opts.Metrics.ObserveGeneration(nil)

	url := slug
	if s.opts.Links != nil {
		url = s.opts.Links("", slug)
		if err := s.opts.Sitemap.Add(url); err != nil {
			log.Printf("[SITEMAP] error updating sitemap for blog %s: %v", slug, err)
		}
	}
	s.opts.Cache.Flush(ctx)
	if err := s.opts.Notifier.BlogGenerated(title, url); err != nil {
		log.Printf("[MAIL] generated notification for %s failed: %v", slug, err)
	}
	log.Printf("Generated: %s", slug)

	if s.translations != nil {
		for _, lang := range s.opts.Languages {
			if err := ctx.Err(); err != nil {
				return blog, nil
			}
			if err := s.translations.TranslateBlog(ctx, blog.ID, lang); err != nil && !errors.Is(err, ErrTranslationExists) {
				log.Printf("[TRANSLATE] %s to %s skipped: %v", slug, lang, err)
			}
		}
	}

	return blog, nil
}

func (s *GenerationService) fail(title string, err error) error {
	s.opts.Metrics.ObserveGeneration(err)
	log.Printf("Failed: %s (%v)", title, err)
	if notifyErr := s.opts.Notifier.BlogFailed(title); notifyErr != nil {
		log.Printf("[MAIL] failed notification for %s failed: %v", title, notifyErr)
	}
	return err
}

// resolveSlug 先用候选 slug，冲突时请求模型给出新候选，次数用尽后追加 -2、-3 等数字后缀。
func (s *GenerationService) resolveSlug(ctx context.Context, title, candidate string) (string, error) {
	base := Slugify(candidate)
	if base == "" {
		base = Slugify(title)
	}
	if base == "" {
		base = "blog"
	}

	taken, err := s.slugTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for attempt := 0; attempt < s.opts.SlugAIAttempts; attempt++ {
		suggestion, err := s.writer.SuggestSlug(ctx, title, base)
		if err != nil {
			log.Printf("[SLUG] suggestion %d for %s failed: %v", attempt+1, base, err)
			continue
		}
		slug := Slugify(suggestion)
		if slug == "" {
			continue
		}
		taken, err := s.slugTaken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}

	for n := 2; n < 2+s.opts.SlugSuffixAttempts; n++ {
		slug := fmt.Sprintf("%s-%d", base, n)
		taken, err := s.slugTaken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSlugUnavailable, base)
}

func (s *GenerationService) slugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Blog{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check slug %s: %w", slug, err)
	}
	return count > 0, nil
}

func (s *GenerationService) resolveImage(ctx context.Context, supplied string, generated *GeneratedBlog) *db.MainImage {
	if supplied = strings.TrimSpace(supplied); supplied != "" {
		return &db.MainImage{URL: supplied}
	}
	if s.opts.Images == nil {
		return nil
	}
	query := strings.TrimSpace(generated.ImagePrompt)
	if query == "" {
		query = generated.Title
	}
	image, err := s.opts.Images.FindImage(ctx, query)
	if err != nil {
		log.Printf("[IMAGE] lookup for %q failed: %v", query, err)
		return nil
	}
	return image
}

func (s *GenerationService) save(ctx context.Context, req GenerationRequest, generated *GeneratedBlog, slug string, image *db.MainImage) (*db.Blog, error) {
	var blog db.Blog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := findOrCreateTags(tx, generated.Tags)
		if err != nil {
			return err
		}

		category, err := findOrCreateCategory(tx, generated.Category)
		if err != nil {
			return err
		}

		blog = db.Blog{
			Slug:            slug,
			Status:          db.BlogStatusPublished,
			MainImagePrompt: generated.ImagePrompt,
			CategoryID:      &category.ID,
			Tags:            tags,
		}
		if image != nil {
			blog.MainImage = db.ToJSON(image)
		}
		if strings.TrimSpace(generated.SubCategory) != "" {
			sub, err := findOrCreateSubCategory(tx, generated.SubCategory)
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
			Introduction: s.opts.Sanitizer.HTML(generated.Introduction),
			Content:      s.opts.Sanitizer.HTML(generated.Content),
			Content1:     s.opts.Sanitizer.HTML(generated.Content1),
			Content2:     s.opts.Sanitizer.HTML(generated.Content2),
			Conclusion:   s.opts.Sanitizer.HTML(generated.Conclusion),
			SEO:          db.ToJSON(generated.SEO),
			CTA:          generated.CallToAction,
			CTALink:      strings.TrimSpace(req.CTALink),
			CTAType:      strings.TrimSpace(req.CTAType),
		}
		if err := tx.Create(&content).Error; err != nil {
			return fmt.Errorf("create content: %w", err)
		}

		translation := db.BlogTranslation{
			BlogID:   blog.ID,
			Language: locale.Source,
			Title:    s.opts.Sanitizer.Text(generated.Title),
			Subtitle: s.opts.Sanitizer.Text(generated.Subtitle),
			Overview: s.opts.Sanitizer.Text(generated.Overview),
			Author:   db.ToJSON(generated.Author),
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
	return &blog, nil
}

// findOrCreateTags 按 slug 复用已有标签，同一批次中重复的标签只保留一个。
func findOrCreateTags(tx *gorm.DB, names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}

		var tag db.Tag
		err := tx.Where("slug = ?", slug).First(&tag).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			tag = db.Tag{Name: name, Slug: slug}
			if err := tx.Where("name = ?", name).FirstOrCreate(&tag).Error; err != nil {
				return nil, fmt.Errorf("create tag %s: %w", slug, err)
			}
		default:
			return nil, fmt.Errorf("find tag %s: %w", slug, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func findOrCreateCategory(tx *gorm.DB, name string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrCategoryRequired
	}
	category := db.Category{Name: name, Slug: slug}
	if err := tx.Where("slug = ?", slug).FirstOrCreate(&category).Error; err != nil {
		return nil, fmt.Errorf("find or create category %s: %w", slug, err)
	}
	return &category, nil
}

func findOrCreateSubCategory(tx *gorm.DB, name string) (*db.SubCategory, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, errors.New("subcategory is required")
	}
	sub := db.SubCategory{Name: name, Slug: slug}
	if err := tx.Where("slug = ?", slug).FirstOrCreate(&sub).Error; err != nil {
		return nil, fmt.Errorf("find or create subcategory %s: %w", slug, err)
	}
	return &sub, nil
}
