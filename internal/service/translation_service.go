package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/buzznfinds/internal/db"
	"github.com/buzznfinds/internal/locale"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUnsupportedLanguage   = errors.New("unsupported language")
	ErrSourceLanguageMissing = errors.New("source language content is missing")
	ErrTranslationExists     = errors.New("translation already exists")
)

const defaultTranslationAttempts = 3

// LinkBuilder 返回文章在前端的地址，language 为空表示源语言。
type LinkBuilder func(language, slug string) string

// TranslationOptions 汇总翻译后的副作用依赖，零值字段表示跳过对应步骤。
type TranslationOptions struct {
	Attempts  int
	Sanitizer *ContentSanitizer
	Sitemap   *SitemapWriter
	Cache     Cache
	Metrics   *Metrics
	Links     LinkBuilder
}

// TranslationService 把英文文章翻译为其他语言并落库。
type TranslationService struct {
	db         *gorm.DB
	translator BlogTranslator
	opts       TranslationOptions
}

func NewTranslationService(gdb *gorm.DB, translator BlogTranslator, opts TranslationOptions) *TranslationService {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultTranslationAttempts
	}
	if opts.Cache == nil {
		opts.Cache = NoopCache{}
	}
	return &TranslationService{db: gdb, translator: translator, opts: opts}
}

// TranslateBlog 读取文章的英文 Content 与 BlogTranslation，翻译后在一个事务中写入目标语言。
// 源语言缺失时不写入任何数据；目标语言已存在时返回 ErrTranslationExists。
func (s *TranslationService) TranslateBlog(ctx context.Context, blogID uint, language string) error {
	lang := locale.NormalizeLanguage(language)
	if lang == "" || lang == locale.Source {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	var blog db.Blog
	if err := s.db.WithContext(ctx).Preload("Contents").Preload("Translations").First(&blog, blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[TRANSLATE] blog %d not found", blogID)
			return ErrBlogNotFound
		}
		return fmt.Errorf("load blog %d: %w", blogID, err)
	}

	content := blog.ContentFor(locale.Source)
	translation := blog.TranslationFor(locale.Source)
	if content == nil || translation == nil {
		log.Printf("[TRANSLATE] blog %s has no %s content, skipping %s", blog.Slug, locale.Source, lang)
		return ErrSourceLanguageMissing
	}
	if blog.ContentFor(lang) != nil || blog.TranslationFor(lang) != nil {
		return ErrTranslationExists
	}

	translated, err := s.translateWithRetry(ctx, payloadFromRows(content, translation), lang)
	if err != nil {
		s.opts.Metrics.ObserveTranslation(lang, err)
		log.Printf("[TRANSLATE] failed: %s to %s: %v", blog.Slug, lang, err)
		return fmt.Errorf("translate %s to %s: %w", blog.Slug, lang, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := db.Content{
			BlogID:       blog.ID,
			Language:     lang,
			Introduction: s.opts.Sanitizer.HTML(translated.Introduction),
			Content:      s.opts.Sanitizer.HTML(translated.Content),
			Content1:     s.opts.Sanitizer.HTML(translated.Content1),
			Content2:     s.opts.Sanitizer.HTML(translated.Content2),
			Conclusion:   s.opts.Sanitizer.HTML(translated.Conclusion),
			SEO:          db.ToJSON(translated.SEO),
			CTA:          translated.CTA,
			CTALink:      content.CTALink,
			CTAType:      content.CTAType,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create %s content: %w", lang, err)
		}

		meta := db.BlogTranslation{
			BlogID:   blog.ID,
			Language: lang,
			Title:    s.opts.Sanitizer.Text(translated.Title),
			Subtitle: s.opts.Sanitizer.Text(translated.Subtitle),
			Overview: s.opts.Sanitizer.Text(translated.Overview),
			Author:   db.ToJSON(translated.Author),
		}
		if err := tx.Create(&meta).Error; err != nil {
			return fmt.Errorf("create %s translation: %w", lang, err)
		}
		return nil
	})
	s.opts.Metrics.ObserveTranslation(lang, err)
	if err != nil {
		return err
	}

	if s.opts.Links != nil {
		if err := s.opts.Sitemap.Add(s.opts.Links(lang, blog.Slug)); err != nil {
			log.Printf("[SITEMAP] error updating sitemap for blog id:%d: %v", blog.ID, err)
		}
	}
	s.opts.Cache.Flush(ctx)
	log.Printf("Translated: %s to %s", blog.Slug, lang)
	return nil
}

func (s *TranslationService) translateWithRetry(ctx context.Context, source TranslationPayload, lang string) (*TranslationPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		translated, err := s.translator.Translate(ctx, source, lang)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		log.Printf("[TRANSLATE] attempt %d/%d to %s failed: %v", attempt, s.opts.Attempts, lang, err)
	}
	return nil, lastErr
}

// Backfill 为所有缺少指定语言的文章补齐翻译，可重复执行。
// 单篇失败不会中断整体流程，返回成功写入的数量与汇总错误。
func (s *TranslationService) Backfill(ctx context.Context, languages []string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("translation service is not initialized")
	}

	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, raw := range languages {
		lang := locale.NormalizeLanguage(raw)
		if lang == "" || lang == locale.Source {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		normalized = append(normalized, lang)
	}
	if len(normalized) == 0 {
		return 0, errors.New("no valid languages provided")
	}

	var blogs []db.Blog
	if err := s.db.WithContext(ctx).Select("id", "slug").Preload("Contents", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "blog_id", "language")
	}).Order("id asc").Find(&blogs).Error; err != nil {
		return 0, fmt.Errorf("list blogs: %w", err)
	}

	created := 0
	var errs []error
	for _, blog := range blogs {
		for _, lang := range normalized {
			if blog.ContentFor(lang) != nil {
				continue
			}
			err := s.TranslateBlog(ctx, blog.ID, lang)
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrTranslationExists), errors.Is(err, ErrSourceLanguageMissing):
			case ctx.Err() != nil:
				return created, ctx.Err()
			default:
				errs = append(errs, fmt.Errorf("blog %s (%s): %w", blog.Slug, lang, err))
			}
		}
	}
	return created, errors.Join(errs...)
}

func payloadFromRows(content *db.Content, translation *db.BlogTranslation) TranslationPayload {
	return TranslationPayload{
		Title:        translation.Title,
		Subtitle:     translation.Subtitle,
		Overview:     translation.Overview,
		Introduction: content.Introduction,
		Content:      content.Content,
		Content1:     content.Content1,
		Content2:     content.Content2,
		Conclusion:   content.Conclusion,
		CTA:          content.CTA,
		SEO:          decodeSEO(content.SEO),
		Author:       decodeAuthor(translation.Author),
	}
}

func decodeSEO(raw datatypes.JSON) db.SEOMeta {
	var seo db.SEOMeta
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &seo)
	}
	return seo
}

func decodeAuthor(raw datatypes.JSON) db.Author {
	var author db.Author
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &author)
	}
	return author
}
