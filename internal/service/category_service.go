package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/buzznfinds/internal/db"
	"gorm.io/gorm"
)

var (
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is associated with blogs")
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInvalidName 表示分类、子分类或标签名称为空或无法生成 slug。
	ErrInvalidName = errors.New("name must contain letters or digits")
)

// TaxonomyPage 是分类、子分类或标签详情接口的响应。
type TaxonomyPage struct {
	ID        uint          `json:"id"`
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty"`
	Blogs     []BlogSummary `json:"blogs"`
}

// CategoryService wraps category related operations.
type CategoryService struct {
	db    *gorm.DB
	cache Cache
}

func NewCategoryService(gdb *gorm.DB, cache Cache) *CategoryService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CategoryService{db: gdb, cache: cache}
}

// List returns categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.WithContext(ctx).Order("name asc").Order("id asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetBySlug 返回分类及其文章，文章标题按 language 取值并回退到英文；limit <= 0 表示不限制。
func (s *CategoryService) GetBySlug(ctx context.Context, slug, language string, limit int) (*TaxonomyPage, error) {
	var category db.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	blogs, err := taxonomyBlogs(s.db.WithContext(ctx).Where("category_id = ?", category.ID), language, limit)
	if err != nil {
		return nil, err
	}

	return &TaxonomyPage{
		ID:        category.ID,
		Slug:      category.Slug,
		Name:      category.Name,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
		Blogs:     blogs,
	}, nil
}

// Create inserts a category; the slug is derived from the name when empty.
func (s *CategoryService) Create(ctx context.Context, name, slug string) (*db.Category, error) {
	name, slug, err := normalizeTaxonomy(name, slug)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Category{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCategoryExists
	}

	category := db.Category{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &category, nil
}

// Update renames a category while keeping slugs unique.
func (s *CategoryService) Update(ctx context.Context, id uint, name, slug string) (*db.Category, error) {
	name, slug, err := normalizeTaxonomy(name, slug)
	if err != nil {
		return nil, err
	}

	var category db.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Category{}).Where("slug = ? AND id <> ?", slug, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCategoryExists
	}

	category.Name = name
	category.Slug = slug
	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &category, nil
}

// Delete removes a category if no blog references it.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	var category db.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Blog{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.db.WithContext(ctx).Delete(&category).Error; err != nil {
		return err
	}
	s.cache.Flush(ctx)
	return nil
}

func normalizeTaxonomy(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrInvalidName
	}
	slug = Slugify(firstNonEmpty(slug, name))
	if slug == "" {
		return "", "", ErrInvalidName
	}
	return name, slug, nil
}

// taxonomyBlogs loads the blogs matched by query newest first.
func taxonomyBlogs(query *gorm.DB, language string, limit int) ([]BlogSummary, error) {
	var blogs []db.Blog
	query = query.Preload("Translations").Order("created_at desc").Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&blogs).Error; err != nil {
		return nil, err
	}
	return summarizeAll(blogs, language), nil
}
