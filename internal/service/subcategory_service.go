package service

import (
	"context"
	"errors"
	"strings"

	"github.com/buzznfinds/internal/db"
	"gorm.io/gorm"
)

var (
	ErrSubCategoryExists   = errors.New("subcategory already exists")
	ErrSubCategoryInUse    = errors.New("subcategory is associated with blogs")
	ErrSubCategoryNotFound = errors.New("subcategory not found")
)

// SubCategoryService wraps subcategory related operations.
type SubCategoryService struct {
	db    *gorm.DB
	cache Cache
}

func NewSubCategoryService(gdb *gorm.DB, cache Cache) *SubCategoryService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &SubCategoryService{db: gdb, cache: cache}
}

func (s *SubCategoryService) List(ctx context.Context) ([]db.SubCategory, error) {
	var subs []db.SubCategory
	if err := s.db.WithContext(ctx).Order("name asc").Order("id asc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *SubCategoryService) GetBySlug(ctx context.Context, slug, language string, limit int) (*TaxonomyPage, error) {
	var sub db.SubCategory
	if err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubCategoryNotFound
		}
		return nil, err
	}

	blogs, err := taxonomyBlogs(s.db.WithContext(ctx).Where("sub_category_id = ?", sub.ID), language, limit)
	if err != nil {
		return nil, err
	}

	return &TaxonomyPage{
		ID:        sub.ID,
		Slug:      sub.Slug,
		Name:      sub.Name,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
		Blogs:     blogs,
	}, nil
}

func (s *SubCategoryService) Create(ctx context.Context, name, slug string) (*db.SubCategory, error) {
	name, slug, err := normalizeTaxonomy(name, slug)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.SubCategory{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSubCategoryExists
	}

	sub := db.SubCategory{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &sub, nil
}

func (s *SubCategoryService) Update(ctx context.Context, id uint, name, slug string) (*db.SubCategory, error) {
	name, slug, err := normalizeTaxonomy(name, slug)
	if err != nil {
		return nil, err
	}

	var sub db.SubCategory
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubCategoryNotFound
		}
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.SubCategory{}).Where("slug = ? AND id <> ?", slug, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSubCategoryExists
	}

	sub.Name = name
	sub.Slug = slug
	if err := s.db.WithContext(ctx).Save(&sub).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &sub, nil
}

func (s *SubCategoryService) Delete(ctx context.Context, id uint) error {
	var sub db.SubCategory
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubCategoryNotFound
		}
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Blog{}).Where("sub_category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSubCategoryInUse
	}

	if err := s.db.WithContext(ctx).Delete(&sub).Error; err != nil {
		return err
	}
	s.cache.Flush(ctx)
	return nil
}
