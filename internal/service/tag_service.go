package service

import (
	"context"
	"errors"
	"strings"

	"github.com/buzznfinds/internal/db"
	"gorm.io/gorm"
)

var (
	ErrTagExists   = errors.New("tag already exists")
	ErrTagInUse    = errors.New("tag is associated with blogs")
	ErrTagNotFound = errors.New("tag not found")
)

// TagService wraps tag related operations.
type TagService struct {
	db    *gorm.DB
	cache Cache
}

// TagUsage 描述标签的使用次数
type TagUsage struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB, cache Cache) *TagService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &TagService{db: gdb, cache: cache}
}

// List returns tags with the number of blogs using each of them.
func (s *TagService) List(ctx context.Context) ([]TagUsage, error) {
	var usages []TagUsage
	if err := s.db.WithContext(ctx).
		Table("tags").
		Select("tags.id, tags.name, tags.slug, COUNT(blog_tags.blog_id) AS count").
		Joins("LEFT JOIN blog_tags ON blog_tags.tag_id = tags.id").
		Group("tags.id, tags.name, tags.slug").
		Order("tags.name asc").
		Order("tags.id asc").
		Scan(&usages).Error; err != nil {
		return nil, err
	}
	if usages == nil {
		usages = []TagUsage{}
	}
	return usages, nil
}

// GetBySlug 返回标签及使用该标签的文章。
func (s *TagService) GetBySlug(ctx context.Context, slug, language string, limit int) (*TaxonomyPage, error) {
	var tag db.Tag
	if err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	sharing := s.db.Table("blog_tags").Select("blog_id").Where("tag_id = ?", tag.ID)
	blogs, err := taxonomyBlogs(s.db.WithContext(ctx).Where("id IN (?)", sharing), language, limit)
	if err != nil {
		return nil, err
	}

	return &TaxonomyPage{
		ID:        tag.ID,
		Slug:      tag.Slug,
		Name:      tag.Name,
		CreatedAt: tag.CreatedAt,
		Blogs:     blogs,
	}, nil
}

// Create inserts a new tag with unique name and slug.
func (s *TagService) Create(ctx context.Context, name string) (*db.Tag, error) {
	name, slug, err := normalizeTaxonomy(name, "")
	if err != nil {
		return nil, err
	}

	var existing db.Tag
	if err := s.db.WithContext(ctx).Where("name = ? OR slug = ?", name, slug).First(&existing).Error; err == nil {
		return nil, ErrTagExists
	}

	tag := db.Tag{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &tag, nil
}

// Update changes the tag name while keeping uniqueness.
func (s *TagService) Update(ctx context.Context, id uint, name string) (*db.Tag, error) {
	name, slug, err := normalizeTaxonomy(name, "")
	if err != nil {
		return nil, err
	}

	var tag db.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	var existing db.Tag
	if err := s.db.WithContext(ctx).Where("(name = ? OR slug = ?) AND id <> ?", name, slug, id).First(&existing).Error; err == nil {
		return nil, ErrTagExists
	}

	tag.Name = name
	tag.Slug = slug
	if err := s.db.WithContext(ctx).Save(&tag).Error; err != nil {
		return nil, err
	}
	s.cache.Flush(ctx)
	return &tag, nil
}

// Delete removes a tag if it is not associated with blogs.
func (s *TagService) Delete(ctx context.Context, id uint) error {
	var tag db.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Table("blog_tags").Where("tag_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	if err := s.db.WithContext(ctx).Delete(&tag).Error; err != nil {
		return err
	}
	s.cache.Flush(ctx)
	return nil
}
