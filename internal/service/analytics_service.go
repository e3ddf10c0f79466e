package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/buzznfinds/internal/db"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const defaultViewDedupWindow = 30 * time.Minute

// AnalyticsService 负责文章浏览量统计，同一访客在去重窗口内重复访问只计一次。
type AnalyticsService struct {
	db          *gorm.DB
	dedupWindow time.Duration
	seen        *gocache.Cache
}

// NewAnalyticsService 创建 AnalyticsService，默认去重窗口为 30 分钟。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		db:          gdb,
		dedupWindow: defaultViewDedupWindow,
		seen:        gocache.New(defaultViewDedupWindow, time.Hour),
	}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *AnalyticsService) WithDedupWindow(d time.Duration) *AnalyticsService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// RecordView 记录一次浏览并返回是否计数；visitorID 为空时总是计数。
func (s *AnalyticsService) RecordView(blogID uint, visitorID string) (bool, error) {
	if blogID == 0 {
		return false, errors.New("invalid blog id")
	}

	if visitorID != "" {
		key := fmt.Sprintf("%d:%s", blogID, visitorID)
		if err := s.seen.Add(key, struct{}{}, s.dedupWindow); err != nil {
			return false, nil
		}
	}

	result := s.db.Model(&db.Blog{}).Where("id = ?", blogID).UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, ErrBlogNotFound
	}
	return true, nil
}

// SiteOverview 汇总全站浏览量与热门文章。
type SiteOverview struct {
	TotalViews int64         `json:"totalViews"`
	BlogCount  int64         `json:"blogCount"`
	TopBlogs   []TopBlogStat `json:"topBlogs"`
}

// TopBlogStat 描述热门文章的统计信息。
type TopBlogStat struct {
	BlogID uint   `json:"blogId"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Views  int64  `json:"views"`
}

// Overview 返回总浏览量、文章数与浏览量最高的 limit 篇文章。
func (s *AnalyticsService) Overview(limit int) (SiteOverview, error) {
	if limit <= 0 {
		limit = 5
	}

	var overview SiteOverview
	if err := s.db.Model(&db.Blog{}).Select("COALESCE(SUM(views), 0)").Scan(&overview.TotalViews).Error; err != nil {
		return overview, err
	}
	if err := s.db.Model(&db.Blog{}).Count(&overview.BlogCount).Error; err != nil {
		return overview, err
	}

	var top []TopBlogStat
	if err := s.db.Table("blogs b").
		Select("b.id AS blog_id, b.slug, t.title, b.views").
		Joins("LEFT JOIN blog_translations t ON t.blog_id = b.id AND t.language = ?", "en").
		Order("b.views DESC").
		Order("b.id ASC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		return overview, err
	}
	overview.TopBlogs = top
	return overview, nil
}
