package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Content 保存某一语言下的正文，(blog_id, language) 唯一。
type Content struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	BlogID       uint           `gorm:"not null;uniqueIndex:idx_content_blog_language" json:"blogId"`
	Language     string         `gorm:"size:8;not null;uniqueIndex:idx_content_blog_language" json:"language"`
	Introduction string         `gorm:"type:text" json:"introduction"`
	Content      string         `gorm:"type:text" json:"content"`
	Content1     string         `gorm:"type:text" json:"content1"`
	Content2     string         `gorm:"type:text" json:"content2"`
	Conclusion   string         `gorm:"type:text" json:"conclusion"`
	SEO          datatypes.JSON `json:"SEO"`
	CTA          string         `gorm:"type:text" json:"cta"`
	CTALink      string         `gorm:"size:255" json:"cta_link"`
	CTAType      string         `gorm:"size:100" json:"cta_type"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// BlogTranslation 保存某一语言下的标题、副标题、概览与作者信息。
type BlogTranslation struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BlogID    uint           `gorm:"not null;uniqueIndex:idx_translation_blog_language" json:"blogId"`
	Language  string         `gorm:"size:8;not null;uniqueIndex:idx_translation_blog_language" json:"language"`
	Title     string         `gorm:"size:500" json:"title"`
	Subtitle  string         `gorm:"size:500" json:"subtitle"`
	Overview  string         `gorm:"type:text" json:"overview"`
	Author    datatypes.JSON `json:"author"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SEOMeta mirrors the SEO block stored on Content.
type SEOMeta struct {
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	MetaKeywords    []string `json:"metaKeywords"`
	OGTitle         string   `json:"OGtitle"`
	OGDescription   string   `json:"OGdescription"`
}

// Author mirrors the author block stored on BlogTranslation.
type Author struct {
	Name  string `json:"name"`
	About string `json:"about"`
}

// MainImage is the hotlinked cover image of a blog.
type MainImage struct {
	URL             string `json:"url"`
	Attribution     string `json:"attribution,omitempty"`
	AttributionLink string `json:"attributionLink,omitempty"`
}

// ToJSON marshals v into a JSON column value; nil and marshal failures yield an empty column.
func ToJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
