package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
)

// Blog 是文章聚合根，正文与标题元数据按语言拆分到 Content / BlogTranslation。
type Blog struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Slug            string            `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Status          string            `gorm:"size:20;default:draft;index" json:"status"`
	Views           int64             `gorm:"default:0" json:"views"`
	Featured        bool              `gorm:"default:false" json:"featured"`
	MainImage       datatypes.JSON    `json:"mainImage,omitempty"`
	MainImagePrompt string            `gorm:"type:text" json:"mainImagePrompt,omitempty"`
	CategoryID      *uint             `gorm:"index" json:"categoryId,omitempty"`
	Category        *Category         `json:"category,omitempty"`
	SubCategoryID   *uint             `gorm:"index" json:"subcategoryId,omitempty"`
	SubCategory     *SubCategory      `json:"subcategory,omitempty"`
	Tags            []Tag             `gorm:"many2many:blog_tags;" json:"tags,omitempty"`
	Contents        []Content         `gorm:"constraint:OnDelete:CASCADE" json:"contents,omitempty"`
	Translations    []BlogTranslation `gorm:"constraint:OnDelete:CASCADE" json:"translations,omitempty"`
	Comments        []Comment         `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ContentFor returns the content row for language, or nil.
func (b *Blog) ContentFor(language string) *Content {
	for i := range b.Contents {
		if b.Contents[i].Language == language {
			return &b.Contents[i]
		}
	}
	return nil
}

// TranslationFor returns the translation row for language, or nil.
func (b *Blog) TranslationFor(language string) *BlogTranslation {
	for i := range b.Translations {
		if b.Translations[i].Language == language {
			return &b.Translations[i]
		}
	}
	return nil
}

// Comment 是读者评论，随文章一起删除。
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlogID    uint      `gorm:"index;not null" json:"blogId"`
	Name      string    `gorm:"size:100" json:"name"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
