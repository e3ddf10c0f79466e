package handler

import (
	"errors"
	"net/http"

	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
)

type taxonomyRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

// GetCategories 获取分类列表，没有任何分类时返回 404。
func (a *API) GetCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context())
	if err != nil {
		respondInternal(c, "list categories", err)
		return
	}
	if len(categories) == 0 {
		respondError(c, http.StatusNotFound, "No categories found")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategoryBySlug 返回分类及其文章，limit 限制文章数量。
func (a *API) GetCategoryBySlug(c *gin.Context) {
	page, err := a.categories.GetBySlug(c.Request.Context(), c.Param("slug"), requestLanguage(c), queryInt(c, "limit", 0))
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "Category not found")
			return
		}
		respondInternal(c, "get category", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req taxonomyRequest
	if !bindJSON(c, &req, "category name is required") {
		return
	}

	category, err := a.categories.Create(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "category name is required")
		case errors.Is(err, service.ErrCategoryExists):
			respondError(c, http.StatusBadRequest, "Category already exists")
		default:
			respondInternal(c, "create category", err)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category created successfully", "category": category})
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	var req taxonomyRequest
	if !bindJSON(c, &req, "category name is required") {
		return
	}

	category, err := a.categories.Update(c.Request.Context(), id, req.Name, req.Slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "category name is required")
		case errors.Is(err, service.ErrCategoryExists):
			respondError(c, http.StatusBadRequest, "Category already exists")
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "Category not found")
		default:
			respondInternal(c, "update category", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully", "category": category})
}

// DeleteCategory 删除分类，仍被文章引用时拒绝。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	if err := a.categories.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, http.StatusBadRequest, "Category is used by blogs")
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "Category not found")
		default:
			respondInternal(c, "delete category", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
