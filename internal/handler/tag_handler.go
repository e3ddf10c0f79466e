package handler

import (
	"errors"
	"net/http"

	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
)

type tagRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetTags 获取标签列表及使用次数
func (a *API) GetTags(c *gin.Context) {
	tags, err := a.tags.List(c.Request.Context())
	if err != nil {
		respondInternal(c, "list tags", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTagBySlug 返回标签及使用该标签的文章
func (a *API) GetTagBySlug(c *gin.Context) {
	page, err := a.tags.GetBySlug(c.Request.Context(), c.Param("slug"), requestLanguage(c), queryInt(c, "limit", 0))
	if err != nil {
		if errors.Is(err, service.ErrTagNotFound) {
			respondError(c, http.StatusNotFound, "Tag not found")
			return
		}
		respondInternal(c, "get tag", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateTag 创建新标签
func (a *API) CreateTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req, "tag name is required") {
		return
	}

	tag, err := a.tags.Create(c.Request.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "tag name is required")
		case errors.Is(err, service.ErrTagExists):
			respondError(c, http.StatusBadRequest, "Tag already exists")
		default:
			respondInternal(c, "create tag", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Tag created successfully", "tag": tag})
}

// UpdateTag 更新标签
func (a *API) UpdateTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	var req tagRequest
	if !bindJSON(c, &req, "tag name is required") {
		return
	}

	tag, err := a.tags.Update(c.Request.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "tag name is required")
		case errors.Is(err, service.ErrTagExists):
			respondError(c, http.StatusBadRequest, "Tag already exists")
		case errors.Is(err, service.ErrTagNotFound):
			respondError(c, http.StatusNotFound, "Tag not found")
		default:
			respondInternal(c, "update tag", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag updated successfully", "tag": tag})
}

// DeleteTag 删除标签
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	if err := a.tags.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrTagInUse):
			respondError(c, http.StatusBadRequest, "Tag is used by blogs")
		case errors.Is(err, service.ErrTagNotFound):
			respondError(c, http.StatusNotFound, "Tag not found")
		default:
			respondInternal(c, "delete tag", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
