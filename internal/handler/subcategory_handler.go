package handler

import (
	"errors"
	"net/http"

	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
)

func (a *API) GetSubCategories(c *gin.Context) {
	subs, err := a.subcategories.List(c.Request.Context())
	if err != nil {
		respondInternal(c, "list subcategories", err)
		return
	}
	if len(subs) == 0 {
		respondError(c, http.StatusNotFound, "No subcategories found")
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (a *API) GetSubCategoryBySlug(c *gin.Context) {
	page, err := a.subcategories.GetBySlug(c.Request.Context(), c.Param("slug"), requestLanguage(c), queryInt(c, "limit", 0))
	if err != nil {
		if errors.Is(err, service.ErrSubCategoryNotFound) {
			respondError(c, http.StatusNotFound, "SubCategory not found")
			return
		}
		respondInternal(c, "get subcategory", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) CreateSubCategory(c *gin.Context) {
	var req taxonomyRequest
	if !bindJSON(c, &req, "subcategory name is required") {
		return
	}

	sub, err := a.subcategories.Create(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "subcategory name is required")
		case errors.Is(err, service.ErrSubCategoryExists):
			respondError(c, http.StatusBadRequest, "SubCategory already exists")
		default:
			respondInternal(c, "create subcategory", err)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "SubCategory created successfully", "subcategory": sub})
}

func (a *API) UpdateSubCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	var req taxonomyRequest
	if !bindJSON(c, &req, "subcategory name is required") {
		return
	}

	sub, err := a.subcategories.Update(c.Request.Context(), id, req.Name, req.Slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidName):
			respondError(c, http.StatusBadRequest, "subcategory name is required")
		case errors.Is(err, service.ErrSubCategoryExists):
			respondError(c, http.StatusBadRequest, "SubCategory already exists")
		case errors.Is(err, service.ErrSubCategoryNotFound):
			respondError(c, http.StatusNotFound, "SubCategory not found")
		default:
			respondInternal(c, "update subcategory", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SubCategory updated successfully", "subcategory": sub})
}

func (a *API) DeleteSubCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	if err := a.subcategories.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrSubCategoryInUse):
			respondError(c, http.StatusBadRequest, "SubCategory is used by blogs")
		case errors.Is(err, service.ErrSubCategoryNotFound):
			respondError(c, http.StatusNotFound, "SubCategory not found")
		default:
			respondInternal(c, "delete subcategory", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SubCategory deleted successfully"})
}
