package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"yamdb/internal/entity"
	"yamdb/internal/textutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const messageInvalidSlug = "slug may contain only latin letters, digits, hyphens and underscores (max 50)"

func (h *HTTPHandler) ListCategories(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	categories, meta, err := h.repo.ListCategories(ctx, params)
	if err != nil {
		h.logger.WithError(err).Error("failed to list categories")
		InternalError(c, "failed to load categories")
		return
	}

	items := make([]entity.SlugItem, 0, len(categories))
	for _, category := range categories {
		items = append(items, entity.SlugItem{Name: category.Name, Slug: category.Slug})
	}
	c.JSON(http.StatusOK, entity.ListResponse[entity.SlugItem]{Results: items, Meta: meta})
}

func (h *HTTPHandler) CreateCategory(c *gin.Context) {
	name, slug, ok := bindSluggedRequest(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	category := &entity.DbCategory{Name: name, Slug: slug}
	if err := h.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			slugTaken(c, "category")
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("failed to create category")
		InternalError(c, "failed to create category")
		return
	}

	c.JSON(http.StatusCreated, entity.SlugItem{Name: category.Name, Slug: category.Slug})
}

func (h *HTTPHandler) DeleteCategory(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.repo.DeleteCategoryBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeCategoryNotFound, "category not found")
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("failed to delete category")
		InternalError(c, "failed to delete category")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListGenres(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	genres, meta, err := h.repo.ListGenres(ctx, params)
	if err != nil {
		h.logger.WithError(err).Error("failed to list genres")
		InternalError(c, "failed to load genres")
		return
	}

	c.JSON(http.StatusOK, entity.ListResponse[entity.SlugItem]{Results: makeGenreItems(genres), Meta: meta})
}

func (h *HTTPHandler) CreateGenre(c *gin.Context) {
	name, slug, ok := bindSluggedRequest(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	genre := &entity.DbGenre{Name: name, Slug: slug}
	if err := h.repo.CreateGenre(ctx, genre); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			slugTaken(c, "genre")
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("failed to create genre")
		InternalError(c, "failed to create genre")
		return
	}

	c.JSON(http.StatusCreated, entity.SlugItem{Name: genre.Name, Slug: genre.Slug})
}

func (h *HTTPHandler) DeleteGenre(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.repo.DeleteGenreBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeGenreNotFound, "genre not found")
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("failed to delete genre")
		InternalError(c, "failed to delete genre")
		return
	}

	c.Status(http.StatusNoContent)
}

// bindSluggedRequest 解析 name/slug，slug 缺省时由 name 生成。
func bindSluggedRequest(c *gin.Context) (string, string, bool) {
	var req entity.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return "", "", false
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		MissingField(c, "name")
		return "", "", false
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = textutil.Slugify(name)
	}
	if !textutil.IsValidSlug(slug) {
		ValidationFailed(c, "slug", messageInvalidSlug)
		return "", "", false
	}
	return name, slug, true
}

func bindListParams(c *gin.Context) (*entity.BaseParams, bool) {
	var params entity.BaseParams
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return nil, false
	}
	params.Normalize()
	return &params, true
}

func slugTaken(c *gin.Context, kind string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeSlugExists, kind+" with this slug already exists", gin.H{"field": "slug"})
}

func makeGenreItems(genres []entity.DbGenre) []entity.SlugItem {
	items := make([]entity.SlugItem, 0, len(genres))
	for _, genre := range genres {
		items = append(items, entity.SlugItem{Name: genre.Name, Slug: genre.Slug})
	}
	return items
}
