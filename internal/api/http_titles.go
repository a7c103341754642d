package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"yamdb/internal/entity"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *HTTPHandler) ListTitles(c *gin.Context) {
	var query entity.TitleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	titles, meta, err := h.repo.ListTitles(ctx, &query)
	if err != nil {
		h.logger.WithError(err).Error("failed to list titles")
		InternalError(c, "failed to load titles")
		return
	}

	items := make([]entity.TitleItem, 0, len(titles))
	for idx := range titles {
		items = append(items, makeTitleItem(&titles[idx]))
	}
	c.JSON(http.StatusOK, entity.ListResponse[entity.TitleItem]{Results: items, Meta: meta})
}

func (h *HTTPHandler) GetTitle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, makeTitleItem(title))
}

func (h *HTTPHandler) CreateTitle(c *gin.Context) {
	var req entity.TitleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		MissingField(c, "name")
		return
	}
	if !h.validYear(c, *req.Year) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	categoryID, ok := h.resolveCategory(ctx, c, req.Category)
	if !ok {
		return
	}
	genreIDs, ok := h.resolveGenres(ctx, c, req.Genre)
	if !ok {
		return
	}

	title := &entity.DbTitle{
		Name:        name,
		Year:        *req.Year,
		Description: strings.TrimSpace(req.Description),
		CategoryID:  &categoryID,
	}
	if err := h.repo.CreateTitle(ctx, title, genreIDs); err != nil {
		h.logger.WithError(err).Error("failed to create title")
		InternalError(c, "failed to create title")
		return
	}

	h.respondTitle(ctx, c, http.StatusCreated, title.ID)
}

func (h *HTTPHandler) UpdateTitle(c *gin.Context) {
	var req entity.TitleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return
	}

	var updates entity.TitleUpdates
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			MissingField(c, "name")
			return
		}
		updates.Name = &name
	}
	if req.Year != nil {
		if !h.validYear(c, *req.Year) {
			return
		}
		updates.Year = req.Year
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		updates.Description = &description
	}
	if req.Category != nil {
		categoryID, ok := h.resolveCategory(ctx, c, *req.Category)
		if !ok {
			return
		}
		ref := &categoryID
		updates.CategoryID = &ref
	}

	var genreIDs *[]uint
	if req.Genre != nil {
		ids, ok := h.resolveGenres(ctx, c, *req.Genre)
		if !ok {
			return
		}
		genreIDs = &ids
	}

	if err := h.repo.UpdateTitle(ctx, title.ID, updates, genreIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeTitleNotFound, "title not found")
			return
		}
		h.logger.WithError(err).WithField("title_id", title.ID).Error("failed to update title")
		InternalError(c, "failed to update title")
		return
	}

	h.respondTitle(ctx, c, http.StatusOK, title.ID)
}

func (h *HTTPHandler) DeleteTitle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return
	}
	if err := h.repo.DeleteTitle(ctx, title.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeTitleNotFound, "title not found")
			return
		}
		h.logger.WithError(err).WithField("title_id", title.ID).Error("failed to delete title")
		InternalError(c, "failed to delete title")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) respondTitle(ctx context.Context, c *gin.Context, status int, id uint) {
	title, err := h.repo.GetTitle(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("title_id", id).Error("failed to reload title")
		InternalError(c, "failed to load title")
		return
	}
	c.JSON(status, makeTitleItem(title))
}

func (h *HTTPHandler) loadTitle(ctx context.Context, c *gin.Context) (*entity.DbTitle, bool) {
	id, ok := pathID(c, "title_id")
	if !ok {
		NotFound(c, ErrCodeTitleNotFound, "title not found")
		return nil, false
	}
	title, err := h.repo.GetTitle(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeTitleNotFound, "title not found")
			return nil, false
		}
		h.logger.WithError(err).WithField("title_id", id).Error("failed to load title")
		InternalError(c, "failed to load title")
		return nil, false
	}
	return title, true
}

// validYear 年份必须在 0 到当前年份之间
func (h *HTTPHandler) validYear(c *gin.Context, year int) bool {
	current := h.now().Year()
	if year < 0 || year > current {
		ValidationFailed(c, "year", fmt.Sprintf("year must be between 0 and %d", current))
		return false
	}
	return true
}

func (h *HTTPHandler) resolveCategory(ctx context.Context, c *gin.Context, slug string) (uint, bool) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		MissingField(c, "category")
		return 0, false
	}
	category, err := h.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("category %q does not exist", slug), gin.H{"field": "category"})
			return 0, false
		}
		h.logger.WithError(err).WithField("slug", slug).Error("failed to load category")
		InternalError(c, "failed to load category")
		return 0, false
	}
	return category.ID, true
}

func (h *HTTPHandler) resolveGenres(ctx context.Context, c *gin.Context, slugs []string) ([]uint, bool) {
	wanted := make([]string, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		wanted = append(wanted, slug)
	}
	if len(wanted) == 0 {
		return []uint{}, true
	}

	genres, err := h.repo.FindGenresBySlugs(ctx, wanted)
	if err != nil {
		h.logger.WithError(err).Error("failed to load genres")
		InternalError(c, "failed to load genres")
		return nil, false
	}

	found := make(map[string]uint, len(genres))
	for _, genre := range genres {
		found[genre.Slug] = genre.ID
	}
	ids := make([]uint, 0, len(wanted))
	for _, slug := range wanted {
		id, ok := found[slug]
		if !ok {
			ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("genre %q does not exist", slug), gin.H{"field": "genre"})
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func makeTitleItem(title *entity.DbTitle) entity.TitleItem {
	item := entity.TitleItem{
		ID:          title.ID,
		Name:        title.Name,
		Year:        title.Year,
		Description: title.Description,
		Genre:       makeGenreItems(title.Genres),
	}
	if title.Rating != nil {
		rating := int(*title.Rating)
		item.Rating = &rating
	}
	if title.Category != nil {
		item.Category = &entity.SlugItem{Name: title.Category.Name, Slug: title.Category.Slug}
	}
	return item
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
