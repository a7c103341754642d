package api

import (
	"context"
	"errors"
	"net/http"

	"yamdb/internal/entity"
	"yamdb/internal/permission"
	"yamdb/internal/textutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const messageReviewExists = "you have already reviewed this title"

func (h *HTTPHandler) ListReviews(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return
	}

	reviews, meta, err := h.repo.ListReviews(ctx, title.ID, params)
	if err != nil {
		h.logger.WithError(err).WithField("title_id", title.ID).Error("failed to list reviews")
		InternalError(c, "failed to load reviews")
		return
	}

	items := make([]entity.ReviewItem, 0, len(reviews))
	for idx := range reviews {
		items = append(items, makeReviewItem(&reviews[idx]))
	}
	c.JSON(http.StatusOK, entity.ListResponse[entity.ReviewItem]{Results: items, Meta: meta})
}

func (h *HTTPHandler) CreateReview(c *gin.Context) {
	var req entity.ReviewCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	text := textutil.SanitizeText(req.Text)
	if text == "" {
		MissingField(c, "text")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return
	}

	author := CurrentUser(c)
	if author == nil {
		Unauthorized(c, "authentication credentials were not provided")
		return
	}

	review := &entity.DbReview{
		TitleID:  title.ID,
		AuthorID: author.ID,
		Text:     text,
		Score:    req.Score,
		PubDate:  h.now(),
	}
	if err := h.repo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeReviewExists, messageReviewExists)
			return
		}
		h.logger.WithError(err).WithField("title_id", title.ID).Error("failed to create review")
		InternalError(c, "failed to create review")
		return
	}
	review.Author = author

	c.JSON(http.StatusCreated, makeReviewItem(review))
}

func (h *HTTPHandler) GetReview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	review, ok := h.loadReview(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, makeReviewItem(review))
}

func (h *HTTPHandler) UpdateReview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	review, ok := h.loadReview(ctx, c)
	if !ok {
		return
	}
	if !h.checkObject(c, permission.ReadOnlyOrAuthorOrAdmin, review.AuthorID) {
		return
	}

	var req entity.ReviewUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	var updates entity.ReviewUpdates
	if req.Text != nil {
		text := textutil.SanitizeText(*req.Text)
		if text == "" {
			MissingField(c, "text")
			return
		}
		updates.Text = &text
	}
	updates.Score = req.Score

	if err := h.repo.UpdateReview(ctx, review.ID, updates); err != nil {
		h.logger.WithError(err).WithField("review_id", review.ID).Error("failed to update review")
		InternalError(c, "failed to update review")
		return
	}

	updated, err := h.repo.GetReview(ctx, review.TitleID, review.ID)
	if err != nil {
		h.logger.WithError(err).WithField("review_id", review.ID).Error("failed to reload review")
		InternalError(c, "failed to load review")
		return
	}
	c.JSON(http.StatusOK, makeReviewItem(updated))
}

func (h *HTTPHandler) DeleteReview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	review, ok := h.loadReview(ctx, c)
	if !ok {
		return
	}
	if !h.checkObject(c, permission.ReadOnlyOrAuthorOrAdmin, review.AuthorID) {
		return
	}

	if err := h.repo.DeleteReview(ctx, review.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeReviewNotFound, "review not found")
			return
		}
		h.logger.WithError(err).WithField("review_id", review.ID).Error("failed to delete review")
		InternalError(c, "failed to delete review")
		return
	}
	c.Status(http.StatusNoContent)
}

// loadReview 加载路径中的评价，评价必须属于路径中的作品。
func (h *HTTPHandler) loadReview(ctx context.Context, c *gin.Context) (*entity.DbReview, bool) {
	title, ok := h.loadTitle(ctx, c)
	if !ok {
		return nil, false
	}
	reviewID, ok := pathID(c, "review_id")
	if !ok {
		NotFound(c, ErrCodeReviewNotFound, "review not found")
		return nil, false
	}

	review, err := h.repo.GetReview(ctx, title.ID, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeReviewNotFound, "review not found")
			return nil, false
		}
		h.logger.WithError(err).WithField("review_id", reviewID).Error("failed to load review")
		InternalError(c, "failed to load review")
		return nil, false
	}
	return review, true
}

func makeReviewItem(review *entity.DbReview) entity.ReviewItem {
	item := entity.ReviewItem{
		ID:      review.ID,
		Title:   review.TitleID,
		Text:    review.Text,
		Score:   review.Score,
		PubDate: review.PubDate,
	}
	if review.Author != nil {
		item.Author = review.Author.Username
	}
	return item
}
