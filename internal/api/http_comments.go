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

func (h *HTTPHandler) ListComments(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	review, ok := h.loadReview(ctx, c)
	if !ok {
		return
	}

	comments, meta, err := h.repo.ListComments(ctx, review.ID, params)
	if err != nil {
		h.logger.WithError(err).WithField("review_id", review.ID).Error("failed to list comments")
		InternalError(c, "failed to load comments")
		return
	}

	items := make([]entity.CommentItem, 0, len(comments))
	for idx := range comments {
		items = append(items, makeCommentItem(&comments[idx]))
	}
	c.JSON(http.StatusOK, entity.ListResponse[entity.CommentItem]{Results: items, Meta: meta})
}

func (h *HTTPHandler) CreateComment(c *gin.Context) {
	var req entity.CommentRequest
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

	review, ok := h.loadReview(ctx, c)
	if !ok {
		return
	}

	author := CurrentUser(c)
	if author == nil {
		Unauthorized(c, "authentication credentials were not provided")
		return
	}

	comment := &entity.DbComment{
		ReviewID: review.ID,
		AuthorID: author.ID,
		Text:     text,
		PubDate:  h.now(),
	}
	if err := h.repo.CreateComment(ctx, comment); err != nil {
		h.logger.WithError(err).WithField("review_id", review.ID).Error("failed to create comment")
		InternalError(c, "failed to create comment")
		return
	}
	comment.Author = author

	c.JSON(http.StatusCreated, makeCommentItem(comment))
}

func (h *HTTPHandler) GetComment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	comment, ok := h.loadComment(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, makeCommentItem(comment))
}

func (h *HTTPHandler) UpdateComment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	comment, ok := h.loadComment(ctx, c)
	if !ok {
		return
	}
	if !h.checkObject(c, permission.ReadOnlyOrAuthorOrAdmin, comment.AuthorID) {
		return
	}

	var req entity.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	text := textutil.SanitizeText(req.Text)
	if text == "" {
		MissingField(c, "text")
		return
	}

	if err := h.repo.UpdateComment(ctx, comment.ID, text); err != nil {
		h.logger.WithError(err).WithField("comment_id", comment.ID).Error("failed to update comment")
		InternalError(c, "failed to update comment")
		return
	}
	comment.Text = text

	c.JSON(http.StatusOK, makeCommentItem(comment))
}

func (h *HTTPHandler) DeleteComment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	comment, ok := h.loadComment(ctx, c)
	if !ok {
		return
	}
	if !h.checkObject(c, permission.ReadOnlyOrAuthorOrAdmin, comment.AuthorID) {
		return
	}

	if err := h.repo.DeleteComment(ctx, comment.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeCommentNotFound, "comment not found")
			return
		}
		h.logger.WithError(err).WithField("comment_id", comment.ID).Error("failed to delete comment")
		InternalError(c, "failed to delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) loadComment(ctx context.Context, c *gin.Context) (*entity.DbComment, bool) {
	review, ok := h.loadReview(ctx, c)
	if !ok {
		return nil, false
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		NotFound(c, ErrCodeCommentNotFound, "comment not found")
		return nil, false
	}

	comment, err := h.repo.GetComment(ctx, review.ID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeCommentNotFound, "comment not found")
			return nil, false
		}
		h.logger.WithError(err).WithField("comment_id", commentID).Error("failed to load comment")
		InternalError(c, "failed to load comment")
		return nil, false
	}
	return comment, true
}

func makeCommentItem(comment *entity.DbComment) entity.CommentItem {
	item := entity.CommentItem{
		ID:      comment.ID,
		Review:  comment.ReviewID,
		Text:    comment.Text,
		PubDate: comment.PubDate,
	}
	if comment.Author != nil {
		item.Author = comment.Author.Username
	}
	return item
}
