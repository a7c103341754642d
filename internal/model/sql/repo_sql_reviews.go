package sql

import (
	"context"
	"fmt"

	"yamdb/internal/entity"

	"gorm.io/gorm"
)

// ListReviews returns the reviews of a title, newest first.
func (r *GormRepository) ListReviews(ctx context.Context, titleID uint, params *entity.BaseParams) ([]entity.DbReview, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbReview{}).Where("title_id = ?", titleID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	paged, page, pageSize := paginate(query.Order("pub_date DESC, id DESC"), params)
	var reviews []entity.DbReview
	if err := paged.Preload("Author").Find(&reviews).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return reviews, meta, nil
}

// GetReview loads a review that belongs to the given title.
func (r *GormRepository) GetReview(ctx context.Context, titleID, reviewID uint) (*entity.DbReview, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if titleID == 0 || reviewID == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var review entity.DbReview
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND title_id = ?", reviewID, titleID).
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// CreateReview inserts a review. A second review by the same author for the
// same title fails with gorm.ErrDuplicatedKey.
func (r *GormRepository) CreateReview(ctx context.Context, review *entity.DbReview) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if review == nil {
		return fmt.Errorf("review is nil")
	}
	return r.db.WithContext(ctx).Omit("Author").Create(review).Error
}

// UpdateReview updates text and score.
func (r *GormRepository) UpdateReview(ctx context.Context, id uint, updates entity.ReviewUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid review id")
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbReview{}).Where("id = ?", id).Updates(values).Error
}

// DeleteReview removes a review and its comments.
func (r *GormRepository) DeleteReview(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid review id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&entity.DbComment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entity.DbReview{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListComments returns the comments of a review, oldest first.
func (r *GormRepository) ListComments(ctx context.Context, reviewID uint, params *entity.BaseParams) ([]entity.DbComment, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbComment{}).Where("review_id = ?", reviewID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	paged, page, pageSize := paginate(query.Order("pub_date ASC, id ASC"), params)
	var comments []entity.DbComment
	if err := paged.Preload("Author").Find(&comments).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return comments, meta, nil
}

// GetComment loads a comment that belongs to the given review.
func (r *GormRepository) GetComment(ctx context.Context, reviewID, commentID uint) (*entity.DbComment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if reviewID == 0 || commentID == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var comment entity.DbComment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND review_id = ?", commentID, reviewID).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateComment inserts a comment.
func (r *GormRepository) CreateComment(ctx context.Context, comment *entity.DbComment) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if comment == nil {
		return fmt.Errorf("comment is nil")
	}
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}

// UpdateComment replaces the comment text.
func (r *GormRepository) UpdateComment(ctx context.Context, id uint, text string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid comment id")
	}
	return r.db.WithContext(ctx).Model(&entity.DbComment{}).Where("id = ?", id).Update("text", text).Error
}

// DeleteComment removes a comment by ID.
func (r *GormRepository) DeleteComment(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid comment id")
	}

	result := r.db.WithContext(ctx).Delete(&entity.DbComment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
