package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yamdb/internal/entity"

	"gorm.io/gorm"
)

// CreateUser persists a new user record.
func (r *GormRepository) CreateUser(ctx context.Context, user *entity.DbUser) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// UpdateUser updates an existing user entry.
func (r *GormRepository) UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid user")
	}
	if updates.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbUser{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// GetUserByID loads a user by ID.
func (r *GormRepository) GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername loads a user by exact username.
func (r *GormRepository) GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if username == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail loads a user by exact email.
func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return nil, fmt.Errorf("email is empty")
	}

	var user entity.DbUser
	if err := r.db.WithContext(ctx).Where("email = ?", trimmed).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns paginated users.
func (r *GormRepository) ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbUser{})
	var base *entity.BaseParams
	if params != nil {
		base = &params.BaseParams
		if trimmed := strings.TrimSpace(params.Role); trimmed != "" {
			query = query.Where("role = ?", trimmed)
		}
		if keyword := strings.TrimSpace(params.Search); keyword != "" {
			query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(keyword)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	paged, page, pageSize := paginate(query.Order("username ASC"), base)
	var users []entity.DbUser
	if err := paged.Find(&users).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return users, meta, nil
}

// DeleteUser removes a user together with their reviews and comments.
func (r *GormRepository) DeleteUser(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid user id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewIDs := tx.Model(&entity.DbReview{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviewIDs).Delete(&entity.DbComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&entity.DbComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&entity.DbReview{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&entity.DbUser{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountUsers returns total user count.
func (r *GormRepository) CountUsers(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.DbUser{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SetConfirmationCode replaces the user's confirmation code.
func (r *GormRepository) SetConfirmationCode(ctx context.Context, userID uint, code string, issuedAt time.Time, ttl time.Duration) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return fmt.Errorf("invalid user id")
	}
	if code == "" {
		return fmt.Errorf("confirmation code is empty")
	}

	result := r.db.WithContext(ctx).
		Model(&entity.DbUser{}).
		Where("id = ?", userID).
		Updates(entity.ConfirmationUpdates(code, issuedAt.UTC(), ttl))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeConfirmationCode activates the user and clears the code in one
// conditional update. It returns gorm.ErrRecordNotFound when the code does
// not match, has expired or was already used.
func (r *GormRepository) ConsumeConfirmationCode(ctx context.Context, userID uint, code string, now time.Time) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if userID == 0 || code == "" {
		return gorm.ErrRecordNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&entity.DbUser{}).
		Where("id = ? AND confirmation_code = ?", userID, code).
		Where("(confirmation_expires_at IS NULL OR confirmation_expires_at > ?)", now.UTC()).
		Updates(map[string]interface{}{
			"is_active":               true,
			"confirmation_code":       "",
			"confirmation_issued_at":  nil,
			"confirmation_expires_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearExpiredConfirmationCodes wipes codes whose expiry has passed.
func (r *GormRepository) ClearExpiredConfirmationCodes(ctx context.Context, now time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}

	result := r.db.WithContext(ctx).
		Model(&entity.DbUser{}).
		Where("confirmation_code <> ''").
		Where("confirmation_expires_at IS NOT NULL AND confirmation_expires_at <= ?", now.UTC()).
		Updates(map[string]interface{}{
			"confirmation_code":       "",
			"confirmation_issued_at":  nil,
			"confirmation_expires_at": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
