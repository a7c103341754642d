package entity

import "time"

// UserUpdates 用户更新字段
type UserUpdates struct {
	Username     *string
	Email        *string
	FirstName    *string
	LastName     *string
	Bio          *string
	Role         *string
	PasswordHash *string
	IsActive     *bool
	IsSuperuser  *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Username != nil {
		updates["username"] = *u.Username
	}
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.FirstName != nil {
		updates["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		updates["last_name"] = *u.LastName
	}
	if u.Bio != nil {
		updates["bio"] = *u.Bio
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.IsSuperuser != nil {
		updates["is_superuser"] = *u.IsSuperuser
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// ConfirmationUpdates 写入新确认码时的字段。
func ConfirmationUpdates(code string, issuedAt time.Time, ttl time.Duration) map[string]interface{} {
	var expiresAt *time.Time
	if ttl > 0 {
		t := issuedAt.Add(ttl)
		expiresAt = &t
	}
	return map[string]interface{}{
		"confirmation_code":       code,
		"confirmation_issued_at":  issuedAt,
		"confirmation_expires_at": expiresAt,
	}
}

// TitleUpdates 作品更新字段
type TitleUpdates struct {
	Name        *string
	Year        *int
	Description *string
	CategoryID  **uint
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u TitleUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Year != nil {
		updates["year"] = *u.Year
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.CategoryID != nil {
		updates["category_id"] = *u.CategoryID
	}
	return updates
}

// ReviewUpdates 评价更新字段
type ReviewUpdates struct {
	Text  *string
	Score *int
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u ReviewUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Text != nil {
		updates["text"] = *u.Text
	}
	if u.Score != nil {
		updates["score"] = *u.Score
	}
	return updates
}
