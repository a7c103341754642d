package entity

import (
	"crypto/subtle"
	"time"
)

const (
	UserRoleUser      = "user"
	UserRoleModerator = "moderator"
	UserRoleAdmin     = "admin"
)

// ReservedUsername 不允许注册的用户名。
const ReservedUsername = "me"

// IsValidRole 判断角色是否为合法枚举值。
func IsValidRole(role string) bool {
	switch role {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// ConfirmationCode is the one-time secret mailed to a user during signup.
type ConfirmationCode struct {
	Value     string     `gorm:"column:code;type:varchar(64)" json:"-"`
	IssuedAt  *time.Time `gorm:"column:issued_at" json:"-"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"-"`
}

// IsSet reports whether a code has been issued and not yet consumed.
func (c ConfirmationCode) IsSet() bool {
	return c.Value != ""
}

// Expired reports whether the code is past its expiry. Codes without an
// expiry never expire.
func (c ConfirmationCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Matches compares candidate against the stored code in constant time.
func (c ConfirmationCode) Matches(candidate string) bool {
	if !c.IsSet() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(candidate)) == 1
}

// DbUser represents a persisted user account.
type DbUser struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"date_joined"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"column:username;type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Role         string    `gorm:"column:role;type:varchar(64);index;not null" json:"role"`
	IsSuperuser  bool      `gorm:"column:is_superuser;not null" json:"is_superuser"`
	IsActive     bool      `gorm:"column:is_active;not null" json:"is_active"`
	Bio          string    `gorm:"column:bio;type:text" json:"bio"`
	FirstName    string    `gorm:"column:first_name;type:varchar(150)" json:"first_name"`
	LastName     string    `gorm:"column:last_name;type:varchar(150)" json:"last_name"`

	Confirmation ConfirmationCode `gorm:"embedded;embeddedPrefix:confirmation_" json:"-"`
}

// TableName overrides default pluralised name.
func (DbUser) TableName() string {
	return "users"
}

// IsAdmin reports admin-equivalent authority.
func (u *DbUser) IsAdmin() bool {
	return u != nil && (u.Role == UserRoleAdmin || u.IsSuperuser)
}

// UserSummary is the public user representation.
type UserSummary struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// UserQuery supports listing users with pagination.
type UserQuery struct {
	BaseParams
	Role string `json:"role" form:"role" query:"role"`
}

type UserCreateRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
	Password  string `json:"password,omitempty"`
}

type UserUpdateRequest struct {
	Username  *string `json:"username,omitempty" binding:"omitempty,max=150"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email,max=254"`
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,max=150"`
	Bio       *string `json:"bio,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,max=254"`
}

// SignupResponse echoes the accepted identity.
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Username         string `json:"username" binding:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" binding:"required,max=256"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
