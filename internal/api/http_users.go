package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"yamdb/internal/auth"
	"yamdb/internal/entity"
	"yamdb/internal/permission"
	"yamdb/internal/service"
	"yamdb/internal/textutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const messageInvalidRole = "role must be one of user, moderator, admin"

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query entity.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	users, meta, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		h.logger.WithError(err).Error("failed to list users")
		InternalError(c, "failed to load users")
		return
	}

	response := entity.ListResponse[entity.UserSummary]{
		Results: make([]entity.UserSummary, 0, len(users)),
		Meta:    meta,
	}
	for idx := range users {
		response.Results = append(response.Results, makeUserSummary(&users[idx]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req entity.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	if msg := usernameProblem(username); msg != "" {
		ValidationFailed(c, "username", msg)
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = entity.UserRoleUser
	}
	if !entity.IsValidRole(role) {
		ValidationFailed(c, "role", messageInvalidRole)
		return
	}

	user := &entity.DbUser{
		Username:  username,
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Bio:       textutil.SanitizeText(req.Bio),
		Role:      role,
		IsActive:  true,
	}

	if password := strings.TrimSpace(req.Password); password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			h.logger.WithError(err).Error("failed to hash password for new user")
			InternalError(c, "failed to create user")
			return
		}
		user.PasswordHash = hash
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if h.identityTaken(ctx, c, 0, &user.Username, &user.Email) {
		return
	}

	if err := h.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeUsernameExists, "a user with this username or email already exists")
			return
		}
		h.logger.WithError(err).Error("failed to create user")
		InternalError(c, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, makeUserSummary(user))
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, ok := h.loadUser(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, makeUserSummary(user))
}

func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	var req entity.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, ok := h.loadUser(ctx, c)
	if !ok {
		return
	}
	h.applyUserUpdate(ctx, c, user, req)
}

func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	if strings.TrimSpace(c.Param("username")) == entity.ReservedUsername {
		MethodNotAllowed(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, ok := h.loadUser(ctx, c)
	if !ok {
		return
	}

	if err := h.repo.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "user not found")
			return
		}
		h.logger.WithError(err).WithField("username", user.Username).Error("failed to delete user")
		InternalError(c, "failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMe 返回当前用户资料
func (h *HTTPHandler) GetMe(c *gin.Context) {
	current := CurrentUser(c)
	if current == nil {
		Unauthorized(c, "authentication credentials were not provided")
		return
	}
	c.JSON(http.StatusOK, makeUserSummary(current))
}

// UpdateMe 修改当前用户资料，非管理员的 role 字段被忽略
func (h *HTTPHandler) UpdateMe(c *gin.Context) {
	current := CurrentUser(c)
	if current == nil {
		Unauthorized(c, "authentication credentials were not provided")
		return
	}

	var req entity.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if !permission.CanChangeOwnRole(CurrentActor(c)) {
		req.Role = nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	h.applyUserUpdate(ctx, c, current, req)
}

func (h *HTTPHandler) applyUserUpdate(ctx context.Context, c *gin.Context, user *entity.DbUser, req entity.UserUpdateRequest) {
	var updates entity.UserUpdates

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if msg := usernameProblem(username); msg != "" {
			ValidationFailed(c, "username", msg)
			return
		}
		updates.Username = &username
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		updates.Email = &email
	}
	if req.FirstName != nil {
		firstName := strings.TrimSpace(*req.FirstName)
		updates.FirstName = &firstName
	}
	if req.LastName != nil {
		lastName := strings.TrimSpace(*req.LastName)
		updates.LastName = &lastName
	}
	if req.Bio != nil {
		bio := textutil.SanitizeText(*req.Bio)
		updates.Bio = &bio
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if !entity.IsValidRole(role) {
			ValidationFailed(c, "role", messageInvalidRole)
			return
		}
		updates.Role = &role
	}

	if updates.IsEmpty() {
		c.JSON(http.StatusOK, makeUserSummary(user))
		return
	}

	if h.identityTaken(ctx, c, user.ID, updates.Username, updates.Email) {
		return
	}

	if err := h.repo.UpdateUser(ctx, user.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeUsernameExists, "a user with this username or email already exists")
			return
		}
		h.logger.WithError(err).WithField("user_id", user.ID).Error("failed to update user")
		InternalError(c, "failed to update user")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("failed to reload user after update")
		InternalError(c, "failed to load updated user")
		return
	}
	c.JSON(http.StatusOK, makeUserSummary(updated))
}

// identityTaken 检查用户名/邮箱是否已被其他账户占用，占用时写入 400。
func (h *HTTPHandler) identityTaken(ctx context.Context, c *gin.Context, selfID uint, username, email *string) bool {
	if username != nil {
		existing, err := h.repo.GetUserByUsername(ctx, *username)
		switch {
		case err == nil && existing.ID != selfID:
			ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeUsernameExists, service.MessageUsernameTaken, gin.H{"field": "username"})
			return true
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			h.logger.WithError(err).Error("failed to check username")
			InternalError(c, "failed to check username")
			return true
		}
	}
	if email != nil {
		existing, err := h.repo.GetUserByEmail(ctx, *email)
		switch {
		case err == nil && existing.ID != selfID:
			ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeEmailExists, service.MessageEmailTaken, gin.H{"field": "email"})
			return true
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			h.logger.WithError(err).Error("failed to check email")
			InternalError(c, "failed to check email")
			return true
		}
	}
	return false
}

func (h *HTTPHandler) loadUser(ctx context.Context, c *gin.Context) (*entity.DbUser, bool) {
	username := strings.TrimSpace(c.Param("username"))
	user, err := h.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "user not found")
			return nil, false
		}
		h.logger.WithError(err).WithField("username", username).Error("failed to load user")
		InternalError(c, "failed to load user")
		return nil, false
	}
	return user, true
}

func usernameProblem(username string) string {
	switch {
	case username == "":
		return "username is required"
	case username == entity.ReservedUsername:
		return service.MessageReservedUsername
	case len(username) > 150 || !textutil.IsValidUsername(username):
		return service.MessageInvalidUsername
	default:
		return ""
	}
}

func makeUserSummary(user *entity.DbUser) entity.UserSummary {
	if user == nil {
		return entity.UserSummary{}
	}
	return entity.UserSummary{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
		Role:      user.Role,
	}
}
