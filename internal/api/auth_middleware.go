package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"yamdb/internal/entity"
	"yamdb/internal/permission"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	currentActorContextKey = "current-actor"
	currentUserContextKey  = "current-user"
)

// AuthMiddleware 解析可选的 Bearer Token。
// 没有授权头时以匿名身份继续；授权头存在但无效时返回 401。
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Set(currentActorContextKey, permission.Anonymous)
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			Unauthorized(c, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			Unauthorized(c, "bearer token is missing")
			return
		}

		claims, err := h.authManager.ParseToken(tokenString)
		if err != nil {
			h.logger.WithError(err).Warn("failed to parse jwt token")
			ErrorResponse(c, http.StatusUnauthorized, ErrCodeSessionExpired, "token is invalid or expired")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		user, err := h.repo.GetUserByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ErrorResponse(c, http.StatusUnauthorized, ErrCodeUserNotFound, "user not found")
				return
			}
			h.logger.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
			InternalError(c, "failed to authenticate user")
			return
		}

		if !user.IsActive {
			ErrorResponse(c, http.StatusForbidden, ErrCodeUserDisabled, "account is not active")
			return
		}

		c.Set(currentUserContextKey, user)
		c.Set(currentActorContextKey, actorFor(user))
		c.Next()
	}
}

// RequireAuthenticated 拒绝匿名请求
func (h *HTTPHandler) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).Authenticated {
			Unauthorized(c, "authentication credentials were not provided")
			return
		}
		c.Next()
	}
}

// RequirePolicy 在加载资源之前执行请求级权限检查。
func (h *HTTPHandler) RequirePolicy(policy permission.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		decision := policy.CheckRequest(actor, c.Request.Method)
		if !decision.Allowed {
			denied(c, actor, decision.Reason)
			return
		}
		c.Next()
	}
}

// checkObject 执行对象级权限检查，拒绝时写入响应并返回 false。
func (h *HTTPHandler) checkObject(c *gin.Context, policy permission.Policy, ownerID uint) bool {
	actor := CurrentActor(c)
	decision := policy.CheckObject(actor, c.Request.Method, ownerID)
	if !decision.Allowed {
		denied(c, actor, decision.Reason)
		return false
	}
	return true
}

// 匿名请求被拒绝返回 401，已认证请求被拒绝返回 403
func denied(c *gin.Context, actor permission.Actor, reason string) {
	if !actor.Authenticated {
		Unauthorized(c, "authentication credentials were not provided")
		return
	}
	Forbidden(c, reason)
}

func actorFor(user *entity.DbUser) permission.Actor {
	return permission.Actor{
		ID:            user.ID,
		Authenticated: true,
		Role:          user.Role,
		IsSuperuser:   user.IsSuperuser,
	}
}

// CurrentActor 从上下文获取当前请求者，未认证时为匿名
func CurrentActor(c *gin.Context) permission.Actor {
	value, exists := c.Get(currentActorContextKey)
	if !exists {
		return permission.Anonymous
	}
	actor, ok := value.(permission.Actor)
	if !ok {
		return permission.Anonymous
	}
	return actor
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *entity.DbUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*entity.DbUser)
	if !ok {
		return nil
	}
	return user
}
