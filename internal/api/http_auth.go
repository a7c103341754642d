package api

import (
	"context"
	"net/http"

	"yamdb/internal/entity"

	"github.com/gin-gonic/gin"
)

// Signup 注册或重新发送确认码
func (h *HTTPHandler) Signup(c *gin.Context) {
	var req entity.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	resp, err := h.signupService.RequestSignup(ctx, req)
	if err != nil {
		if serviceFailed(c, err) {
			return
		}
		h.logger.WithError(err).WithField("username", req.Username).Error("signup failed")
		InternalError(c, "failed to process signup")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Token 用确认码换取访问令牌
func (h *HTTPHandler) Token(c *gin.Context) {
	var req entity.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	resp, err := h.signupService.ObtainToken(ctx, req)
	if err != nil {
		if serviceFailed(c, err) {
			return
		}
		h.logger.WithError(err).WithField("username", req.Username).Error("token exchange failed")
		InternalError(c, "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, resp)
}
