package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"yamdb/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeMethodNotAllowed   = "ERR_METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests    = "ERR_TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	// 认证错误码
	ErrCodeUserDisabled   = "ERR_USER_DISABLED"
	ErrCodeSessionExpired = "ERR_SESSION_EXPIRED"

	// 资源错误码
	ErrCodeUserNotFound     = "ERR_USER_NOT_FOUND"
	ErrCodeCategoryNotFound = "ERR_CATEGORY_NOT_FOUND"
	ErrCodeGenreNotFound    = "ERR_GENRE_NOT_FOUND"
	ErrCodeTitleNotFound    = "ERR_TITLE_NOT_FOUND"
	ErrCodeReviewNotFound   = "ERR_REVIEW_NOT_FOUND"
	ErrCodeCommentNotFound  = "ERR_COMMENT_NOT_FOUND"

	// 业务逻辑错误码
	ErrCodeMissingField   = "ERR_MISSING_FIELD"
	ErrCodeReviewExists   = "ERR_REVIEW_EXISTS"
	ErrCodeSlugExists     = "ERR_SLUG_EXISTS"
	ErrCodeUsernameExists = "ERR_USERNAME_EXISTS"
	ErrCodeEmailExists    = "ERR_EMAIL_EXISTS"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.AbortWithStatusJSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// ValidationFailed 字段校验失败
func ValidationFailed(c *gin.Context, field, message string) {
	var details any
	if field != "" {
		details = gin.H{"field": field}
	}
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeValidation, message, details)
}

// MethodNotAllowed 405，供 gin.NoMethod 使用
func MethodNotAllowed(c *gin.Context) {
	ErrorResponse(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
}

// RouteNotFound 404，供 gin.NoRoute 使用
func RouteNotFound(c *gin.Context) {
	ErrorResponse(c, http.StatusNotFound, ErrCodeNotFound, "not found")
}

// bindFailed 将绑定错误转换为 400 响应。
func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			MissingField(c, field)
		case "email":
			ValidationFailed(c, field, service.MessageInvalidEmail)
		case "max":
			ValidationFailed(c, field, "ensure this field has no more than "+fe.Param()+" characters")
		case "min":
			ValidationFailed(c, field, "ensure this value is at least "+fe.Param())
		default:
			ValidationFailed(c, field, "invalid value")
		}
		return
	}
	InvalidPayload(c)
}

// serviceFailed 渲染服务层错误，未知错误按 500 处理。
func serviceFailed(c *gin.Context, err error) bool {
	if ve, ok := service.AsValidationError(err); ok {
		ValidationFailed(c, ve.Field, ve.Message)
		return true
	}
	if errors.Is(err, service.ErrUserNotFound) {
		NotFound(c, ErrCodeUserNotFound, "user not found")
		return true
	}
	return false
}

var registerTagNameOnce sync.Once

// useJSONFieldNames 让校验错误使用 json 字段名。
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}
