package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request-id"
)

// RequestIDMiddleware 为每个请求分配 ID，沿用客户端传入的值
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestID 返回当前请求 ID
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.String(),
			"size":       c.Writer.Size(),
			"client_ip":  c.ClientIP(),
			"request_id": RequestID(c),
		}).Info("http_request")
	}
}
