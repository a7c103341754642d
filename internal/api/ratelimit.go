package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// 跟踪的客户端上限，超过后整体清空
const maxTrackedClients = 10000

// limiterCache keeps one token bucket per client key.
type limiterCache struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache(rps float64, burst int) *limiterCache {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterCache{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache) get(key string) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	if len(lc.limiters) >= maxTrackedClients {
		lc.limiters = make(map[string]*rate.Limiter)
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// Allow reports whether key may proceed. A nil cache never limits.
func (lc *limiterCache) Allow(key string) bool {
	if lc == nil {
		return true
	}
	return lc.get(key).Allow()
}

// RateLimitMiddleware 按客户端 IP 限流（AUTH_RATE_LIMIT <= 0 时关闭）
func (h *HTTPHandler) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authLimiter.Allow(c.ClientIP()) {
			h.logger.WithField("client_ip", c.ClientIP()).Warn("auth rate limit exceeded")
			ErrorResponse(c, http.StatusTooManyRequests, ErrCodeTooManyRequests, "rate limit exceeded, please slow down")
			return
		}
		c.Next()
	}
}
