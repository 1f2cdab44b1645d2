package middleware

import (
	"errors"
	"net/http"

	"phonescout/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 在进入处理器前获取一个令牌，超时返回 429。
// limiter 为 nil 时不限流。
func RateLimit(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if err := limiter.Acquire(c.Request.Context()); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitTimeout) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
