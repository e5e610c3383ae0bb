package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storywriter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Requests 窗口内允许的请求数
	Requests int
	// Window 滑动窗口长度
	Window time.Duration
	// Endpoint 限流键中的接口标识
	Endpoint string
	// KeyFunc 由主体与接口标识构建限流键
	KeyFunc func(subject, endpoint string) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 限流中间件，按用户（未认证时按 IP）计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Requests <= 0 {
		cfg.Requests = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(subject, endpoint string) string {
			return "ratelimit:" + endpoint + ":" + subject
		}
	}

	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if userID := UserID(c); userID != "" {
			subject = "user:" + userID
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = c.FullPath()
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), cfg.KeyFunc(subject, endpoint), cfg.Requests, cfg.Window)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
