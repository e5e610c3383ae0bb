package middleware

import (
	"context"
	"net/http"
	"time"

	"storywriter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditConfig 审计配置
type AuditConfig struct {
	Enabled bool
	// SkipPaths 不记录的路径（探针、指标抓取）
	SkipPaths []string
}

// Audit 每个请求结束后记录一条访问日志，5xx 记为 error，4xx 记为 warn
func Audit(cfg AuditConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		auditLog(c.Request.Context(), status, fields)
	}
}

func auditLog(ctx context.Context, status int, fields []any) {
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error(ctx, "api audit", nil, fields...)
	case status >= http.StatusBadRequest:
		logger.Warn(ctx, "api audit", fields...)
	default:
		logger.Info(ctx, "api audit", fields...)
	}
}

// DefaultAuditSkipPaths 探针与指标路径
var DefaultAuditSkipPaths = []string{"/health", "/ready", "/live", "/metrics"}
