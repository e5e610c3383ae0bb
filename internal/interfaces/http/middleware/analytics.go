package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const analyticsWriteTimeout = 3 * time.Second

// sensitiveInputKeys 写入分析记录前剔除的字段
var sensitiveInputKeys = map[string]struct{}{
	"password": {},
	"token":    {},
	"api_key":  {},
}

// AnalyticsConfig 故事分析配置
type AnalyticsConfig struct {
	Enabled bool
	// MaxBodySize 读取请求体的上限，超出部分不计入 story_inputs
	MaxBodySize int
}

// StoryAnalytics 记录生成请求的输入与耗时，写入失败只记日志
func StoryAnalytics(cfg AnalyticsConfig, repo repository.StoryAnalyticsRepository) gin.HandlerFunc {
	if !cfg.Enabled || repo == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 64 << 10
	}

	return func(c *gin.Context) {
		inputs := captureInputs(c, cfg.MaxBodySize)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		record := &entity.StoryAnalytics{
			StoryInputs:      SanitizeInputs(inputs),
			IPAddress:        c.ClientIP(),
			UserAgent:        c.Request.UserAgent(),
			StatusCode:       c.Writer.Status(),
			GenerationTimeMs: duration.Milliseconds(),
		}
		if userID := UserID(c); userID != "" {
			record.UserID = &userID
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), analyticsWriteTimeout)
		defer cancel()
		if err := repo.Create(ctx, record); err != nil {
			logger.Warn(ctx, "failed to record story analytics", "error", err.Error())
		}
	}
}

// captureInputs 读取请求体与查询参数，并把请求体还原给后续处理器
func captureInputs(c *gin.Context, limit int) map[string]any {
	inputs := make(map[string]any)
	for key, values := range c.Request.URL.Query() {
		if len(values) == 1 {
			inputs[key] = values[0]
		} else {
			inputs[key] = values
		}
	}

	if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return inputs
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(limit)+1))
	rest := c.Request.Body
	c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), rest), Closer: rest}
	if err != nil || len(body) > limit {
		return inputs
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return inputs
	}
	for key, value := range payload {
		inputs[key] = value
	}
	return inputs
}

type readCloser struct {
	io.Reader
	io.Closer
}

// SanitizeInputs 递归剔除敏感字段，返回新的 map
func SanitizeInputs(inputs map[string]any) map[string]any {
	out := make(map[string]any, len(inputs))
	for key, value := range inputs {
		if _, ok := sensitiveInputKeys[strings.ToLower(key)]; ok {
			continue
		}
		out[key] = sanitizeValue(value)
	}
	return out
}

// sanitizeValue 递归处理对象与数组，标量原样返回
func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return SanitizeInputs(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = sanitizeValue(item)
		}
		return items
	default:
		return value
	}
}
