// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ContextKeyUserID gin.Context 中保存当前用户 ID 的键
const ContextKeyUserID = "user_id"

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// AnonymousUserID 非空时未携带令牌的请求归属该用户（仅限本地开发）
	AnonymousUserID string
}

// Auth 认证中间件，校验 Bearer 访问令牌并注入用户 ID
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.AnonymousUserID != "" {
				setUser(c, cfg.AnonymousUserID)
				c.Next()
				return
			}
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "invalid authorization format")
			return
		}

		claims, err := jwtManager.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		if claims.Type != utils.TokenTypeAccess || claims.UserID == "" {
			abortUnauthorized(c, "invalid token type")
			return
		}

		setUser(c, claims.UserID)
		c.Next()
	}
}

// UserID 返回认证中间件注入的用户 ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func setUser(c *gin.Context, userID string) {
	c.Set(ContextKeyUserID, userID)
	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
	c.Request = c.Request.WithContext(ctx)
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     http.StatusUnauthorized,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
