package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(cfg AuthConfig) *gin.Engine {
	engine := gin.New()
	engine.GET("/me", Auth(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":     UserID(c),
			"log_user_id": c.Request.Context().Value(logger.UserIDKey),
		})
	})
	return engine
}

func request(engine *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	manager := utils.NewJWTManager("secret", "storywriter")
	valid, err := manager.GenerateAccessToken("user-1", "a@b.c", time.Hour)
	require.NoError(t, err)
	expired, err := manager.GenerateAccessToken("user-1", "a@b.c", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := utils.NewJWTManager("secret", "someone-else").GenerateAccessToken("user-1", "", time.Hour)
	require.NoError(t, err)

	engine := newAuthEngine(AuthConfig{Secret: "secret", Issuer: "storywriter"})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "missing authorization header"},
		{"bad format", "Token " + valid, http.StatusUnauthorized, "invalid authorization format"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"wrong issuer", "Bearer " + otherIssuer, http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(engine, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, w.Body.String(), tt.wantMsg)
			} else {
				assert.JSONEq(t, `{"user_id":"user-1","log_user_id":"user-1"}`, w.Body.String())
			}
		})
	}
}

func TestAuth_AnonymousFallback(t *testing.T) {
	engine := newAuthEngine(AuthConfig{Secret: "secret", AnonymousUserID: "dev-user"})

	w := request(engine, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"dev-user"`)

	// 携带了无效令牌时不回落到匿名用户
	w = request(engine, "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
