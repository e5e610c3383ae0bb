package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(context.Context) error {
	return s.err
}

func newHealthEngine(h *HealthHandler) *gin.Engine {
	engine := gin.New()
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
	engine.GET("/live", h.Live)
	return engine
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name        string
		pg          HealthChecker
		redis       HealthChecker
		wantStatus  int
		wantRedis   string
		wantOverall string
	}{
		{"all ok", stubChecker{}, stubChecker{}, http.StatusOK, "ok", "ok"},
		{"redis disabled", stubChecker{}, nil, http.StatusOK, "disabled", "ok"},
		{"redis down degrades", stubChecker{}, stubChecker{err: errors.New("refused")}, http.StatusOK, "degraded", "ok"},
		{"postgres down", stubChecker{err: errors.New("refused")}, stubChecker{}, http.StatusServiceUnavailable, "ok", "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newHealthEngine(NewHealthHandler("v1.0.0", tt.pg, tt.redis))
			w := doJSON(t, engine, http.MethodGet, "/ready", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantOverall, body["status"])
			checks := body["checks"].(map[string]any)
			assert.Equal(t, tt.wantRedis, checks["redis"].(map[string]any)["status"])
		})
	}
}

func TestHealthHandler_HealthAndLive(t *testing.T) {
	engine := newHealthEngine(NewHealthHandler("v1.0.0", stubChecker{}, nil))

	w := doJSON(t, engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1.0.0", decode(t, w)["version"])

	w = doJSON(t, engine, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
