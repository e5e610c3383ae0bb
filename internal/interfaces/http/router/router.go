// Package router 提供 HTTP 路由配置
package router

import (
	"storywriter-api/internal/config"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/internal/interfaces/http/handler"
	"storywriter-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterHandlers 路由依赖的处理器
type RouterHandlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Story        *handler.StoryHandler
	Conversation *handler.ConversationHandler
}

// RouterMiddlewares 需要外部依赖构造的中间件
type RouterMiddlewares struct {
	Auth      gin.HandlerFunc
	RateLimit gin.HandlerFunc
	Analytics gin.HandlerFunc
}

// Router HTTP 路由器
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	handlers    RouterHandlers
	middlewares RouterMiddlewares
}

// NewWithDeps 创建路由器并注册全部路由
func NewWithDeps(cfg *config.Config, handlers RouterHandlers, middlewares RouterMiddlewares) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidator()

	r := &Router{
		engine:      gin.New(),
		cfg:         cfg,
		handlers:    handlers,
		middlewares: middlewares,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   r.cfg.Observability.Audit.Enabled,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers
	mw := r.middlewares

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.engine.Group("/api")

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("", orNext(mw.Auth))
	{
		authed.GET("/user", h.Auth.Me)

		authed.POST("/stories/generate", orNext(mw.RateLimit), orNext(mw.Analytics), h.Story.Generate)

		stories := authed.Group("/v1/stories")
		{
			stories.GET("", h.Story.List)
			stories.GET("/:slug", h.Story.Show)
		}

		conversation := authed.Group("/conversation")
		{
			conversation.POST("/tts", h.Conversation.TextToSpeech)
			conversation.GET("/voices", h.Conversation.Voices)
		}
	}
}

// orNext 未提供的中间件以直通代替
func orNext(mw gin.HandlerFunc) gin.HandlerFunc {
	if mw != nil {
		return mw
	}
	return func(c *gin.Context) { c.Next() }
}
