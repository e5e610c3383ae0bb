// Package wire 提供依赖注入配置
package wire

import (
	"context"

	appstory "storywriter-api/internal/application/story"
	"storywriter-api/internal/config"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/persistence/postgres"
	"storywriter-api/internal/infrastructure/persistence/redis"
	"storywriter-api/internal/infrastructure/provider/elevenlabs"
	"storywriter-api/internal/infrastructure/provider/together"
	"storywriter-api/internal/interfaces/http/handler"
	"storywriter-api/internal/interfaces/http/middleware"
	"storywriter-api/internal/interfaces/http/router"
	"storywriter-api/internal/workflow/prompt"
	"storywriter-api/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端；未启用或连接失败时返回 nil，缓存与限流随之关闭
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and rate limit disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideCache 提供读穿缓存
func ProvideCache(client *redis.Client) *redis.Cache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

// ProvideRateLimiter 提供限流器；返回接口 nil 以便中间件直接放行
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideVoiceCache 提供音色列表缓存
func ProvideVoiceCache(cache *redis.Cache) handler.VoiceCache {
	if cache == nil {
		return nil
	}
	return cache
}

// ProvideTogetherClient 提供 Together AI 客户端
func ProvideTogetherClient(cfg *config.Config) *together.Client {
	return together.NewClient(&cfg.Providers.Together)
}

// ProvideElevenLabsClient 提供 ElevenLabs 客户端
func ProvideElevenLabsClient(cfg *config.Config) *elevenlabs.Client {
	return elevenlabs.NewClient(&cfg.Providers.ElevenLabs)
}

// ProvidePromptBuilder 提供提示词渲染器
func ProvidePromptBuilder(cfg *config.Config) *prompt.Builder {
	registry := prompt.NewRegistry(cfg.Generation.TemplateDir)
	return prompt.NewBuilder(registry,
		prompt.PromptID(cfg.Generation.PromptID),
		prompt.PromptID(cfg.Generation.CoverPromptID),
	)
}

// ProvideGenerator 提供故事生成流水线
func ProvideGenerator(cfg *config.Config, provider *together.Client, prompts *prompt.Builder, stories repository.StoryRepository) *appstory.Generator {
	gen := cfg.Generation
	image := cfg.Providers.Together
	return appstory.NewGenerator(provider, prompts, stories, appstory.GeneratorConfig{
		DefaultMaxTokens:   gen.DefaultMaxTokens,
		DefaultTemperature: gen.DefaultTemperature,
		RequestTimeout:     gen.RequestTimeout,
		ImageEnabled:       gen.ImageEnabled,
		ParallelImage:      gen.ParallelImage,
		ImageWidth:         image.ImageWidth,
		ImageHeight:        image.ImageHeight,
		ImageSteps:         image.ImageSteps,
	})
}

// ProvideAuthHandler 提供认证处理器
func ProvideAuthHandler(cfg *config.Config, users repository.UserRepository) *handler.AuthHandler {
	return handler.NewAuthHandler(handler.AuthConfig{
		Secret:   cfg.Security.JWT.Secret,
		Issuer:   cfg.Security.JWT.Issuer,
		TokenTTL: cfg.Security.JWT.Expiration,
	}, users)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	var redisChecker handler.HealthChecker
	if rc != nil {
		redisChecker = rc
	}
	return handler.NewHealthHandler(cfg.App.Version, pg, redisChecker)
}

// ProvideConversationHandler 提供语音处理器
func ProvideConversationHandler(cfg *config.Config, speech *elevenlabs.Client, cache handler.VoiceCache) *handler.ConversationHandler {
	return handler.NewConversationHandler(speech, cache, cfg.Providers.ElevenLabs.VoicesTTL)
}

// ProvideRouterMiddlewares 提供依赖外部组件的中间件
func ProvideRouterMiddlewares(cfg *config.Config, limiter middleware.RateLimiter, analytics repository.StoryAnalyticsRepository) router.RouterMiddlewares {
	return router.RouterMiddlewares{
		Auth: middleware.Auth(middleware.AuthConfig{
			Secret:          cfg.Security.JWT.Secret,
			Issuer:          cfg.Security.JWT.Issuer,
			AnonymousUserID: cfg.Generation.AnonymousOwnerID,
		}),
		RateLimit: middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:  cfg.Security.RateLimit.Enabled,
			Requests: cfg.Security.RateLimit.RequestsPerWindow,
			Window:   cfg.Security.RateLimit.Window,
			Endpoint: "stories.generate",
			KeyFunc:  redis.BuildRateLimitKey,
		}, limiter),
		Analytics: middleware.StoryAnalytics(middleware.AnalyticsConfig{
			Enabled:     cfg.Observability.Audit.StoryAnalytics,
			MaxBodySize: cfg.Observability.Audit.MaxInputBodySize,
		}, analytics),
	}
}
