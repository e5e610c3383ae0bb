//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	appstory "storywriter-api/internal/application/story"
	"storywriter-api/internal/config"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/persistence/postgres"
	"storywriter-api/internal/interfaces/http/handler"
	"storywriter-api/internal/interfaces/http/router"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
	UserRepo  *postgres.UserRepository
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		ProviderSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	postgres.NewStoryRepository,
	postgres.NewStoryAnalyticsRepository,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.StoryRepository), new(*postgres.StoryRepository)),
	wire.Bind(new(repository.StoryAnalyticsRepository), new(*postgres.StoryAnalyticsRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideCache,
	ProvideRateLimiter,
	ProvideVoiceCache,
)

// ProviderSet 外部 AI 服务与生成流水线
var ProviderSet = wire.NewSet(
	ProvideTogetherClient,
	ProvideElevenLabsClient,
	ProvidePromptBuilder,
	ProvideGenerator,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthHandler,
	ProvideHealthHandler,
	ProvideConversationHandler,
	handler.NewStoryHandler,
	wire.Bind(new(handler.StoryGenerator), new(*appstory.Generator)),
	ProvideRouterMiddlewares,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
