// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Providers     ProvidersConfig     `yaml:"providers" mapstructure:"providers"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate" mapstructure:"auto_migrate"`
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	KeyPrefix    string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ProvidersConfig 第三方 AI 服务配置
type ProvidersConfig struct {
	Together   TogetherConfig   `yaml:"together" mapstructure:"together"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs" mapstructure:"elevenlabs"`
}

// TogetherConfig Together AI（文本 + 图像生成）配置
type TogetherConfig struct {
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	TextModel    string        `yaml:"text_model" mapstructure:"text_model"`
	ImageModel   string        `yaml:"image_model" mapstructure:"image_model"`
	TextTimeout  time.Duration `yaml:"text_timeout" mapstructure:"text_timeout"`
	ImageTimeout time.Duration `yaml:"image_timeout" mapstructure:"image_timeout"`
	ImageWidth   int           `yaml:"image_width" mapstructure:"image_width"`
	ImageHeight  int           `yaml:"image_height" mapstructure:"image_height"`
	ImageSteps   int           `yaml:"image_steps" mapstructure:"image_steps"`
}

// ElevenLabsConfig ElevenLabs 语音服务配置
type ElevenLabsConfig struct {
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	DefaultModel string        `yaml:"default_model" mapstructure:"default_model"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	VoicesTTL    time.Duration `yaml:"voices_ttl" mapstructure:"voices_ttl"`
}

// GenerationConfig 故事生成流水线配置
type GenerationConfig struct {
	// PromptID 使用的提示词模板版本
	PromptID string `yaml:"prompt_id" mapstructure:"prompt_id"`
	// CoverPromptID 封面图提示词模板版本
	CoverPromptID string `yaml:"cover_prompt_id" mapstructure:"cover_prompt_id"`
	// TemplateDir 非空时优先从该目录读取模板，覆盖内置模板
	TemplateDir string `yaml:"template_dir" mapstructure:"template_dir"`

	DefaultMaxTokens   int     `yaml:"default_max_tokens" mapstructure:"default_max_tokens"`
	DefaultTemperature float64 `yaml:"default_temperature" mapstructure:"default_temperature"`

	// RequestTimeout 单次生成请求的总时限
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// ImageEnabled 关闭后跳过封面图生成
	ImageEnabled bool `yaml:"image_enabled" mapstructure:"image_enabled"`
	// ParallelImage 文本与图像并发请求
	ParallelImage bool `yaml:"parallel_image" mapstructure:"parallel_image"`
	// AnonymousOwnerID 仅用于本地开发：未认证请求归属的用户
	AnonymousOwnerID string `yaml:"anonymous_owner_id" mapstructure:"anonymous_owner_id"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// AuditConfig 访问审计与故事分析配置
type AuditConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	StoryAnalytics   bool `yaml:"story_analytics" mapstructure:"story_analytics"`
	MaxInputBodySize int  `yaml:"max_input_body_size" mapstructure:"max_input_body_size"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret     string        `yaml:"secret" mapstructure:"secret"`
	Issuer     string        `yaml:"issuer" mapstructure:"issuer"`
	Expiration time.Duration `yaml:"expiration" mapstructure:"expiration"`
}

// RateLimitConfig 限流配置（仅作用于生成接口）
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window" mapstructure:"requests_per_window"`
	Window            time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
