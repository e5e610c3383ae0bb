// Package together 封装 Together AI 的文本与图像生成接口
package together

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"storywriter-api/internal/config"
)

const providerName = "together"

// ErrNotConfigured 未配置 API Key
var ErrNotConfigured = errors.New("together: api key not configured")

// ErrorKind 调用失败类别
type ErrorKind string

const (
	// KindUnavailable 网络错误或非 2xx 响应
	KindUnavailable ErrorKind = "unavailable"
	// KindBadResponse 2xx 但缺少预期字段
	KindBadResponse ErrorKind = "bad_response"
)

// ProviderError 上游调用失败
type ProviderError struct {
	Kind           ErrorKind
	Operation      string
	ProviderStatus int
	ProviderBody   any
	Err            error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("together %s %s", e.Operation, e.Kind)
	if e.ProviderStatus != 0 {
		msg += fmt.Sprintf(" (status %d)", e.ProviderStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Client Together AI 客户端
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string

	text      *openai.Client
	imageHTTP *http.Client
}

// NewClient 创建 Together AI 客户端，api key 为空时仍可构造，调用时返回 ErrNotConfigured
func NewClient(cfg *config.TogetherConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	textCfg := openai.DefaultConfig(cfg.APIKey)
	textCfg.BaseURL = baseURL
	textCfg.HTTPClient = &http.Client{Timeout: orDefault(cfg.TextTimeout, 60*time.Second)}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		text:       openai.NewClientWithConfig(textCfg),
		imageHTTP:  &http.Client{Timeout: orDefault(cfg.ImageTimeout, 45*time.Second)},
	}
}

// Configured 是否已配置 API Key
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.apiKey) != ""
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
