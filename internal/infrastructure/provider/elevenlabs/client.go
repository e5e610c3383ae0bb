// Package elevenlabs 封装 ElevenLabs 文本转语音与音色列表接口
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storywriter-api/internal/config"
	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/metrics"
	"storywriter-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
)

const (
	providerName = "elevenlabs"

	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel   = "eleven_multilingual_v2"

	// maxAudioBody 单次合成音频的读取上限
	maxAudioBody = 32 << 20
	// maxJSONBody JSON 响应的读取上限
	maxJSONBody = 4 << 20
)

var (
	// ErrNotConfigured 未配置 API Key
	ErrNotConfigured = errors.New("elevenlabs: api key not configured")
	// ErrBodyTooLarge 上游响应超过读取上限
	ErrBodyTooLarge = errors.New("elevenlabs: response body exceeds limit")
)

// UpstreamError ElevenLabs 返回非 2xx
type UpstreamError struct {
	Operation  string
	StatusCode int
	// Details 上游 JSON 响应体，非 JSON 时为 nil
	Details json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("elevenlabs %s failed with status %d", e.Operation, e.StatusCode)
}

// SpeechRequest 文本转语音请求
type SpeechRequest struct {
	Text          string
	VoiceID       string
	ModelID       string
	VoiceSettings json.RawMessage
}

type speechPayload struct {
	Text          string          `json:"text"`
	ModelID       string          `json:"model_id"`
	VoiceSettings json.RawMessage `json:"voice_settings"`
}

// Client ElevenLabs 客户端
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	audioLimit   int64
	http         *http.Client
}

// NewClient 创建客户端，api key 为空时仍可构造，调用时返回 ErrNotConfigured
func NewClient(cfg *config.ElevenLabsConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		defaultModel: model,
		audioLimit:   maxAudioBody,
		http:         &http.Client{Timeout: timeout},
	}
}

// Configured 是否已配置 API Key
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.apiKey) != ""
}

// TextToSpeech 合成语音，返回 audio/mpeg 字节
func (c *Client) TextToSpeech(ctx context.Context, req SpeechRequest) (audio []byte, err error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "elevenlabs.TextToSpeech")
	span.SetAttributes(
		attribute.String("elevenlabs.voice_id", req.VoiceID),
		attribute.Int("elevenlabs.text_length", len(req.Text)),
	)
	defer func() { tracer.End(span, err) }()

	payload := speechPayload{
		Text:          req.Text,
		ModelID:       req.ModelID,
		VoiceSettings: req.VoiceSettings,
	}
	if payload.ModelID == "" {
		payload.ModelID = c.defaultModel
	}
	if len(payload.VoiceSettings) == 0 {
		payload.VoiceSettings = json.RawMessage(`{}`)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+url.PathEscape(req.VoiceID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	return c.do(ctx, "tts", httpReq, c.audioLimit)
}

// Voices 获取可用音色列表，原样返回上游 JSON
func (c *Client) Voices(ctx context.Context) (voices json.RawMessage, err error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "elevenlabs.Voices")
	defer func() { tracer.End(span, err) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("build voices request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(ctx, "voices", httpReq, maxJSONBody)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("elevenlabs voices: response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, operation string, req *http.Request, limit int64) ([]byte, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderCallDuration.WithLabelValues(providerName, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCallTotal.WithLabelValues(providerName, operation, "unavailable").Inc()
		return nil, fmt.Errorf("elevenlabs %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		metrics.ProviderCallTotal.WithLabelValues(providerName, operation, "unavailable").Inc()
		return nil, fmt.Errorf("elevenlabs %s: read body: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderCallTotal.WithLabelValues(providerName, operation, "upstream_error").Inc()
		upstream := &UpstreamError{Operation: operation, StatusCode: resp.StatusCode}
		if json.Valid(body) {
			upstream.Details = json.RawMessage(body)
		}
		logger.Warn(ctx, "elevenlabs request failed",
			"operation", operation,
			"status", resp.StatusCode,
		)
		return nil, upstream
	}

	// 截断的音频不能当作成功返回
	if int64(len(body)) > limit {
		metrics.ProviderCallTotal.WithLabelValues(providerName, operation, "bad_response").Inc()
		logger.Warn(ctx, "elevenlabs response too large", "operation", operation, "limit_bytes", limit)
		return nil, fmt.Errorf("elevenlabs %s: %w", operation, ErrBodyTooLarge)
	}

	metrics.ProviderCallTotal.WithLabelValues(providerName, operation, "ok").Inc()
	return body, nil
}
