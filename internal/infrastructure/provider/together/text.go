package together

import (
	"context"
	"errors"
	"math"
	"net/url"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/metrics"
)

// TextRequest 文本生成请求
type TextRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// GenerateText 调用 chat/completions，返回 choices[0].message.content
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	start := time.Now()
	resp, err := c.text.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.textModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
	})
	metrics.ProviderCallDuration.WithLabelValues(providerName, "text").Observe(time.Since(start).Seconds())

	if err != nil {
		perr := classifyTextError(err)
		metrics.ProviderCallTotal.WithLabelValues(providerName, "text", string(perr.Kind)).Inc()
		logger.Warn(ctx, "together text generation failed",
			"provider_status", perr.ProviderStatus,
			"kind", string(perr.Kind),
			"error", err.Error(),
		)
		return "", perr
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderCallTotal.WithLabelValues(providerName, "text", string(KindBadResponse)).Inc()
		logger.Warn(ctx, "together text response has no choices", "model", resp.Model)
		return "", &ProviderError{
			Kind:           KindBadResponse,
			Operation:      "text",
			ProviderStatus: 200,
			ProviderBody:   resp,
			Err:            errors.New("choices[0].message.content missing"),
		}
	}

	metrics.ProviderCallTotal.WithLabelValues(providerName, "text", "ok").Inc()
	metrics.LLMTokensUsed.WithLabelValues(c.textModel, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.textModel, "completion").Add(float64(resp.Usage.CompletionTokens))
	logger.Debug(ctx, "together text generation succeeded",
		"model", c.textModel,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// wireTemperature go-openai 对 temperature 使用 omitempty，显式的 0 需换成最小正数才会被发送
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// classifyTextError 将 go-openai 错误转换为 ProviderError
func classifyTextError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:           KindUnavailable,
			Operation:      "text",
			ProviderStatus: apiErr.HTTPStatusCode,
			ProviderBody:   apiErr.Message,
			Err:            err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Kind:           KindUnavailable,
			Operation:      "text",
			ProviderStatus: reqErr.HTTPStatusCode,
			ProviderBody:   string(reqErr.Body),
			Err:            err,
		}
	}

	// 传输层错误（超时、连接失败、取消）没有状态码；2xx 但解码失败视为 BadResponse
	kind := KindUnavailable
	if !isTransportError(err) {
		kind = KindBadResponse
	}
	return &ProviderError{Kind: kind, Operation: "text", Err: err}
}

func isTransportError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
