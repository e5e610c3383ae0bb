package together

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/metrics"
)

// maxImageBody 错误响应体最多读取的字节数
const maxImageBody = 64 << 10

// ImageRequest 图像生成请求
type ImageRequest struct {
	Prompt string
	Width  int
	Height int
	Steps  int
}

// ImageResult 图像生成结果；失败时 URL 为空，Err 仅用于日志
type ImageResult struct {
	URL string
	Err error
}

// OK 是否拿到了图片地址
func (r ImageResult) OK() bool {
	return r.URL != "" && r.Err == nil
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
	N      int    `json:"n"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage 调用 images/generations，尽力而为：任何失败都返回空结果而不是错误
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) ImageResult {
	if !c.Configured() {
		return ImageResult{Err: ErrNotConfigured}
	}

	start := time.Now()
	url, err := c.requestImage(ctx, req)
	metrics.ProviderCallDuration.WithLabelValues(providerName, "image").Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error"
		var perr *ProviderError
		if errors.As(err, &perr) {
			status = string(perr.Kind)
		}
		metrics.ProviderCallTotal.WithLabelValues(providerName, "image", status).Inc()
		logger.Warn(ctx, "together image generation failed, continuing without image", "error", err.Error())
		return ImageResult{Err: err}
	}

	metrics.ProviderCallTotal.WithLabelValues(providerName, "image", "ok").Inc()
	return ImageResult{URL: url}
}

func (c *Client) requestImage(ctx context.Context, req ImageRequest) (string, error) {
	payload, err := json.Marshal(imageGenerationRequest{
		Model:  c.imageModel,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Steps:  req.Steps,
		N:      1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.imageHTTP.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Kind: KindUnavailable, Operation: "image", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBody))
	if err != nil {
		return "", &ProviderError{Kind: KindUnavailable, Operation: "image", ProviderStatus: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{
			Kind:           KindUnavailable,
			Operation:      "image",
			ProviderStatus: resp.StatusCode,
			ProviderBody:   string(body),
		}
	}

	var out imageGenerationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ProviderError{Kind: KindBadResponse, Operation: "image", ProviderStatus: resp.StatusCode, ProviderBody: string(body), Err: err}
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", &ProviderError{
			Kind:           KindBadResponse,
			Operation:      "image",
			ProviderStatus: resp.StatusCode,
			ProviderBody:   string(body),
			Err:            errors.New("data[0].url missing"),
		}
	}
	return out.Data[0].URL, nil
}
