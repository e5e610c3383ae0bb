package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storywriter-api/internal/infrastructure/provider/elevenlabs"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	voicesCacheKey      = "elevenlabs:voices"
	speechKeyMissing    = "ELEVENLABS_API_KEY missing"
	ttsFailedMessage    = "TTS request failed"
	voicesFailedMessage = "Failed to fetch voices"
)

// SpeechClient 语音服务
type SpeechClient interface {
	Configured() bool
	TextToSpeech(ctx context.Context, req elevenlabs.SpeechRequest) ([]byte, error)
	Voices(ctx context.Context) (json.RawMessage, error)
}

// VoiceCache 音色列表缓存
type VoiceCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
}

// ConversationHandler 语音相关处理器
type ConversationHandler struct {
	speech    SpeechClient
	cache     VoiceCache
	voicesTTL time.Duration
}

// NewConversationHandler 创建语音处理器，cache 为 nil 时每次直连上游
func NewConversationHandler(speech SpeechClient, cache VoiceCache, voicesTTL time.Duration) *ConversationHandler {
	if voicesTTL <= 0 {
		voicesTTL = 10 * time.Minute
	}
	return &ConversationHandler{
		speech:    speech,
		cache:     cache,
		voicesTTL: voicesTTL,
	}
}

// TextToSpeech 文本转语音，透传 audio/mpeg
// @Summary 文本转语音
// @Tags Conversation
// @Accept json
// @Produce audio/mpeg
// @Param body body dto.TextToSpeechRequest true "合成参数"
// @Success 200 {file} binary
// @Failure 422 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/conversation/tts [post]
func (h *ConversationHandler) TextToSpeech(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TextToSpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := dto.FieldErrors(err)
		if errs == nil {
			errs = map[string][]string{
				"text":    {"The text field is required."},
				"voiceId": {"The voiceId field is required."},
			}
		}
		dto.UnprocessableEntity(c, dto.FirstMessage(errs), errs)
		return
	}

	if !h.speech.Configured() {
		logger.Error(ctx, "elevenlabs api key missing, check deployment configuration", elevenlabs.ErrNotConfigured)
		dto.InternalError(c, speechKeyMissing)
		return
	}

	speechReq := elevenlabs.SpeechRequest{Text: req.Text, VoiceID: req.VoiceID}
	if req.Options != nil {
		speechReq.ModelID = req.Options.ModelID
		speechReq.VoiceSettings = req.Options.VoiceSettings
	}

	audio, err := h.speech.TextToSpeech(ctx, speechReq)
	if err != nil {
		writeUpstreamError(c, ttsFailedMessage, err)
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// Voices 音色列表
// @Summary 音色列表
// @Tags Conversation
// @Produce json
// @Success 200 {object} object
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/conversation/voices [get]
func (h *ConversationHandler) Voices(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.speech.Configured() {
		logger.Error(ctx, "elevenlabs api key missing, check deployment configuration", elevenlabs.ErrNotConfigured)
		dto.InternalError(c, speechKeyMissing)
		return
	}

	var (
		body []byte
		err  error
	)
	if h.cache != nil {
		body, err = h.cache.GetOrLoad(ctx, voicesCacheKey, h.voicesTTL, func(ctx context.Context) (any, error) {
			return h.speech.Voices(ctx)
		})
	} else {
		body, err = h.speech.Voices(ctx)
	}
	if err != nil {
		writeUpstreamError(c, voicesFailedMessage, err)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// writeUpstreamError 上游返回非 2xx 时沿用其状态码，网络错误返回 502
func writeUpstreamError(c *gin.Context, message string, err error) {
	var upstream *elevenlabs.UpstreamError
	if errors.As(err, &upstream) {
		var details any
		if len(upstream.Details) > 0 {
			details = upstream.Details
		}
		dto.ErrorWithDetails(c, upstream.StatusCode, message, details)
		return
	}
	logger.Error(c.Request.Context(), "elevenlabs request error", err)
	dto.Error(c, http.StatusBadGateway, message)
}
