// Package story 实现故事生成流水线
package story

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/provider/together"
	"storywriter-api/internal/workflow/prompt"
	apperrors "storywriter-api/pkg/errors"
	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/metrics"
	"storywriter-api/pkg/tracer"
)

// persistTimeout 落库使用独立超时，调用方断开后仍会保存已生成的内容
const persistTimeout = 5 * time.Second

// ErrNoOwner 没有可归属的用户，跳过落库
var ErrNoOwner = errors.New("story has no owner")

// ProviderClient 文本与图像生成能力
type ProviderClient interface {
	Configured() bool
	GenerateText(ctx context.Context, req together.TextRequest) (string, error)
	GenerateImage(ctx context.Context, req together.ImageRequest) together.ImageResult
}

// PromptBuilder 提示词渲染
type PromptBuilder interface {
	Build(ctx context.Context, transcript string) (prompt.PromptPair, error)
	BuildCover(ctx context.Context, transcript string) (string, error)
}

// GeneratorConfig 流水线参数
type GeneratorConfig struct {
	DefaultMaxTokens   int
	DefaultTemperature float64
	RequestTimeout     time.Duration

	ImageEnabled  bool
	ParallelImage bool
	ImageWidth    int
	ImageHeight   int
	ImageSteps    int
}

// TextResult 文本生成步骤结果，失败对整个请求是致命的
type TextResult struct {
	Text string
	Err  error
}

// ImageResult 封面图步骤结果，失败只记录日志
type ImageResult struct {
	URL     string
	Skipped bool
	Err     error
}

// PersistResult 落库步骤结果，失败只记录日志
type PersistResult struct {
	Story *entity.Story
	Err   error
}

// GenerateOutput 生成结果
type GenerateOutput struct {
	// Story 合并封面图后的正文
	Story    string
	Title    string
	ImageURL string
	// Record 落库失败时为 nil
	Record *entity.Story
}

// Generator 故事生成编排器，不持有跨请求状态
type Generator struct {
	provider ProviderClient
	prompts  PromptBuilder
	stories  repository.StoryRepository
	cfg      GeneratorConfig
}

// NewGenerator 创建编排器
func NewGenerator(provider ProviderClient, prompts PromptBuilder, stories repository.StoryRepository, cfg GeneratorConfig) *Generator {
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 2000
	}
	return &Generator{
		provider: provider,
		prompts:  prompts,
		stories:  stories,
		cfg:      cfg,
	}
}

// Generate 执行一次完整的生成流水线
// ownerID 由接入层解析后显式传入；为空时跳过落库
func (g *Generator) Generate(ctx context.Context, ownerID string, in GenerateInput) (out *GenerateOutput, err error) {
	start := time.Now()
	outcome := "success"
	ctx, span := tracer.Start(ctx, "story.Generate")
	defer func() {
		span.SetAttributes(attribute.String("story.outcome", outcome))
		tracer.End(span, err)
		metrics.StoryGenerationTotal.WithLabelValues(outcome).Inc()
		metrics.StoryGenerationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	// 1. validated
	opts, verr := g.validate(in)
	if verr != nil {
		outcome = "validation_failed"
		logger.Info(ctx, "story generation rejected", "stage", "validated", "fields", verr.Fields)
		return nil, verr
	}
	if !g.provider.Configured() {
		outcome = "not_configured"
		logger.Error(ctx, "story provider api key missing, check deployment configuration", together.ErrNotConfigured, "stage", "validated")
		return nil, apperrors.ErrProviderNotConfigured.WithError(together.ErrNotConfigured)
	}
	logger.Info(ctx, "story generation started",
		"stage", "validated",
		"owner_id", ownerID,
		"transcript_chars", len(in.Transcript),
		"max_tokens", opts.MaxTokens,
		"temperature", opts.Temperature,
	)
	logger.Debug(ctx, "story generation payload", "transcript", in.Transcript)

	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	// 2. prompt built
	pair, err := g.prompts.Build(ctx, in.Transcript)
	if err != nil {
		outcome = "config_error"
		logger.Error(ctx, "story prompt template unavailable", err, "stage", "prompt_built")
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "prompt template not available")
	}
	logger.Debug(ctx, "story prompt built", "stage", "prompt_built", "system_chars", len(pair.System), "user_chars", len(pair.User))

	// 3 + 4. text generated, image attempted
	text, image := g.generateContent(ctx, pair, in.Transcript, opts)
	if text.Err != nil {
		outcome = "text_failed"
		logger.Error(ctx, "story text generation failed", text.Err, "stage", "text_generated", "provider_status", providerStatus(text.Err))
		return nil, apperrors.ErrGenerationFailed.WithError(text.Err)
	}
	metrics.StoryWordCount.Observe(float64(len(strings.Fields(text.Text))))
	logger.Info(ctx, "story text generated", "stage", "text_generated", "text_chars", len(text.Text))

	switch {
	case image.Skipped:
		logger.Info(ctx, "story image skipped", "stage", "image_attempted")
	case image.Err != nil:
		metrics.StoryImageFallbackTotal.Inc()
		logger.Warn(ctx, "story image unavailable, continuing with text only",
			"stage", "image_attempted",
			"provider_status", providerStatus(image.Err),
			"error", image.Err.Error(),
		)
	default:
		logger.Info(ctx, "story image generated", "stage", "image_attempted", "image_url", image.URL)
	}

	// 5. merged：标题必须取自合并前的纯文本
	title := ExtractTitle(text.Text)
	body := MergeBody(text.Text, image.URL)
	logger.Debug(ctx, "story merged", "stage", "merged", "title", title, "has_image", image.URL != "")

	// 6. persisted
	persisted := g.persist(ctx, ownerID, title, body, in.Transcript)
	if persisted.Err != nil {
		metrics.StoryPersistFailedTotal.Inc()
		logger.Error(ctx, "story generated but not saved, returning content anyway", persisted.Err,
			"stage", "persisted",
			"owner_id", ownerID,
			"title", title,
		)
	} else {
		logger.Info(ctx, "story saved", "stage", "persisted", "story_id", persisted.Story.ID, "slug", persisted.Story.Slug)
	}

	// 7. completed
	logger.Info(ctx, "story generation completed", "stage", "completed", "duration_ms", time.Since(start).Milliseconds())
	return &GenerateOutput{
		Story:    body,
		Title:    title,
		ImageURL: image.URL,
		Record:   persisted.Story,
	}, nil
}

// generateContent 调用文本与封面图生成；文本失败时丢弃图像结果
func (g *Generator) generateContent(ctx context.Context, pair prompt.PromptPair, transcript string, opts resolvedOptions) (TextResult, ImageResult) {
	textReq := together.TextRequest{
		SystemPrompt: pair.System,
		UserPrompt:   pair.User,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
	}

	if !g.cfg.ImageEnabled {
		return g.generateText(ctx, textReq), ImageResult{Skipped: true}
	}

	if !g.cfg.ParallelImage {
		text := g.generateText(ctx, textReq)
		if text.Err != nil {
			return text, ImageResult{Skipped: true}
		}
		return text, g.generateImage(ctx, transcript)
	}

	// 并发模式：文本失败会取消 egCtx，进行中的图像请求随之放弃
	var (
		text  TextResult
		image ImageResult
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		text = g.generateText(egCtx, textReq)
		return text.Err
	})
	eg.Go(func() error {
		image = g.generateImage(egCtx, transcript)
		return nil
	})
	_ = eg.Wait()

	if text.Err != nil {
		return text, ImageResult{Skipped: true}
	}
	return text, image
}

func (g *Generator) generateText(ctx context.Context, req together.TextRequest) TextResult {
	ctx, span := tracer.Start(ctx, "story.GenerateText")
	text, err := g.provider.GenerateText(ctx, req)
	tracer.End(span, err)
	return TextResult{Text: text, Err: err}
}

func (g *Generator) generateImage(ctx context.Context, transcript string) ImageResult {
	ctx, span := tracer.Start(ctx, "story.GenerateImage")
	defer span.End()

	coverPrompt, err := g.prompts.BuildCover(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		return ImageResult{Err: err}
	}

	res := g.provider.GenerateImage(ctx, together.ImageRequest{
		Prompt: coverPrompt,
		Width:  g.cfg.ImageWidth,
		Height: g.cfg.ImageHeight,
		Steps:  g.cfg.ImageSteps,
	})
	if !res.OK() {
		err := res.Err
		if err == nil {
			err = errors.New("image provider returned no url")
		}
		span.RecordError(err)
		return ImageResult{Err: err}
	}
	span.SetAttributes(attribute.Bool("story.image", true))
	return ImageResult{URL: res.URL}
}

// persist 写入故事记录；slug 冲突时换一个后缀重试一次
func (g *Generator) persist(ctx context.Context, ownerID, title, body, transcript string) PersistResult {
	if ownerID == "" {
		return PersistResult{Err: ErrNoOwner}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	story := entity.NewStory(ownerID, title, body, transcript)
	err := g.stories.Create(ctx, story)
	if errors.Is(err, repository.ErrDuplicateSlug) {
		story.Slug = entity.NewSlug(story.Name)
		err = g.stories.Create(ctx, story)
	}
	if err != nil {
		return PersistResult{Err: err}
	}
	return PersistResult{Story: story}
}

func providerStatus(err error) int {
	var perr *together.ProviderError
	if errors.As(err, &perr) {
		return perr.ProviderStatus
	}
	return 0
}
