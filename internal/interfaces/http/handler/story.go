// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"

	appstory "storywriter-api/internal/application/story"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/internal/interfaces/http/middleware"
	apperrors "storywriter-api/pkg/errors"
	"storywriter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StoryGenerator 故事生成流水线
type StoryGenerator interface {
	Generate(ctx context.Context, ownerID string, in appstory.GenerateInput) (*appstory.GenerateOutput, error)
}

// StoryHandler 故事处理器
type StoryHandler struct {
	generator StoryGenerator
	stories   repository.StoryRepository
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(generator StoryGenerator, stories repository.StoryRepository) *StoryHandler {
	return &StoryHandler{
		generator: generator,
		stories:   stories,
	}
}

// Generate 根据对话记录生成故事
// @Summary 生成故事
// @Tags Story
// @Accept json
// @Produce json
// @Param body body dto.GenerateStoryRequest true "对话记录与生成参数"
// @Success 200 {object} dto.Response[dto.GenerateStoryResponse]
// @Failure 422 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/stories/generate [post]
func (h *StoryHandler) Generate(c *gin.Context) {
	var req dto.GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 空请求体交给业务校验，给出缺失字段提示
		if errs := dto.FieldErrors(err); errs != nil {
			dto.UnprocessableEntity(c, dto.FirstMessage(errs), errs)
			return
		}
	}

	out, err := h.generator.Generate(c.Request.Context(), middleware.UserID(c), req.ToInput())
	if err != nil {
		writeGenerateError(c, err)
		return
	}

	dto.Success(c, dto.GenerateStoryResponse{Story: out.Story})
}

func writeGenerateError(c *gin.Context, err error) {
	var verr *appstory.ValidationError
	if errors.As(err, &verr) {
		dto.UnprocessableEntity(c, verr.FirstMessage(), verr.Fields)
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), "unexpected story generation error", err)
	dto.InternalError(c, "Internal server error")
}

// List 当前用户的故事列表，按创建时间倒序
// @Summary 故事列表
// @Tags Story
// @Produce json
// @Param page query int false "页码"
// @Param per_page query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.StoryResource]
// @Router /api/v1/stories [get]
func (h *StoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	pagination := dto.BindPagination(c)

	result, err := h.stories.ListByOwner(ctx, middleware.UserID(c), pagination)
	if err != nil {
		logger.Error(ctx, "failed to list stories", err)
		dto.InternalError(c, "failed to list stories")
		return
	}

	dto.SuccessWithPage(c, dto.ToStoryResources(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// Show 按 slug 获取故事
// @Summary 故事详情
// @Tags Story
// @Produce json
// @Param slug path string true "故事 slug"
// @Success 200 {object} dto.Response[dto.StoryResource]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/stories/{slug} [get]
func (h *StoryHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()

	story, err := h.stories.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		logger.Error(ctx, "failed to get story", err, "slug", c.Param("slug"))
		dto.InternalError(c, "failed to get story")
		return
	}
	// 他人的故事与不存在一致处理，不暴露存在性
	if story == nil || !story.IsOwnedBy(middleware.UserID(c)) {
		dto.NotFound(c, apperrors.ErrStoryNotFound.Message)
		return
	}

	dto.Success(c, dto.ToStoryResource(story))
}
