package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
)

// StoryRepository 故事仓储实现
type StoryRepository struct {
	client *Client
}

// NewStoryRepository 创建故事仓储
func NewStoryRepository(client *Client) *StoryRepository {
	return &StoryRepository{client: client}
}

// Create 创建故事
func (r *StoryRepository) Create(ctx context.Context, story *entity.Story) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(story).Error; err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateSlug, story.Slug)
		}
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// GetBySlug 根据 slug 获取故事
func (r *StoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.GetBySlug")
	defer span.End()

	var story entity.Story
	if err := getDB(ctx, r.client.db).First(&story, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &story, nil
}

// ListByOwner 获取用户的故事列表
func (r *StoryRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Story], error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.ListByOwner")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Story{}).Where("user_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count stories: %w", err)
	}

	var stories []*entity.Story
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&stories).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	return repository.NewPagedResult(stories, total, pagination), nil
}
