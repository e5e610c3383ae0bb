package repository

import (
	"context"

	"storywriter-api/internal/domain/entity"
)

// StoryRepository 故事仓储接口
type StoryRepository interface {
	// Create 保存故事，slug 冲突时返回 ErrDuplicateSlug
	Create(ctx context.Context, story *entity.Story) error
	// GetBySlug 查询不到时返回 (nil, nil)
	GetBySlug(ctx context.Context, slug string) (*entity.Story, error)
	// ListByOwner 按创建时间倒序分页
	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.Story], error)
}

// StoryAnalyticsRepository 故事分析记录仓储接口
type StoryAnalyticsRepository interface {
	Create(ctx context.Context, record *entity.StoryAnalytics) error
}
