package postgres

import (
	"context"
	"fmt"

	"storywriter-api/internal/domain/entity"
)

// StoryAnalyticsRepository 故事分析记录仓储实现
type StoryAnalyticsRepository struct {
	client *Client
}

// NewStoryAnalyticsRepository 创建故事分析记录仓储
func NewStoryAnalyticsRepository(client *Client) *StoryAnalyticsRepository {
	return &StoryAnalyticsRepository{client: client}
}

// Create 写入一条分析记录
func (r *StoryAnalyticsRepository) Create(ctx context.Context, record *entity.StoryAnalytics) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryAnalyticsRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create story analytics: %w", err)
	}
	return nil
}
