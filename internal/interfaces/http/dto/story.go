package dto

import (
	"time"

	appstory "storywriter-api/internal/application/story"
	"storywriter-api/internal/domain/entity"
)

// GenerateStoryRequest 故事生成请求
type GenerateStoryRequest struct {
	Transcript string                `json:"transcript"`
	Options    *GenerateStoryOptions `json:"options,omitempty"`
}

// GenerateStoryOptions 生成参数覆盖
type GenerateStoryOptions struct {
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ToInput 转换为应用层输入
func (r *GenerateStoryRequest) ToInput() appstory.GenerateInput {
	in := appstory.GenerateInput{Transcript: r.Transcript}
	if r.Options != nil {
		in.Options = appstory.Options{
			MaxTokens:   r.Options.MaxTokens,
			Temperature: r.Options.Temperature,
		}
	}
	return in
}

// GenerateStoryResponse 故事生成响应
type GenerateStoryResponse struct {
	Story string `json:"story"`
}

// StoryResource 故事资源
type StoryResource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Body      string    `json:"body"`
	Prompt    string    `json:"prompt"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToStoryResource 将领域实体转换为资源
func ToStoryResource(s *entity.Story) *StoryResource {
	if s == nil {
		return nil
	}
	return &StoryResource{
		ID:        s.ID,
		Name:      s.Name,
		Slug:      s.Slug,
		Body:      s.Body,
		Prompt:    s.Prompt,
		UserID:    s.OwnerID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToStoryResources 批量转换
func ToStoryResources(stories []*entity.Story) []*StoryResource {
	out := make([]*StoryResource, 0, len(stories))
	for _, s := range stories {
		out = append(out, ToStoryResource(s))
	}
	return out
}
