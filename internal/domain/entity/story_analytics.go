package entity

import "time"

// StoryAnalytics 故事生成请求的分析记录
type StoryAnalytics struct {
	ID               uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           *string        `json:"user_id,omitempty" gorm:"type:varchar(36);index"`
	StoryInputs      map[string]any `json:"story_inputs,omitempty" gorm:"type:jsonb;serializer:json"`
	IPAddress        string         `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent        string         `json:"user_agent,omitempty" gorm:"type:text"`
	StatusCode       int            `json:"status_code"`
	GenerationTimeMs int64          `json:"generation_time_ms"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (StoryAnalytics) TableName() string {
	return "story_analytics"
}
