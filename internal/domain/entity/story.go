// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// maxStoryNameRunes 对应 name 列长度
	maxStoryNameRunes = 255
	// slugSuffixLen 随机后缀长度
	slugSuffixLen = 6
)

// Story 故事实体
type Story struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerID   string    `json:"user_id" gorm:"column:user_id;type:varchar(36);index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(320);uniqueIndex;not null"`
	Body      string    `json:"body" gorm:"type:text"`
	Prompt    string    `json:"prompt" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Story) TableName() string {
	return "stories"
}

// NewStory 创建新故事，slug 由 name 派生并附加随机后缀
func NewStory(ownerID, name, body, prompt string) *Story {
	name = truncateRunes(strings.TrimSpace(name), maxStoryNameRunes)
	now := time.Now()
	return &Story{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Slug:      NewSlug(name),
		Body:      body,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwnedBy 检查故事归属
func (s *Story) IsOwnedBy(ownerID string) bool {
	return s != nil && ownerID != "" && s.OwnerID == ownerID
}

// NewSlug 生成 URL 安全的 slug：name 的 kebab 形式 + "-" + 随机后缀
func NewSlug(name string) string {
	base := Slugify(name)
	if base == "" {
		base = "story"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:slugSuffixLen]
	return base + "-" + suffix
}

// Slugify 将文本转换为仅含 [a-z0-9-] 的形式，撇号直接去掉
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// don't -> dont
		default:
			pendingDash = true
		}
	}
	out := b.String()
	if len(out) > 300 {
		out = strings.TrimRight(out[:300], "-")
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
