package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// PageBreak 模型输出中分页使用的分隔行
const PageBreak = "---PAGE BREAK---"

// Defaults 故事模板变量的默认值
type Defaults struct {
	MinPages         int
	MaxPages         int
	SentencesPerPage string
}

// DefaultStoryDefaults 与 v1 模板一起发布的默认值
var DefaultStoryDefaults = Defaults{
	MinPages:         3,
	MaxPages:         10,
	SentencesPerPage: "4 or 5",
}

// PromptPair 文本生成使用的 system/user 提示词
type PromptPair struct {
	System string
	User   string
}

// Builder 根据对话记录渲染提示词，同样的输入与模板产出同样的结果
type Builder struct {
	registry *Registry
	storyID  PromptID
	coverID  PromptID
	defaults Defaults
}

func NewBuilder(registry *Registry, storyID, coverID PromptID) *Builder {
	if storyID == "" {
		storyID = PromptStoryGeneratorV1
	}
	if coverID == "" {
		coverID = PromptStoryCoverV1
	}
	return &Builder{
		registry: registry,
		storyID:  storyID,
		coverID:  coverID,
		defaults: DefaultStoryDefaults,
	}
}

// Build 渲染故事生成提示词，transcript 原样放入 {conversation}
func (b *Builder) Build(ctx context.Context, transcript string) (PromptPair, error) {
	msgs, err := b.format(ctx, b.storyID, transcript)
	if err != nil {
		return PromptPair{}, err
	}

	var pair PromptPair
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			pair.System = m.Content
		case schema.User:
			pair.User = m.Content
		}
	}
	if strings.TrimSpace(pair.System) == "" {
		return PromptPair{}, fmt.Errorf("prompt %s: %w: system", b.storyID, ErrTemplateMissing)
	}
	return pair, nil
}

// BuildCover 渲染封面图提示词
func (b *Builder) BuildCover(ctx context.Context, transcript string) (string, error) {
	msgs, err := b.format(ctx, b.coverID, transcript)
	if err != nil {
		return "", err
	}
	for _, m := range msgs {
		if m.Role == schema.User {
			return m.Content, nil
		}
	}
	return "", fmt.Errorf("prompt %s: %w: user", b.coverID, ErrTemplateMissing)
}

func (b *Builder) format(ctx context.Context, id PromptID, transcript string) ([]*schema.Message, error) {
	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"conversation":       transcript,
		"min_pages":          b.defaults.MinPages,
		"max_pages":          b.defaults.MaxPages,
		"sentences_per_page": b.defaults.SentencesPerPage,
		"page_break":         PageBreak,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}
