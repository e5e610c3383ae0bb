package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptStoryGeneratorV1 PromptID = "story_generator_v1"
	PromptStoryCoverV1     PromptID = "story_cover_v1"
)

// ErrTemplateMissing 模板文件不存在（部署配置错误）
var ErrTemplateMissing = errors.New("prompt template missing")

// Registry 提示词模板注册表
// dir 非空时优先读取该目录下的同名文件，找不到再回落到内置模板
type Registry struct {
	dir string

	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   strings.TrimSpace(dir),
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	var msgs []schema.MessagesTemplate
	system, err := r.readText(string(id) + ".system.txt")
	switch {
	case err == nil:
		msgs = append(msgs, schema.SystemMessage(system))
	case !errors.Is(err, ErrTemplateMissing):
		return nil, err
	}

	// user 模板是必需的
	user, err := r.readText(string(id) + ".user.txt")
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", id, err)
	}
	msgs = append(msgs, schema.UserMessage(user))

	tpl := einoprompt.FromMessages(schema.FString, msgs...)
	r.cache[id] = tpl
	return tpl, nil
}

func (r *Registry) readText(name string) (string, error) {
	if r.dir != "" {
		b, err := os.ReadFile(filepath.Join(r.dir, name))
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read prompt template %s: %w", name, err)
		}
	}

	b, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateMissing, name)
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
