package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storywriter-api/internal/application/story"
	"storywriter-api/internal/config"
	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/provider/together"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/internal/interfaces/http/handler"
	"storywriter-api/internal/interfaces/http/middleware"
	"storywriter-api/internal/workflow/prompt"
	"storywriter-api/pkg/utils"
)

const (
	flowSecret = "flow-secret"
	flowIssuer = "storywriter-test"
)

// memoryStories 内存故事仓储
type memoryStories struct {
	mu      sync.Mutex
	created []*entity.Story
}

func (m *memoryStories) Create(_ context.Context, s *entity.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, s)
	return nil
}

func (m *memoryStories) GetBySlug(_ context.Context, slug string) (*entity.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.created {
		if s.Slug == slug {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memoryStories) ListByOwner(_ context.Context, ownerID string, p repository.Pagination) (*repository.PagedResult[*entity.Story], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.Story
	for _, s := range m.created {
		if s.OwnerID == ownerID {
			items = append(items, s)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memoryStories) all() []*entity.Story {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.Story(nil), m.created...)
}

// newFlowRouter 用真实的生成器和 Together 客户端组装路由，上游由 upstream 模拟
func newFlowRouter(t *testing.T, upstream http.Handler) (*Router, *memoryStories) {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client := together.NewClient(&config.TogetherConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/",
		TextModel:    "text-model",
		ImageModel:   "image-model",
		TextTimeout:  5 * time.Second,
		ImageTimeout: 5 * time.Second,
	})
	stories := &memoryStories{}
	builder := prompt.NewBuilder(prompt.NewRegistry(""), prompt.PromptStoryGeneratorV1, prompt.PromptStoryCoverV1)
	generator := story.NewGenerator(client, builder, stories, story.GeneratorConfig{
		DefaultMaxTokens:   2000,
		DefaultTemperature: 0.7,
		RequestTimeout:     5 * time.Second,
		ImageEnabled:       true,
		ImageWidth:         1024,
		ImageHeight:        768,
		ImageSteps:         4,
	})

	handlers := RouterHandlers{
		Health:       handler.NewHealthHandler("test", nil, nil),
		Auth:         handler.NewAuthHandler(handler.AuthConfig{Secret: flowSecret}, nil),
		Story:        handler.NewStoryHandler(generator, stories),
		Conversation: handler.NewConversationHandler(nil, nil, 0),
	}
	middlewares := RouterMiddlewares{
		Auth: middleware.Auth(middleware.AuthConfig{Secret: flowSecret, Issuer: flowIssuer}),
	}
	return NewWithDeps(&config.Config{}, handlers, middlewares), stories
}

func flowGenerate(t *testing.T, r *Router, transcript string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := utils.NewJWTManager(flowSecret, flowIssuer).GenerateAccessToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{"transcript": transcript})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/stories/generate", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func chatCompletion(content string) string {
	out, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "text-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(out)
}

func TestGenerateRoute_TextAndImage(t *testing.T) {
	var textCalls, imageCalls atomic.Int32
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			textCalls.Add(1)
			_, _ = w.Write([]byte(chatCompletion("The Moon Garden\n\nPage 1: Mia found a seed.")))
		case "/images/generations":
			imageCalls.Add(1)
			_, _ = w.Write([]byte(`{"data":[{"url":"http://img.test/moon.png"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	r, stories := newFlowRouter(t, upstream)

	w := flowGenerate(t, r, "A girl plants a seed on the moon")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response[dto.GenerateStoryResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.Story, "![](http://img.test/moon.png)"), resp.Data.Story)
	assert.Contains(t, resp.Data.Story, "Mia found a seed.")

	saved := stories.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "The Moon Garden", saved[0].Name)
	assert.Equal(t, "user-1", saved[0].OwnerID)
	assert.Equal(t, resp.Data.Story, saved[0].Body)
	assert.Equal(t, int32(1), textCalls.Load())
	assert.Equal(t, int32(1), imageCalls.Load())
}

func TestGenerateRoute_TextFailureNothingPersisted(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
		case "/images/generations":
			_, _ = w.Write([]byte(`{"data":[{"url":"http://img.test/moon.png"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	r, stories := newFlowRouter(t, upstream)

	w := flowGenerate(t, r, "A girl plants a seed on the moon")
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Story text generation failed", body["error"])
	assert.NotContains(t, w.Body.String(), "upstream exploded")
	assert.Empty(t, stories.all())
}
