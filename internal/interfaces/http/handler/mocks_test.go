package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appstory "storywriter-api/internal/application/story"
	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/provider/elevenlabs"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	dto.RegisterValidator()
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, ownerID string, in appstory.GenerateInput) (*appstory.GenerateOutput, error) {
	args := m.Called(ctx, ownerID, in)
	out, _ := args.Get(0).(*appstory.GenerateOutput)
	return out, args.Error(1)
}

type mockStoryRepo struct {
	mock.Mock
}

func (m *mockStoryRepo) Create(ctx context.Context, story *entity.Story) error {
	return m.Called(ctx, story).Error(0)
}

func (m *mockStoryRepo) GetBySlug(ctx context.Context, slug string) (*entity.Story, error) {
	args := m.Called(ctx, slug)
	story, _ := args.Get(0).(*entity.Story)
	return story, args.Error(1)
}

func (m *mockStoryRepo) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Story], error) {
	args := m.Called(ctx, ownerID, pagination)
	result, _ := args.Get(0).(*repository.PagedResult[*entity.Story])
	return result, args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSpeech struct {
	mock.Mock
	configured bool
}

func (m *mockSpeech) Configured() bool {
	return m.configured
}

func (m *mockSpeech) TextToSpeech(ctx context.Context, req elevenlabs.SpeechRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	audio, _ := args.Get(0).([]byte)
	return audio, args.Error(1)
}

func (m *mockSpeech) Voices(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	voices, _ := args.Get(0).(json.RawMessage)
	return voices, args.Error(1)
}

// memoryVoiceCache 进程内缓存，仅用于验证读穿行为
type memoryVoiceCache struct {
	data map[string][]byte
}

func (c *memoryVoiceCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.data[key] = b
	return b, nil
}

// withUser 模拟认证中间件注入用户
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextKeyUserID, userID)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
