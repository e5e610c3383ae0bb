package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/infrastructure/provider/together"
	"storywriter-api/internal/workflow/prompt"
	apperrors "storywriter-api/pkg/errors"
)

type mockProvider struct {
	mock.Mock
	configured bool
}

func (m *mockProvider) Configured() bool { return m.configured }

func (m *mockProvider) GenerateText(ctx context.Context, req together.TextRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) GenerateImage(ctx context.Context, req together.ImageRequest) together.ImageResult {
	args := m.Called(ctx, req)
	return args.Get(0).(together.ImageResult)
}

type mockStoryRepo struct {
	mock.Mock
}

func (m *mockStoryRepo) Create(ctx context.Context, story *entity.Story) error {
	return m.Called(ctx, story).Error(0)
}

func (m *mockStoryRepo) GetBySlug(ctx context.Context, slug string) (*entity.Story, error) {
	args := m.Called(ctx, slug)
	s, _ := args.Get(0).(*entity.Story)
	return s, args.Error(1)
}

func (m *mockStoryRepo) ListByOwner(ctx context.Context, ownerID string, p repository.Pagination) (*repository.PagedResult[*entity.Story], error) {
	args := m.Called(ctx, ownerID, p)
	r, _ := args.Get(0).(*repository.PagedResult[*entity.Story])
	return r, args.Error(1)
}

func defaultConfig() GeneratorConfig {
	return GeneratorConfig{
		DefaultMaxTokens:   2000,
		DefaultTemperature: 0.7,
		RequestTimeout:     5 * time.Second,
		ImageEnabled:       true,
		ImageWidth:         1024,
		ImageHeight:        768,
		ImageSteps:         4,
	}
}

func newTestGenerator(cfg GeneratorConfig) (*Generator, *mockProvider, *mockStoryRepo) {
	provider := &mockProvider{configured: true}
	stories := &mockStoryRepo{}
	builder := prompt.NewBuilder(prompt.NewRegistry(""), prompt.PromptStoryGeneratorV1, prompt.PromptStoryCoverV1)
	return NewGenerator(provider, builder, stories, cfg), provider, stories
}

func TestGenerate_TextAndImage(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())
	ctx := context.Background()

	provider.On("GenerateText", mock.Anything, mock.MatchedBy(func(req together.TextRequest) bool {
		return strings.Contains(req.UserPrompt, "A story about a dragon") &&
			req.MaxTokens == 2000 && req.Temperature == 0.7 &&
			strings.Contains(req.SystemPrompt, "children's book author")
	})).Return("The Dragon's Library\n\nPage 1...", nil).Once()
	provider.On("GenerateImage", mock.Anything, mock.MatchedBy(func(req together.ImageRequest) bool {
		return req.Width == 1024 && req.Height == 768 && req.Steps == 4 &&
			strings.Contains(req.Prompt, "A story about a dragon")
	})).Return(together.ImageResult{URL: "http://img/dragon.jpg"}).Once()

	var saved *entity.Story
	stories.On("Create", mock.Anything, mock.AnythingOfType("*entity.Story")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*entity.Story) }).
		Return(nil).Once()

	out, err := g.Generate(ctx, "user-1", GenerateInput{Transcript: "A story about a dragon"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.Story, "![](http://img/dragon.jpg)"))
	assert.Contains(t, out.Story, "The Dragon's Library")
	assert.Equal(t, "The Dragon's Library", out.Title)
	assert.Equal(t, "http://img/dragon.jpg", out.ImageURL)

	require.NotNil(t, saved)
	assert.Same(t, saved, out.Record)
	assert.Equal(t, "The Dragon's Library", saved.Name)
	assert.NotContains(t, saved.Name, "http")
	assert.Equal(t, "user-1", saved.OwnerID)
	assert.Equal(t, out.Story, saved.Body)
	assert.Equal(t, "A story about a dragon", saved.Prompt)
	assert.True(t, strings.HasPrefix(saved.Slug, "the-dragons-library-"))

	provider.AssertExpectations(t)
	stories.AssertExpectations(t)
}

func TestGenerate_ImageFailureFallsBackToText(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	provider.On("GenerateText", mock.Anything, mock.Anything).
		Return("The Brave Little Robot\n\nPage 1", nil).Once()
	provider.On("GenerateImage", mock.Anything, mock.Anything).
		Return(together.ImageResult{Err: &together.ProviderError{Kind: together.KindUnavailable, Operation: "image", ProviderStatus: 503}}).Once()
	stories.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "A story about a brave robot"})
	require.NoError(t, err)

	assert.NotContains(t, out.Story, "![](")
	assert.True(t, strings.HasPrefix(out.Story, "The Brave Little Robot"))
	assert.Equal(t, "The Brave Little Robot", out.Record.Name)
	assert.Empty(t, out.ImageURL)
}

func TestGenerate_TextFailureIsFatal(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	provider.On("GenerateText", mock.Anything, mock.Anything).
		Return("", &together.ProviderError{Kind: together.KindUnavailable, Operation: "text", ProviderStatus: 400}).Once()

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "A story"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))

	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 503, appErr.HTTPStatus)
	assert.Equal(t, "Story text generation failed", appErr.Message)

	provider.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerate_Validation(t *testing.T) {
	neg := -5
	hot := 2.5

	tests := []struct {
		name       string
		in         GenerateInput
		wantFields []string
	}{
		{"missing transcript", GenerateInput{}, []string{"transcript"}},
		{"blank transcript", GenerateInput{Transcript: "   \n\t"}, []string{"transcript"}},
		{"bad max tokens", GenerateInput{Transcript: "x", Options: Options{MaxTokens: &neg}}, []string{"options.maxTokens"}},
		{"bad temperature", GenerateInput{Transcript: "x", Options: Options{Temperature: &hot}}, []string{"options.temperature"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, provider, stories := newTestGenerator(defaultConfig())

			_, err := g.Generate(context.Background(), "user-1", tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Fields, f)
			}
			provider.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
			stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerate_ValidationMessage(t *testing.T) {
	g, _, _ := newTestGenerator(defaultConfig())
	_, err := g.Generate(context.Background(), "u", GenerateInput{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "The transcript field is required.", verr.Error())
}

func TestGenerate_NotConfigured(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())
	provider.configured = false

	_, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
	assert.Equal(t, 500, apperrors.AsAppError(err).HTTPStatus)

	provider.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerate_PersistenceFailureStillReturnsStory(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	provider.On("GenerateText", mock.Anything, mock.Anything).Return("Title\n\nBody", nil)
	provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{URL: "http://img/a.jpg"})
	stories.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
	require.NoError(t, err)
	assert.Nil(t, out.Record)
	assert.Equal(t, "![](http://img/a.jpg)\n\nTitle\n\nBody", out.Story)
}

func TestGenerate_DuplicateSlugRetriedOnce(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	provider.On("GenerateText", mock.Anything, mock.Anything).Return("Twins\n\nBody", nil)
	provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{Err: errors.New("nope")})

	var slugs []string
	stories.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { slugs = append(slugs, args.Get(1).(*entity.Story).Slug) }).
		Return(fmt.Errorf("%w: twins", repository.ErrDuplicateSlug)).Once()
	stories.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { slugs = append(slugs, args.Get(1).(*entity.Story).Slug) }).
		Return(nil).Once()

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	require.Len(t, slugs, 2)
	assert.NotEqual(t, slugs[0], slugs[1])
}

func TestGenerate_NoOwnerSkipsPersistence(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	provider.On("GenerateText", mock.Anything, mock.Anything).Return("Title\n\nBody", nil)
	provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{URL: "http://img/a.jpg"})

	out, err := g.Generate(context.Background(), "", GenerateInput{Transcript: "x"})
	require.NoError(t, err)
	assert.Nil(t, out.Record)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerate_ExplicitOptions(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	maxTokens := 500
	temperature := 0.0
	provider.On("GenerateText", mock.Anything, mock.MatchedBy(func(req together.TextRequest) bool {
		return req.MaxTokens == 500 && req.Temperature == 0
	})).Return("", nil).Once()
	provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{Err: errors.New("down")})
	stories.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{
		Transcript: "x",
		Options:    Options{MaxTokens: &maxTokens, Temperature: &temperature},
	})
	require.NoError(t, err)
	// 空正文不算失败，标题回落到默认值
	assert.Equal(t, DefaultTitle, out.Title)
	assert.Equal(t, "", out.Story)
	provider.AssertExpectations(t)
}

func TestGenerate_ImageDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.ImageEnabled = false
	g, provider, stories := newTestGenerator(cfg)

	provider.On("GenerateText", mock.Anything, mock.Anything).Return("Only Text\n\nBody", nil)
	stories.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Only Text\n\nBody", out.Story)
	provider.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
}

func TestGenerate_ParallelImage(t *testing.T) {
	cfg := defaultConfig()
	cfg.ParallelImage = true

	t.Run("both succeed", func(t *testing.T) {
		g, provider, stories := newTestGenerator(cfg)
		provider.On("GenerateText", mock.Anything, mock.Anything).Return("Side By Side\n\nBody", nil)
		provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{URL: "http://img/p.jpg"})
		stories.On("Create", mock.Anything, mock.Anything).Return(nil)

		out, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
		require.NoError(t, err)
		assert.Equal(t, "![](http://img/p.jpg)\n\nSide By Side\n\nBody", out.Story)
		assert.Equal(t, "Side By Side", out.Record.Name)
	})

	t.Run("text fails discards image", func(t *testing.T) {
		g, provider, stories := newTestGenerator(cfg)
		provider.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("boom"))
		provider.On("GenerateImage", mock.Anything, mock.Anything).Return(together.ImageResult{URL: "http://img/p.jpg"}).Maybe()

		_, err := g.Generate(context.Background(), "user-1", GenerateInput{Transcript: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))
		stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGenerate_CancelledContextAbandonsText(t *testing.T) {
	g, provider, stories := newTestGenerator(defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	provider.On("GenerateText", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	_, err := g.Generate(ctx, "user-1", GenerateInput{Transcript: "x"})
	require.Error(t, err)
	stories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
