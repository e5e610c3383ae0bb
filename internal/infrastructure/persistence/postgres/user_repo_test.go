package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storywriter-api/internal/domain/entity"
)

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	user := entity.NewUser("Reader@Example.com", "Reader")
	require.NoError(t, user.SetPassword("secret-pass"))
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "  READER@example.com ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.CheckPassword("secret-pass"))
	assert.False(t, got.CheckPassword("wrong"))

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	user := entity.NewUser("a@b.c", "A")
	require.NoError(t, user.SetPassword("pw"))
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
}

func TestStoryAnalyticsRepository_Create(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	repo := NewStoryAnalyticsRepository(client)

	uid := "user-1"
	record := &entity.StoryAnalytics{
		UserID:           &uid,
		StoryInputs:      map[string]any{"transcript": "hello"},
		IPAddress:        "127.0.0.1",
		UserAgent:        "test",
		StatusCode:       200,
		GenerationTimeMs: 1234,
	}
	require.NoError(t, repo.Create(ctx, record))
	assert.NotZero(t, record.ID)

	var got entity.StoryAnalytics
	require.NoError(t, client.DB().First(&got, record.ID).Error)
	assert.Equal(t, "hello", got.StoryInputs["transcript"])
	assert.Equal(t, int64(1234), got.GenerationTimeMs)
}
