package repository

import (
	"context"

	"storywriter-api/internal/domain/entity"
)

// UserRepository 用户仓储接口
// 查询不到记录时返回 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
