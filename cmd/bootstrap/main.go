package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"storywriter-api/internal/config"
	"storywriter-api/internal/domain/entity"
	"storywriter-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting database bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 4. 创建首个用户
	email := os.Getenv("BOOTSTRAP_USER_EMAIL")
	password := os.Getenv("BOOTSTRAP_USER_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("BOOTSTRAP_USER_EMAIL / BOOTSTRAP_USER_PASSWORD not set, skipping user creation.")
		return
	}
	name := os.Getenv("BOOTSTRAP_USER_NAME")
	if name == "" {
		name = "Storyteller"
	}

	err = dataLayer.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := dataLayer.UserRepo.GetByEmail(txCtx, email)
		if err != nil {
			return fmt.Errorf("check user existence: %w", err)
		}
		if existing != nil {
			fmt.Printf("User %s already exists with ID: %s\n", existing.Email, existing.ID)
			return nil
		}

		user := entity.NewUser(email, name)
		if err := user.SetPassword(password); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := dataLayer.UserRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("User created with ID: %s\n", user.ID)
		return nil
	})
	if err != nil {
		log.Fatalf("failed to bootstrap user: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
