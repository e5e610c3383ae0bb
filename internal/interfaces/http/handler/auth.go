package handler

import (
	"time"

	"storywriter-api/internal/domain/repository"
	"storywriter-api/internal/interfaces/http/dto"
	"storywriter-api/internal/interfaces/http/middleware"
	"storywriter-api/pkg/logger"
	"storywriter-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

const invalidCredentialsMessage = "The credentials you provided are incorrect."

// AuthConfig 登录令牌配置
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	tokenTTL   time.Duration
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg AuthConfig, userRepo repository.UserRepository) *AuthHandler {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer),
		tokenTTL:   ttl,
		userRepo:   userRepo,
	}
}

// Login 登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.LoginResponse]
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := dto.FieldErrors(err)
		if errs == nil {
			errs = map[string][]string{
				"email":    {"The email field is required."},
				"password": {"The password field is required."},
			}
		}
		dto.UnprocessableEntity(c, dto.FirstMessage(errs), errs)
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user by email", err)
		dto.InternalError(c, "login failed")
		return
	}
	// 用户不存在与密码错误返回相同提示
	if user == nil || !user.CheckPassword(req.Password) {
		logger.Warn(ctx, "login failed: invalid credentials")
		dto.UnprocessableEntity(c, invalidCredentialsMessage, map[string][]string{
			"email": {invalidCredentialsMessage},
		})
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(user.ID, user.Email, h.tokenTTL)
	if err != nil {
		logger.Error(ctx, "failed to generate access token", err)
		dto.InternalError(c, "login failed")
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login", "user_id", user.ID, "error", err.Error())
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	dto.Success(c, dto.LoginResponse{
		Token:     token,
		ExpiresIn: int(h.tokenTTL.Seconds()),
		User:      dto.ToUserResource(user),
	})
}

// Me 当前用户信息
// @Summary 当前用户
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResource]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/user [get]
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.userRepo.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		logger.Error(ctx, "failed to get current user", err)
		dto.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		dto.Unauthorized(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResource(user))
}
