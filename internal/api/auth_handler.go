package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/metrics"
	"resumebuilder/internal/users"
)

// AuthHandler 负责注册、登录与个人资料接口。
type AuthHandler struct {
	users       *users.Store
	authService *auth.AuthService
	guard       *loginGuard
}

func NewAuthHandler(userStore *users.Store, authService *auth.AuthService, guard *loginGuard) *AuthHandler {
	return &AuthHandler{
		users:       userStore,
		authService: authService,
		guard:       guard,
	}
}

type userResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type authResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      userResponse `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Register 创建新用户并直接返回访问令牌。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		BadRequest(c, "name is required")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c)

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user, err := h.users.Create(ctx, name, req.Email, hashed)
	if err != nil {
		if errors.Is(err, errcode.ErrConflict) {
			logger.Info("register conflict: email already registered")
		}
		RespondError(c, err)
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithToken(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并返回访问令牌。未知邮箱与错误密码返回相同的提示。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := users.NormalizeEmail(req.Email)
	logger := loggerFromContext(c)

	if err := h.guard.Check(ctx, c.ClientIP(), email); err != nil {
		outcome := "rate_limited"
		if errors.Is(err, errLoginLocked) {
			outcome = "locked"
		}
		metrics.ObserveLogin(outcome)
		Error(c, http.StatusTooManyRequests, err.Error())
		return
	}

	user, err := h.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			logger.Info("login failed: user not found")
			h.rejectLogin(c, email)
			return
		}
		RespondError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.rejectLogin(c, email)
		return
	}

	h.guard.Reset(ctx, email)
	metrics.ObserveLogin("success")
	h.replyWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) rejectLogin(c *gin.Context, email string) {
	h.guard.Fail(c.Request.Context(), email)
	metrics.ObserveLogin("invalid")
	Error(c, http.StatusUnauthorized, "invalid credentials")
}

// Profile 返回当前用户。
func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type updateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=255"`
	Email *string `json:"email"`
}

// UpdateProfile 部分更新姓名或邮箱。
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req.Name, req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

// ChangePassword 校验当前密码并更新为新密码。已签发的令牌在过期前仍然有效。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c)

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if req.NewPassword == req.CurrentPassword {
		BadRequest(c, "new password must be different from current password")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.users.SetPassword(ctx, userID, hashed); err != nil {
		RespondError(c, err)
		return
	}

	logger.Info("password changed")
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) replyWithToken(c *gin.Context, status int, user *database.User) {
	token, err := h.authService.GenerateAccessToken(user.ID)
	if err != nil {
		loggerFromContext(c).Error("generate access token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(status, authResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.authService.AccessTokenTTL().Seconds()),
		User:      newUserResponse(user),
	})
}
