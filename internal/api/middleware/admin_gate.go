package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/errcode"
)

// AdminChecker 在每次请求时从存储中读取角色。
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// RequireAdmin 必须挂在 AuthMiddleware 之后。用户已不存在返回 401，非管理员返回 403。
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, errcode.ErrAuth) {
				abortUnauthorized(c)
				return
			}
			LoggerFromContext(c).Error("admin role lookup failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.Any("error", err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
