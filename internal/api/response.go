package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// RespondError 将分类错误映射为状态码，内部错误只记录日志不外泄。
func RespondError(c *gin.Context, err error) {
	status := errcode.HTTPStatus(err)
	switch {
	case status == http.StatusInternalServerError:
		loggerFromContext(c).Error("request failed", slog.Any("error", err))
	case status > http.StatusInternalServerError:
		loggerFromContext(c).Warn("dependency failed", slog.Any("error", err))
	}
	Error(c, status, errcode.Message(err))
}

func loggerFromContext(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c)
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	return middleware.UserIDFromContext(c)
}

// parseIDParam 解析路径中的正整数 ID。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
