package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	maxCorrelationIDLen = 128

	correlationIDKey = "correlationID"
	slogLoggerKey    = "slogLogger"
)

type correlationCtxKey struct{}

// CorrelationIDMiddleware 沿用调用方传入的 Correlation ID，缺失或不合法时生成新的。
// ID 同时写入 gin.Context 与 request context，后者会随抽取任务进入 worker 日志。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationIDHeader))
		if !validCorrelationID(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

// 只接受字母、数字与 . _ -，避免把换行等字符写进日志。
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(correlationIDKey); id != "" {
		return id
	}
	return CorrelationIDFromContext(c.Request.Context())
}

// CorrelationIDFromContext 用于拿不到 gin.Context 的下游代码。
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// SlogLoggerMiddleware 为每个请求派生带 correlation_id、method、route 的 logger，
// 并在请求结束时按状态码分级记录一条访问日志。探活与指标抓取只在 Debug 级别记录。
func SlogLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		requestLogger := logger.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		)
		c.Set(slogLoggerKey, requestLogger)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if userID, ok := UserIDFromContext(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", uint64(userID)))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		requestLogger.LogAttrs(c.Request.Context(), accessLogLevel(route, status), "request completed", attrs...)
	}
}

func accessLogLevel(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case route == "/health" || route == "/metrics":
		return slog.LevelDebug
	case status == 401 || status == 403 || status == 429:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LoggerFromContext 返回 SlogLoggerMiddleware 注入的 logger，未注入时退回默认 logger。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(slogLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
