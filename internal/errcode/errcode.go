package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码约定（用于 Worker 通知消息）：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如资源缺失但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	Unsupported     = 4000
	ResourceMissing = 4004
	SystemError     = 5000
)

// 错误分类。存储层与服务层返回包装后的分类错误，由 HTTP 边界统一映射状态码。
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("unauthorized")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	// 外部依赖（例如润色模型）未配置或调用失败。
	ErrUnavailable = errors.New("service unavailable")
	ErrUpstream    = errors.New("upstream error")
)

// Error 携带面向客户端的消息，并通过 Unwrap 暴露分类。
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func Auth(msg string) error      { return &Error{Kind: ErrAuth, Msg: msg} }
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }
func NotFound(msg string) error  { return &Error{Kind: ErrNotFound, Msg: msg} }
func Conflict(msg string) error  { return &Error{Kind: ErrConflict, Msg: msg} }

func Unavailable(msg string) error { return &Error{Kind: ErrUnavailable, Msg: msg} }
func Upstream(msg string) error    { return &Error{Kind: ErrUpstream, Msg: msg} }

// HTTPStatus 返回分类对应的状态码；未分类的错误视为内部错误。
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message 返回可以安全暴露给客户端的文本。
func Message(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
