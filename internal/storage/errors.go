package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrObjectNotFound 表示对象已不存在（用户删除了简历或对象被生命周期策略清理）。
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge 表示对象超过了读取上限，通常意味着对象不是经由上传接口写入的。
	ErrObjectTooLarge = errors.New("object too large")
)

// isMissing 判断 MinIO 返回的错误是否表示对象不存在。
func isMissing(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	if resp := minio.ToErrorResponse(err); resp.Code != "" {
		return strings.EqualFold(resp.Code, "NoSuchKey") || strings.EqualFold(resp.Code, "NotFound")
	}
	// 部分网关只保留了错误文本。
	return strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
}
