package storage

import (
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SourcePrefix 是上传的简历源文件所在的对象前缀。
const SourcePrefix = "resume-sources"

const maxExtLen = 8

// SourceObjectKey 生成 resume-sources/<uid>/<uuid><ext> 形式的对象键。
// 原始文件名只保留扩展名，不进入对象键。
func SourceObjectKey(userID uint, filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if len(ext) > maxExtLen {
		ext = ""
	}
	return path.Join(SourcePrefix, strconv.FormatUint(uint64(userID), 10), uuid.NewString()+ext)
}

// SourceKeyOwner 从 SourceObjectKey 生成的键中解析出用户 ID。
func SourceKeyOwner(key string) (uint, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != SourcePrefix || parts[2] == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
