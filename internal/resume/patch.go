package resume

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"resumebuilder/internal/errcode"
)

// Optional 记录字段是否出现在请求中，以及是否显式为 null。
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some 表示出现且有值的字段。
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// Null 表示显式为 null 的字段。
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// Patch 描述一次创建或部分更新的输入。未出现的字段保持不变（创建时为 NULL）。
type Patch struct {
	Title          Optional[string]
	TemplateID     Optional[int]
	PersonalInfo   Optional[PersonalInfo]
	Summary        Optional[string]
	Skills         Optional[[]string]
	Experience     Optional[[]Experience]
	Education      Optional[[]Education]
	Projects       Optional[[]Project]
	Certifications Optional[[]Certification]
	Achievements   Optional[[]string]
	Interests      Optional[[]string]
	Languages      Optional[[]Language]
	ExtractedText  Optional[string]
}

// Empty 没有任何可识别字段时返回 true。
func (p Patch) Empty() bool {
	return !(p.Title.Set || p.TemplateID.Set || p.PersonalInfo.Set || p.Summary.Set ||
		p.Skills.Set || p.Experience.Set || p.Education.Set || p.Projects.Set ||
		p.Certifications.Set || p.Achievements.Set || p.Interests.Set || p.Languages.Set ||
		p.ExtractedText.Set)
}

// ParsePatch 解析 JSON 对象。键同时接受 snake_case 与浏览器端使用的 camelCase 写法，
// 未知键被忽略，类型不符返回 ErrValidation。
func ParsePatch(body []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return Patch{}, errcode.Validation("request body must be a JSON object")
	}

	var p Patch
	steps := []func() error{
		func() error { return decodeField(raw, &p.Title, "title") },
		func() error { return decodeTemplateID(raw, &p.TemplateID) },
		func() error { return decodeField(raw, &p.PersonalInfo, "personal_info", "personalInfo") },
		func() error { return decodeField(raw, &p.Summary, "summary") },
		func() error { return decodeField(raw, &p.Skills, "skills") },
		func() error { return decodeField(raw, &p.Experience, "experience") },
		func() error { return decodeField(raw, &p.Education, "education") },
		func() error { return decodeField(raw, &p.Projects, "projects") },
		func() error { return decodeField(raw, &p.Certifications, "certifications") },
		func() error { return decodeField(raw, &p.Achievements, "achievements") },
		func() error { return decodeField(raw, &p.Interests, "interests") },
		func() error { return decodeField(raw, &p.Languages, "languages") },
		func() error { return decodeField(raw, &p.ExtractedText, "extracted_text", "extractedText") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}

func decodeField[T any](raw map[string]json.RawMessage, dst *Optional[T], keys ...string) error {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if isNull(value) {
			*dst = Null[T]()
			return nil
		}
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return errcode.Validation("invalid value for %s", keys[0])
		}
		*dst = Some(v)
		return nil
	}
	return nil
}

// template_id 允许数字字符串。
func decodeTemplateID(raw map[string]json.RawMessage, dst *Optional[int]) error {
	for _, key := range []string{"template_id", "templateId"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if isNull(value) {
			*dst = Null[int]()
			return nil
		}

		var n int
		if err := json.Unmarshal(value, &n); err != nil {
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return errcode.Validation("invalid value for template_id")
			}
			parsed, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return errcode.Validation("invalid value for template_id")
			}
			n = parsed
		}
		if n <= 0 {
			return errcode.Validation("template_id must be positive")
		}
		*dst = Some(n)
		return nil
	}
	return nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
