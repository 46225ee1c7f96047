package draftsync

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"resumebuilder/internal/resume"
)

var (
	templateInLocation = regexp.MustCompile(`(?i)template[-_/=:]?(\d+)`)
	digitRun           = regexp.MustCompile(`\d+`)
)

// Normalize produces the fixed-shape document sent to the backend.
// Personal fields are read top-level first, then from a nested
// personalInfo or personal_info object. TemplateID is 0 unless the draft
// carries a usable explicit value.
func Normalize(doc map[string]any) resume.Payload {
	doc = jsonShaped(doc)
	nested := nestedPersonal(doc)
	personal := func(key string) string {
		if v := stringField(doc, key); v != "" {
			return v
		}
		return stringField(nested, key)
	}

	p := resume.Payload{
		Title:   stringField(doc, "title"),
		Summary: stringField(doc, "summary"),
		PersonalInfo: resume.PersonalInfo{
			Name:      personal("name"),
			Role:      personal("role"),
			Email:     personal("email"),
			Phone:     personal("phone"),
			Location:  personal("location"),
			LinkedIn:  personal("linkedin"),
			GitHub:    personal("github"),
			Portfolio: personal("portfolio"),
		},
		Skills:       stringList(doc["skills"]),
		Achievements: stringList(doc["achievements"]),
		Interests:    stringList(doc["interests"]),
	}
	if id, ok := usableTemplateID(firstPresent(doc, "template_id", "templateId")); ok {
		p.TemplateID = id
	}

	decodeList(doc["experience"], &p.Experience)
	decodeList(doc["education"], &p.Education)
	decodeList(doc["projects"], &p.Projects)
	decodeList(doc["certifications"], &p.Certifications)
	decodeList(doc["languages"], &p.Languages)
	return p
}

// ResolveTemplateID returns explicit when it is a positive integer (or a
// numeric string), else the number following "template" in location, else
// the last digit run in location, else resume.DefaultTemplateID.
func ResolveTemplateID(explicit any, location string) int {
	if id, ok := usableTemplateID(explicit); ok {
		return id
	}
	if m := templateInLocation.FindStringSubmatch(location); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil && id > 0 {
			return id
		}
	}
	if runs := digitRun.FindAllString(location, -1); len(runs) > 0 {
		if id, err := strconv.Atoi(runs[len(runs)-1]); err == nil && id > 0 {
			return id
		}
	}
	return resume.DefaultTemplateID
}

func usableTemplateID(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, t > 0
	case int64:
		return int(t), t > 0
	case float64:
		if t > 0 && t == math.Trunc(t) && t <= math.MaxInt32 {
			return int(t), true
		}
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil && n > 0 {
			return n, true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// jsonShaped rewrites typed values (structs, typed slices and maps) into the
// generic shapes encoding/json decodes to, so callers of Store.Set may pass
// either form.
func jsonShaped(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for key, v := range doc {
		out[key] = plainJSON(v)
	}
	return out
}

func plainJSON(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, int64, json.Number, []any, map[string]any:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func nestedPersonal(doc map[string]any) map[string]any {
	for _, key := range []string{"personalInfo", "personal_info"} {
		if m, ok := doc[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func firstPresent(doc map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := doc[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// stringList accepts a JSON array of strings or a comma/newline separated string.
func stringList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == '\n' })
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeList converts a generic JSON array into typed entries; other shapes leave dst nil.
func decodeList[T any](v any, dst *[]T) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return
	}
	*dst = out
}
