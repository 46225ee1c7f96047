// Package pagination parses page/limit query values and computes page metadata.
package pagination

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage 保证 (page-1)*limit 不溢出；更大的页码只会得到空页。
	MaxPage = math.MaxInt32 / MaxLimit
)

// Params 为规范化后的分页参数。
type Params struct {
	Page  int
	Limit int
}

// Meta 随列表一起返回给客户端。
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Parse 解析查询参数；缺失、非数字或非正数时回退到默认值，limit 上限为 MaxLimit。
func Parse(page, limit string) Params {
	return New(atoiOr(page, DefaultPage), atoiOr(limit, DefaultLimit))
}

// New 规范化已解析的数值。
func New(page, limit int) Params {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	return Params{Page: page, Limit: limit}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta 根据总数计算页数，totalPages = ceil(total/limit)。
func (p Params) Meta(total int64) Meta {
	pages := 0
	if total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
