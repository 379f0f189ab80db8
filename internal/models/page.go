package models

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is a normalized pagination request.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest normalizes page and limit: values below one fall back to the defaults
// and limit is capped at MaxLimit.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return PageRequest{Page: page, Limit: min(limit, MaxLimit)}
}

// ParsePageRequest normalizes raw query values. Unparsable values fall back to defaults.
func ParsePageRequest(page, limit string) PageRequest {
	return NewPageRequest(atoiOr(page, DefaultPage), atoiOr(limit, DefaultLimit))
}

// Offset is the number of items skipped before this page. It saturates at
// math.MaxInt instead of wrapping, so it is never negative.
func (p PageRequest) Offset() int {
	p = NewPageRequest(p.Page, p.Limit)
	skipped := p.Page - 1
	if skipped > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return skipped * p.Limit
}

// Page is one slice of an ordered listing plus the totals needed to navigate it.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPage assembles a Page. A nil slice is replaced by an empty one so empty results
// serialize as [] rather than null.
func NewPage[T any](req PageRequest, items []T, total int64) Page[T] {
	req = NewPageRequest(req.Page, req.Limit)
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: TotalPages(total, req.Limit),
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

// Window returns the bounds of the requested page within n items.
func (p PageRequest) Window(n int) (start, end int) {
	start = min(p.Offset(), n)
	end = start + min(NewPageRequest(p.Page, p.Limit).Limit, n-start)
	return start, end
}

func atoiOr(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
