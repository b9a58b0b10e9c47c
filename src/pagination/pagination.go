// Package pagination implements the cursor contract shared by every listing
// endpoint: a cursor is an offset into a stably ordered collection, and a page
// carries the cursor of the next contiguous slice.
package pagination

import (
	"context"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Params is a parsed cursor/limit pair. Cursor >= 0, 1 <= Limit <= MaxLimit.
type Params struct {
	Cursor int
	Limit  int
}

// Page is a slice of a collection. NextCursor is nil iff fewer than Limit
// items were returned.
type Page[T any] struct {
	Items      []T  `json:"items"`
	NextCursor *int `json:"nextCursor"`
}

// RangeFunc returns the items in [offset, offset+limit).
type RangeFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// ParseParams reads cursor and limit from a query string. Missing or
// unparsable values take their defaults and both are clamped into range.
func ParseParams(query url.Values, defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	cursor := parseInt(query.Get("cursor"), 0)
	if cursor < 0 {
		cursor = 0
	}

	limit := parseInt(query.Get("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Cursor: cursor, Limit: limit}
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// NewPage wraps items returned for p. Items beyond p.Limit are dropped.
func NewPage[T any](items []T, p Params) Page[T] {
	if len(items) > p.Limit {
		items = items[:p.Limit]
	}
	if items == nil {
		items = []T{}
	}

	page := Page[T]{Items: items}
	if len(items) == p.Limit {
		next := p.Cursor + p.Limit
		page.NextCursor = &next
	}
	return page
}

// Fetch queries fn for the range described by p and wraps the result.
func Fetch[T any](ctx context.Context, p Params, fn RangeFunc[T]) (Page[T], error) {
	items, err := fn(ctx, p.Cursor, p.Limit)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, p), nil
}

// Slice pages over an in-memory sequence.
func Slice[T any](all []T, p Params) Page[T] {
	if p.Cursor >= len(all) {
		return NewPage[T](nil, p)
	}
	end := p.Cursor + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[p.Cursor:end], p)
}

// Empty is the terminal page.
func Empty[T any]() Page[T] {
	return Page[T]{Items: []T{}}
}
