package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPage indicates a page number below 1
	ErrInvalidPage = errors.New("page must be >= 1")

	// ErrInvalidPageSize indicates a non-positive page size
	ErrInvalidPageSize = errors.New("page size must be >= 1")
)

// Config bounds the page sizes accepted from callers.
type Config struct {
	// DefaultPageSize is used when the caller does not ask for a size
	DefaultPageSize int

	// MaxPageSize caps the size a caller may ask for
	MaxPageSize int
}

// DefaultConfig returns the default page size bounds.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 50,
		MaxPageSize:     500,
	}
}

// Normalize resolves a requested page size: non-positive sizes become the
// default, oversized ones are clamped to the maximum.
func (c Config) Normalize(pageSize int) int {
	if pageSize <= 0 {
		pageSize = c.DefaultPageSize
	}
	if c.MaxPageSize > 0 && pageSize > c.MaxPageSize {
		pageSize = c.MaxPageSize
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// Page is a window over an ordered collection.
type Page[T any] struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
	Items      []T `json:"items"`
}

// HasNext reports whether a later page holds items.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// TotalPages returns ceil(totalItems / pageSize).
func TotalPages(totalItems, pageSize int) int {
	if pageSize <= 0 || totalItems <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// Paginate cuts page number page (1-based) of size pageSize out of items.
// The returned Items share memory with items.
func Paginate[T any](items []T, page, pageSize int) (Page[T], error) {
	if page < 1 {
		return Page[T]{}, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}
	if pageSize < 1 {
		return Page[T]{}, fmt.Errorf("%w: got %d", ErrInvalidPageSize, pageSize)
	}

	total := len(items)
	result := Page[T]{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: TotalPages(total, pageSize),
		Items:      []T{},
	}

	start := (page - 1) * pageSize
	if start >= total {
		return result, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	result.Items = items[start:end]
	return result, nil
}
