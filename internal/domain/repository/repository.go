// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

const (
	// DefaultPageSize 未指定 per_page 时的分页大小
	DefaultPageSize = 15
	// MaxPageSize 单页上限
	MaxPageSize = 100
)

// TxKey 事务在 context 中的键
type TxKey struct{}

// Transactor 事务管理接口
type Transactor interface {
	// WithTransaction 在事务中执行 fn，嵌套调用复用外层事务
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pagination 分页参数，页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 归一化分页参数：非法页码取第一页，页大小限制在 [1, MaxPageSize]
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

func (p Pagination) Limit() int { return p.PageSize }

// PagedResult 一页查询结果，Items 不为 nil
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 组装分页结果
func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return &PagedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pageCount(total, p.PageSize),
	}
}

// HasMore 是否存在下一页
func (r *PagedResult[T]) HasMore() bool {
	return r.Page < r.TotalPages
}

func pageCount(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
