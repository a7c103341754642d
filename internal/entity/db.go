package entity

// Re-export common types from the common package.

import (
	"yamdb/internal/entity/common"
)

const (
	DefaultPageSize = common.DefaultPageSize
	MaxPageSize     = common.MaxPageSize
)

type Meta = common.Meta
type BaseParams = common.BaseParams

// ListResponse 列表接口的统一响应。
type ListResponse[T any] struct {
	Results []T   `json:"results"`
	Meta    *Meta `json:"meta"`
}
