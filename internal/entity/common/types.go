package common

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Meta 分页元数据。
type Meta struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

// BaseParams 通用分页与搜索参数。
type BaseParams struct {
	PageSize int64  `json:"page_size" form:"page_size" query:"page_size"`
	Page     int64  `json:"page" form:"page" query:"page"`
	Search   string `json:"search" form:"search" query:"search"`
}

// Normalize 将分页参数约束在合法范围内。
func (p *BaseParams) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset 返回当前页的偏移量。
func (p BaseParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return int((p.Page - 1) * p.PageSize)
}
