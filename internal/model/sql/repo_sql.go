package sql

import (
	"yamdb/internal/entity"

	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// DB exposes the underlying handle for health checks and shutdown.
func (r *GormRepository) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

// calculatePagination calculates pagination metrics
func (r *GormRepository) calculatePagination(totalCount int64, page, pageSize int) *entity.Meta {
	if pageSize <= 0 {
		pageSize = entity.DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	return &entity.Meta{
		Total:    totalCount,
		Page:     int64(page),
		PageSize: int64(pageSize),
	}
}

// paginate applies normalised paging to query and returns page, pageSize.
func paginate(query *gorm.DB, params *entity.BaseParams) (*gorm.DB, int, int) {
	p := entity.BaseParams{}
	if params != nil {
		p = *params
	}
	p.Normalize()
	return query.Offset(p.Offset()).Limit(int(p.PageSize)), int(p.Page), int(p.PageSize)
}
