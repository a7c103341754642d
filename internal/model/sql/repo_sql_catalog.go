package sql

import (
	"context"
	"fmt"
	"strings"

	"yamdb/internal/entity"

	"gorm.io/gorm"
)

// ListCategories returns categories ordered by name.
func (r *GormRepository) ListCategories(ctx context.Context, params *entity.BaseParams) ([]entity.DbCategory, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	var items []entity.DbCategory
	meta, err := r.listSlugged(ctx, &entity.DbCategory{}, &items, params)
	if err != nil {
		return nil, nil, err
	}
	return items, meta, nil
}

// GetCategoryBySlug loads a category by slug.
func (r *GormRepository) GetCategoryBySlug(ctx context.Context, slug string) (*entity.DbCategory, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var category entity.DbCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a new category.
func (r *GormRepository) CreateCategory(ctx context.Context, category *entity.DbCategory) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if category == nil {
		return fmt.Errorf("category is nil")
	}
	return r.db.WithContext(ctx).Create(category).Error
}

// DeleteCategoryBySlug removes a category; titles keep existing without it.
func (r *GormRepository) DeleteCategoryBySlug(ctx context.Context, slug string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category entity.DbCategory
		if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.DbTitle{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
}

// ListGenres returns genres ordered by name.
func (r *GormRepository) ListGenres(ctx context.Context, params *entity.BaseParams) ([]entity.DbGenre, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	var items []entity.DbGenre
	meta, err := r.listSlugged(ctx, &entity.DbGenre{}, &items, params)
	if err != nil {
		return nil, nil, err
	}
	return items, meta, nil
}

// FindGenresBySlugs fetches genres by slug. Unknown slugs are simply absent
// from the result.
func (r *GormRepository) FindGenresBySlugs(ctx context.Context, slugs []string) ([]entity.DbGenre, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(slugs) == 0 {
		return []entity.DbGenre{}, nil
	}

	var genres []entity.DbGenre
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

// CreateGenre inserts a new genre.
func (r *GormRepository) CreateGenre(ctx context.Context, genre *entity.DbGenre) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if genre == nil {
		return fmt.Errorf("genre is nil")
	}
	return r.db.WithContext(ctx).Create(genre).Error
}

// DeleteGenreBySlug removes a genre and its title links.
func (r *GormRepository) DeleteGenreBySlug(ctx context.Context, slug string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre entity.DbGenre
		if err := tx.Where("slug = ?", slug).First(&genre).Error; err != nil {
			return err
		}
		if err := tx.Where("genre_id = ?", genre.ID).Delete(&entity.DbTitleGenre{}).Error; err != nil {
			return err
		}
		return tx.Delete(&genre).Error
	})
}

func (r *GormRepository) listSlugged(ctx context.Context, model interface{}, dest interface{}, params *entity.BaseParams) (*entity.Meta, error) {
	query := r.db.WithContext(ctx).Model(model)
	if params != nil {
		if keyword := strings.TrimSpace(params.Search); keyword != "" {
			query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(keyword)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	paged, page, pageSize := paginate(query.Order("name ASC, id ASC"), params)
	if err := paged.Find(dest).Error; err != nil {
		return nil, err
	}
	return r.calculatePagination(total, page, pageSize), nil
}
