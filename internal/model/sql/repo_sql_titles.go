package sql

import (
	"context"
	"fmt"
	"strings"

	"yamdb/internal/entity"

	"gorm.io/gorm"
)

const titleRatingSelect = "titles.*, (SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// ListTitles returns titles with category, genres and rating loaded.
func (r *GormRepository) ListTitles(ctx context.Context, params *entity.TitleQuery) ([]entity.DbTitle, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbTitle{})
	var base *entity.BaseParams
	if params != nil {
		base = &params.BaseParams
		query = r.applyTitleFilters(ctx, query, params)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	paged, page, pageSize := paginate(query.Order("titles.id ASC"), base)
	var titles []entity.DbTitle
	if err := paged.
		Select(titleRatingSelect).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Find(&titles).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return titles, meta, nil
}

func (r *GormRepository) applyTitleFilters(ctx context.Context, query *gorm.DB, params *entity.TitleQuery) *gorm.DB {
	if slug := strings.TrimSpace(params.Category); slug != "" {
		categoryIDs := r.db.WithContext(ctx).Model(&entity.DbCategory{}).Select("id").Where("slug = ?", slug)
		query = query.Where("titles.category_id IN (?)", categoryIDs)
	}
	if slug := strings.TrimSpace(params.Genre); slug != "" {
		titleIDs := r.db.WithContext(ctx).
			Model(&entity.DbTitleGenre{}).
			Select("genre_titles.title_id").
			Joins("JOIN genres ON genres.id = genre_titles.genre_id").
			Where("genres.slug = ?", slug)
		query = query.Where("titles.id IN (?)", titleIDs)
	}
	if name := strings.TrimSpace(params.Name); name != "" {
		query = query.Where("LOWER(titles.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if params.Year != 0 {
		query = query.Where("titles.year = ?", params.Year)
	}
	if keyword := strings.TrimSpace(params.Search); keyword != "" {
		query = query.Where("LOWER(titles.name) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	return query
}

// GetTitle loads a single title with relations and rating.
func (r *GormRepository) GetTitle(ctx context.Context, id uint) (*entity.DbTitle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var title entity.DbTitle
	if err := r.db.WithContext(ctx).
		Model(&entity.DbTitle{}).
		Select(titleRatingSelect).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Where("titles.id = ?", id).
		First(&title).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

// CreateTitle inserts a title and links the given genres.
func (r *GormRepository) CreateTitle(ctx context.Context, title *entity.DbTitle, genreIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if title == nil {
		return fmt.Errorf("title is nil")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category", "Genres").Create(title).Error; err != nil {
			return err
		}
		return replaceTitleGenres(tx, title.ID, genreIDs)
	})
}

// UpdateTitle updates scalar fields and optionally replaces the genre set.
func (r *GormRepository) UpdateTitle(ctx context.Context, id uint, updates entity.TitleUpdates, genreIDs *[]uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid title id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&entity.DbTitle{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		if values := updates.ToMap(); len(values) > 0 {
			if err := tx.Model(&entity.DbTitle{}).Where("id = ?", id).Updates(values).Error; err != nil {
				return err
			}
		}
		if genreIDs != nil {
			return replaceTitleGenres(tx, id, *genreIDs)
		}
		return nil
	})
}

// DeleteTitle removes a title with its genre links, reviews and comments.
func (r *GormRepository) DeleteTitle(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid title id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewIDs := tx.Model(&entity.DbReview{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviewIDs).Delete(&entity.DbComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&entity.DbReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&entity.DbTitleGenre{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&entity.DbTitle{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func replaceTitleGenres(tx *gorm.DB, titleID uint, genreIDs []uint) error {
	if err := tx.Where("title_id = ?", titleID).Delete(&entity.DbTitleGenre{}).Error; err != nil {
		return err
	}

	links := make([]entity.DbTitleGenre, 0, len(genreIDs))
	seen := make(map[uint]struct{}, len(genreIDs))
	for _, id := range genreIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, entity.DbTitleGenre{TitleID: titleID, GenreID: id})
	}
	if len(links) == 0 {
		return nil
	}
	return tx.Create(&links).Error
}
