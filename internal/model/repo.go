package model

import (
	"context"
	"time"

	"yamdb/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	// 确认码
	SetConfirmationCode(ctx context.Context, userID uint, code string, issuedAt time.Time, ttl time.Duration) error
	ConsumeConfirmationCode(ctx context.Context, userID uint, code string, now time.Time) error
	ClearExpiredConfirmationCodes(ctx context.Context, now time.Time) (int64, error)

	// 分类与类型
	ListCategories(ctx context.Context, params *entity.BaseParams) ([]entity.DbCategory, *entity.Meta, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*entity.DbCategory, error)
	CreateCategory(ctx context.Context, category *entity.DbCategory) error
	DeleteCategoryBySlug(ctx context.Context, slug string) error
	ListGenres(ctx context.Context, params *entity.BaseParams) ([]entity.DbGenre, *entity.Meta, error)
	FindGenresBySlugs(ctx context.Context, slugs []string) ([]entity.DbGenre, error)
	CreateGenre(ctx context.Context, genre *entity.DbGenre) error
	DeleteGenreBySlug(ctx context.Context, slug string) error

	// 作品
	ListTitles(ctx context.Context, params *entity.TitleQuery) ([]entity.DbTitle, *entity.Meta, error)
	GetTitle(ctx context.Context, id uint) (*entity.DbTitle, error)
	CreateTitle(ctx context.Context, title *entity.DbTitle, genreIDs []uint) error
	UpdateTitle(ctx context.Context, id uint, updates entity.TitleUpdates, genreIDs *[]uint) error
	DeleteTitle(ctx context.Context, id uint) error

	// 评价与评论
	ListReviews(ctx context.Context, titleID uint, params *entity.BaseParams) ([]entity.DbReview, *entity.Meta, error)
	GetReview(ctx context.Context, titleID, reviewID uint) (*entity.DbReview, error)
	CreateReview(ctx context.Context, review *entity.DbReview) error
	UpdateReview(ctx context.Context, id uint, updates entity.ReviewUpdates) error
	DeleteReview(ctx context.Context, id uint) error
	ListComments(ctx context.Context, reviewID uint, params *entity.BaseParams) ([]entity.DbComment, *entity.Meta, error)
	GetComment(ctx context.Context, reviewID, commentID uint) (*entity.DbComment, error)
	CreateComment(ctx context.Context, comment *entity.DbComment) error
	UpdateComment(ctx context.Context, id uint, text string) error
	DeleteComment(ctx context.Context, id uint) error

	// 批量导入
	HasRows(ctx context.Context, model interface{}) (bool, error)
	BulkInsert(ctx context.Context, rows interface{}) error
	SyncSequences(ctx context.Context, tables ...string) error
}
