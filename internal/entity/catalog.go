package entity

import "time"

// DbCategory 作品分类。
type DbCategory struct {
	ID   uint   `gorm:"primarykey" json:"-"`
	Name string `gorm:"type:varchar(256);not null;index" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

// TableName 指定表名
func (DbCategory) TableName() string {
	return "categories"
}

// DbGenre 作品类型。
type DbGenre struct {
	ID   uint   `gorm:"primarykey" json:"-"`
	Name string `gorm:"type:varchar(256);not null;index" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

// TableName 指定表名
func (DbGenre) TableName() string {
	return "genres"
}

// DbTitle 作品。Rating 为只读的聚合字段，由查询填充。
type DbTitle struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time   `json:"-"`
	UpdatedAt   time.Time   `json:"-"`
	Name        string      `gorm:"type:varchar(256);not null;index" json:"name"`
	Year        int         `gorm:"not null;index" json:"year"`
	Description string      `gorm:"type:text" json:"description"`
	CategoryID  *uint       `gorm:"index" json:"-"`
	Category    *DbCategory `gorm:"foreignKey:CategoryID" json:"category"`
	Genres      []DbGenre   `gorm:"many2many:genre_titles;foreignKey:ID;joinForeignKey:TitleID;references:ID;joinReferences:GenreID" json:"genre"`
	Rating      *float64    `gorm:"->;-:migration" json:"-"`
}

// TableName 指定表名
func (DbTitle) TableName() string {
	return "titles"
}

// DbTitleGenre 作品与类型的关联表。
type DbTitleGenre struct {
	TitleID uint `gorm:"primaryKey" json:"title_id"`
	GenreID uint `gorm:"primaryKey" json:"genre_id"`
}

// TableName 指定表名
func (DbTitleGenre) TableName() string {
	return "genre_titles"
}

// CategoryRequest 创建分类/类型的请求体。
type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"max=50"`
}

// SlugItem 分类/类型的对外表示。
type SlugItem struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TitleQuery 作品列表过滤参数。
type TitleQuery struct {
	BaseParams
	Category string `form:"category"`
	Genre    string `form:"genre"`
	Name     string `form:"name"`
	Year     int    `form:"year"`
}

type TitleCreateRequest struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        *int     `json:"year" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genre       []string `json:"genre"`
}

type TitleUpdateRequest struct {
	Name        *string   `json:"name,omitempty" binding:"omitempty,max=256"`
	Year        *int      `json:"year,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Genre       *[]string `json:"genre,omitempty"`
}

// TitleItem 作品的对外表示。
type TitleItem struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Year        int        `json:"year"`
	Rating      *int       `json:"rating"`
	Description string     `json:"description"`
	Genre       []SlugItem `json:"genre"`
	Category    *SlugItem  `json:"category"`
}
