package entity

import "time"

const (
	MinReviewScore = 1
	MaxReviewScore = 10
)

// DbReview 用户对作品的评价，每个作者对同一作品只能有一条。
type DbReview struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_review_title_author" json:"title"`
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_review_title_author;index" json:"-"`
	Author   *DbUser   `gorm:"foreignKey:AuthorID" json:"-"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Score    int       `gorm:"not null" json:"score"`
	PubDate  time.Time `gorm:"column:pub_date;autoCreateTime;index" json:"pub_date"`
}

// TableName 指定表名
func (DbReview) TableName() string {
	return "reviews"
}

// DbComment 评价下的评论。
type DbComment struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	ReviewID uint      `gorm:"not null;index" json:"review"`
	AuthorID uint      `gorm:"not null;index" json:"-"`
	Author   *DbUser   `gorm:"foreignKey:AuthorID" json:"-"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"column:pub_date;autoCreateTime;index" json:"pub_date"`
}

// TableName 指定表名
func (DbComment) TableName() string {
	return "comments"
}

type ReviewCreateRequest struct {
	Text  string `json:"text" binding:"required"`
	Score int    `json:"score" binding:"required,min=1,max=10"`
}

type ReviewUpdateRequest struct {
	Text  *string `json:"text,omitempty"`
	Score *int    `json:"score,omitempty" binding:"omitempty,min=1,max=10"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReviewItem 评价的对外表示。
type ReviewItem struct {
	ID      uint      `json:"id"`
	Title   uint      `json:"title"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

// CommentItem 评论的对外表示。
type CommentItem struct {
	ID      uint      `json:"id"`
	Review  uint      `json:"review"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
}
