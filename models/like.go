package models

import "time"

// PostLike is a join row preventing a user from liking a post twice.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;index:idx_post_like,unique;not null" json:"post_id"`
	UserID    uint      `gorm:"index;index:idx_post_like,unique;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike is a join row preventing a user from liking a comment twice.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"index;index:idx_comment_like,unique;not null" json:"comment_id"`
	UserID    uint      `gorm:"index;index:idx_comment_like,unique;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
