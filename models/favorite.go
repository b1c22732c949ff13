package models

import "time"

// Favorite bookmarks a post for a user.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;index:idx_favorite,unique;not null" json:"post_id"`
	UserID    uint      `gorm:"index;index:idx_favorite,unique;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
