package models

import "time"

// Post represents a forum post created by a user.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Attachments string    `gorm:"type:text" json:"attachments"` // JSON array of attachment URLs
	Views       int64     `gorm:"not null;default:0" json:"views"`
	Likes       int64     `gorm:"not null;default:0" json:"likes"`
	IsPinned    bool      `gorm:"not null;default:false" json:"is_pinned"`
	IsLocked    bool      `gorm:"not null;default:false" json:"is_locked"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Category    *Category `json:"category,omitempty"`
	Comments    []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
