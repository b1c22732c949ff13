package models

import "time"

// Notification kinds produced by social actions.
const (
	NotifyLike     = "like"
	NotifyComment  = "comment"
	NotifyReply    = "reply"
	NotifyReward   = "reward"
	NotifyFollow   = "follow"
	NotifyUnfollow = "unfollow"
)

// Notification is a side-effect record created when a social action targets
// another user. The producing subsystem never mutates it after creation.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	Title       string    `gorm:"size:64;not null" json:"title"`
	Content     string    `gorm:"size:255" json:"content"`
	RelatedID   uint      `json:"related_id"`
	RelatedType string    `gorm:"size:16" json:"related_type"`
	IsRead      bool      `gorm:"index;not null;default:false" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
