package models

import "time"

// Related entity kinds accepted by rewards and notifications.
const (
	RelatedPost    = "post"
	RelatedComment = "comment"
)

// Reward is an immutable record of a peer-to-peer point transfer against a
// post or comment. Rows are only ever inserted.
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FromUserID  uint      `gorm:"index;not null" json:"from_user_id"`
	ToUserID    uint      `gorm:"index;not null" json:"to_user_id"`
	Points      int       `gorm:"not null" json:"points"`
	RelatedType string    `gorm:"size:16;not null" json:"related_type"`
	RelatedID   uint      `gorm:"not null" json:"related_id"`
	Message     string    `gorm:"size:100" json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
