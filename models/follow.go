package models

import "time"

// Follow records that FollowerID follows FollowingID.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"index;index:idx_follow_pair,unique;not null" json:"follower_id"`
	FollowingID uint      `gorm:"index;index:idx_follow_pair,unique;not null" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
