package models

import "time"

// CheckinRecord stores one daily check-in per user. CheckinDate is the
// server-local calendar day in YYYY-MM-DD form; the unique index makes a
// second check-in on the same day impossible at the storage level.
type CheckinRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;index:idx_checkin_user_date,unique;not null" json:"user_id"`
	CheckinDate     string    `gorm:"size:10;index:idx_checkin_user_date,unique;not null" json:"checkin_date"`
	ConsecutiveDays int       `gorm:"not null;default:1" json:"consecutive_days"`
	PointsEarned    int       `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt       time.Time `json:"created_at"`
}
