package models

import "time"

// ShopItem is a purchasable perk in the points shop.
type ShopItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Price       int       `gorm:"not null" json:"price"`
	ItemType    string    `gorm:"size:32;not null" json:"item_type"` // post_pin, post_highlight, rename, badge
	ItemValue   string    `gorm:"size:64" json:"item_value"`
	Icon        string    `gorm:"size:16" json:"icon"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Purchase logs a shop purchase and the points spent on it.
type Purchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ItemID      uint      `gorm:"index;not null" json:"item_id"`
	PointsSpent int       `gorm:"not null" json:"points_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBadge records badge ownership; a user holds each badge at most once.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;index:idx_user_badge,unique;not null" json:"user_id"`
	BadgeName string    `gorm:"size:64;index:idx_user_badge,unique;not null" json:"badge_name"`
	BadgeIcon string    `gorm:"size:16" json:"badge_icon"`
	CreatedAt time.Time `json:"obtained_at"`
}
