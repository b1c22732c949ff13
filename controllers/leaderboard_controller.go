package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/utils"
)

// LeaderboardController serves the points and level rankings.
type LeaderboardController struct {
	db *gorm.DB
}

// NewLeaderboardController creates a new LeaderboardController instance.
func NewLeaderboardController(db *gorm.DB) *LeaderboardController {
	return &LeaderboardController{db: db}
}

// Points returns the top users ordered by point balance.
func (l *LeaderboardController) Points(ctx *gin.Context) {
	l.board(ctx, "cache:leaderboard:points", "points DESC, id ASC")
}

// Levels returns the top users ordered by level then balance.
func (l *LeaderboardController) Levels(ctx *gin.Context) {
	l.board(ctx, "cache:leaderboard:levels", "level DESC, points DESC, id ASC")
}

func (l *LeaderboardController) board(ctx *gin.Context, cacheKey, order string) {
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var users []models.User
	if err := l.db.Order(order).Limit(20).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50110, "failed to load leaderboard")
		return
	}

	items := make([]gin.H, 0, len(users))
	for rank, u := range users {
		var postCount, commentCount int64
		l.db.Model(&models.Post{}).Where("user_id = ?", u.ID).Count(&postCount)
		l.db.Model(&models.Comment{}).Where("user_id = ?", u.ID).Count(&commentCount)

		entry := publicUserView(u)
		entry["rank"] = rank + 1
		entry["post_count"] = postCount
		entry["comment_count"] = commentCount
		items = append(items, entry)
	}

	payload := gin.H{"items": items}
	utils.CacheSuccess(cacheKey, payload, 10*time.Minute)
	utils.Success(ctx, payload)
}
