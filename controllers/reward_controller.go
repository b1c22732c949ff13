package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// RewardController exposes peer-to-peer point transfers on posts and comments.
type RewardController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewRewardController creates a new RewardController instance.
func NewRewardController(db *gorm.DB, ledger *points.Ledger) *RewardController {
	return &RewardController{db: db, ledger: ledger}
}

// CreateReward transfers points from the authenticated user to the author
// of the target post or comment.
func (r *RewardController) CreateReward(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		RelatedType string `json:"related_type" binding:"required"`
		RelatedID   uint   `json:"related_id" binding:"required"`
		Points      int    `json:"points" binding:"required"`
		Message     string `json:"message"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}

	message := utils.Sanitize(strings.TrimSpace(req.Message))
	if rs := []rune(message); len(rs) > 100 {
		message = string(rs[:100])
	}

	reward, err := r.ledger.SendReward(userID, req.RelatedType, req.RelatedID, req.Points, message)
	if err != nil {
		switch {
		case errors.Is(err, points.ErrInvalidRewardPoints):
			utils.Error(ctx, http.StatusBadRequest, 40091, "打赏积分需在1-1000之间")
		case errors.Is(err, points.ErrRewardTargetMissing):
			utils.Error(ctx, http.StatusNotFound, 40430, "打赏对象不存在")
		case errors.Is(err, points.ErrSelfReward):
			utils.Error(ctx, http.StatusBadRequest, 40092, "不能打赏自己")
		case errors.Is(err, points.ErrInsufficientPoints):
			utils.Error(ctx, http.StatusBadRequest, 40093, "积分不足")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to send reward")
		}
		return
	}

	var sender models.User
	if err := r.db.First(&sender, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to load user")
		return
	}

	utils.Success(ctx, gin.H{
		"reward": reward,
		"points": sender.Points,
	})
}

// ListRewardsForTarget returns rewards attached to a post or comment.
func (r *RewardController) ListRewardsForTarget(ctx *gin.Context) {
	relatedType := ctx.Query("related_type")
	if relatedType != models.RelatedPost && relatedType != models.RelatedComment {
		utils.Error(ctx, http.StatusBadRequest, 40094, "invalid related type")
		return
	}
	relatedID := ctx.Query("related_id")
	if relatedID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40095, "missing related id")
		return
	}

	var rewards []models.Reward
	if err := r.db.Where("related_type = ? AND related_id = ?", relatedType, relatedID).
		Order("created_at DESC").Limit(100).Find(&rewards).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to list rewards")
		return
	}

	items := r.decorate(rewards)
	var total int
	for _, rw := range rewards {
		total += rw.Points
	}
	utils.Success(ctx, gin.H{"items": items, "total_points": total})
}

// ListMyRewards returns rewards sent or received by the authenticated user.
func (r *RewardController) ListMyRewards(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := r.db.Model(&models.Reward{})
	switch ctx.DefaultQuery("direction", "received") {
	case "sent":
		q = q.Where("from_user_id = ?", userID)
	default:
		q = q.Where("to_user_id = ?", userID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to count rewards")
		return
	}

	var rewards []models.Reward
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rewards).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to list rewards")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      r.decorate(rewards),
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// decorate attaches sender and recipient usernames to reward rows.
func (r *RewardController) decorate(rewards []models.Reward) []gin.H {
	ids := make([]uint, 0, len(rewards)*2)
	for _, rw := range rewards {
		ids = append(ids, rw.FromUserID, rw.ToUserID)
	}
	names := map[uint]string{}
	if len(ids) > 0 {
		var users []models.User
		if err := r.db.Select("id", "username").Find(&users, utils.UniqueUint(ids)).Error; err == nil {
			for _, u := range users {
				names[u.ID] = u.Username
			}
		}
	}

	items := make([]gin.H, 0, len(rewards))
	for _, rw := range rewards {
		items = append(items, gin.H{
			"id":            rw.ID,
			"from_user_id":  rw.FromUserID,
			"from_username": names[rw.FromUserID],
			"to_user_id":    rw.ToUserID,
			"to_username":   names[rw.ToUserID],
			"points":        rw.Points,
			"related_type":  rw.RelatedType,
			"related_id":    rw.RelatedID,
			"message":       rw.Message,
			"created_at":    rw.CreatedAt,
		})
	}
	return items
}
