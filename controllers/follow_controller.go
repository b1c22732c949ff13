package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/utils"
)

// FollowController manages the follower graph between users.
type FollowController struct {
	db *gorm.DB
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{db: db}
}

// ToggleFollow follows or unfollows the target user and notifies them.
func (f *FollowController) ToggleFollow(ctx *gin.Context) {
	followerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || targetID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return
	}
	followingID := uint(targetID)
	if followingID == followerID {
		utils.Error(ctx, http.StatusBadRequest, 40051, "cannot follow yourself")
		return
	}

	var target models.User
	if err := f.db.First(&target, followingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to load user")
		return
	}

	var existing models.Follow
	err = f.db.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&existing).Error
	switch {
	case err == nil:
		if err := f.db.Delete(&existing).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to unfollow")
			return
		}
		f.notify(followingID, followerID, models.NotifyUnfollow, "取消关注", " 取消关注了你")
		utils.Success(ctx, gin.H{"following": false})
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := f.db.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to follow")
			return
		}
		f.notify(followingID, followerID, models.NotifyFollow, "新的关注", " 关注了你")
		utils.Success(ctx, gin.H{"following": true})
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to load follow state")
	}
}

func (f *FollowController) notify(targetUserID, actorID uint, kind, title, action string) {
	var actor models.User
	if err := f.db.Select("username").First(&actor, actorID).Error; err != nil {
		return
	}
	f.db.Create(&models.Notification{
		UserID:  targetUserID,
		Type:    kind,
		Title:   title,
		Content: actor.Username + action,
	})
}

// ListFollowers returns users following the given user.
func (f *FollowController) ListFollowers(ctx *gin.Context) {
	f.listEdge(ctx, "following_id", "follower_id")
}

// ListFollowing returns users the given user follows.
func (f *FollowController) ListFollowing(ctx *gin.Context) {
	f.listEdge(ctx, "follower_id", "following_id")
}

func (f *FollowController) listEdge(ctx *gin.Context, whereCol, selectCol string) {
	userID := ctx.Param("id")
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := f.db.Model(&models.Follow{}).Where(whereCol+" = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to count follows")
		return
	}

	var ids []uint
	if err := f.db.Model(&models.Follow{}).Where(whereCol+" = ?", userID).
		Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Pluck(selectCol, &ids).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to list follows")
		return
	}

	users := make([]gin.H, 0, len(ids))
	if len(ids) > 0 {
		var rows []models.User
		if err := f.db.Find(&rows, ids).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to load users")
			return
		}
		byID := make(map[uint]models.User, len(rows))
		for _, u := range rows {
			byID[u.ID] = u
		}
		for _, id := range ids {
			if u, ok := byID[id]; ok {
				users = append(users, publicUserView(u))
			}
		}
	}

	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// FollowStats returns follower and following counts plus whether the
// requester follows the user.
func (f *FollowController) FollowStats(ctx *gin.Context) {
	userID := ctx.Param("id")

	var followers, following int64
	f.db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followers)
	f.db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following)

	payload := gin.H{
		"followers": followers,
		"following": following,
	}
	if requesterID, ok := getUserID(ctx); ok {
		var n int64
		f.db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", requesterID, userID).Count(&n)
		payload["is_following"] = n > 0
	}
	utils.Success(ctx, payload)
}
