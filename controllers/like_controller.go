package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// LikeController toggles likes on posts and comments. A toggle flips the
// join row, the counter and the author's point delta in one transaction.
type LikeController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewLikeController creates a new LikeController instance.
func NewLikeController(db *gorm.DB, ledger *points.Ledger) *LikeController {
	return &LikeController{db: db, ledger: ledger}
}

// TogglePostLike likes or unlikes a post for the authenticated user.
func (l *LikeController) TogglePostLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := l.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load post")
		return
	}

	var liked bool
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var existing models.PostLike
		err := tx.Where("post_id = ? AND user_id = ?", post.ID, userID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&post).UpdateColumn("likes", gorm.Expr("likes - 1")).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.PostLike{PostID: post.ID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&post).UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}
		return l.ledger.ApplyLikeDelta(tx, post.UserID, userID, liked)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to toggle like")
		return
	}

	if liked && post.UserID != userID {
		l.notifyLiked(post.UserID, userID, post.ID, models.RelatedPost, "赞了你的帖子")
	}

	var count int64
	l.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
	utils.Success(ctx, gin.H{"liked": liked, "likes": count})
}

// ToggleCommentLike likes or unlikes a comment for the authenticated user.
func (l *LikeController) ToggleCommentLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var comment models.Comment
	if err := l.db.First(&comment, ctx.Param("commentId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load comment")
		return
	}

	var liked bool
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CommentLike
		err := tx.Where("comment_id = ? AND user_id = ?", comment.ID, userID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&comment).UpdateColumn("likes", gorm.Expr("likes - 1")).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.CommentLike{CommentID: comment.ID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&comment).UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}
		return l.ledger.ApplyLikeDelta(tx, comment.UserID, userID, liked)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to toggle like")
		return
	}

	if liked && comment.UserID != userID {
		l.notifyLiked(comment.UserID, userID, comment.PostID, models.RelatedPost, "赞了你的评论")
	}

	var count int64
	l.db.Model(&models.CommentLike{}).Where("comment_id = ?", comment.ID).Count(&count)
	utils.Success(ctx, gin.H{"liked": liked, "likes": count})
}

func (l *LikeController) notifyLiked(targetUserID, actorID uint, relatedID uint, relatedType, action string) {
	var actor models.User
	if err := l.db.Select("username").First(&actor, actorID).Error; err != nil {
		return
	}
	l.db.Create(&models.Notification{
		UserID:      targetUserID,
		Type:        models.NotifyLike,
		Title:       "收到点赞",
		Content:     actor.Username + " " + action,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})
}
