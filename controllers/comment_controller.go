package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// CommentController manages comments and replies on posts.
type CommentController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB, ledger *points.Ledger) *CommentController {
	return &CommentController{db: db, ledger: ledger}
}

// ListComments returns paginated comments of a post including authors.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID := ctx.Param("id")
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	q := c.db.Where("post_id = ?", postID)
	if err := q.Model(&models.Comment{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count comments")
		return
	}

	var comments []models.Comment
	if err := q.Preload("User").Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      comments,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// CreateComment adds a comment or reply, credits the comment reward and
// notifies the post author or the parent comment author.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "content cannot be empty")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := c.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load post")
		return
	}
	if post.IsLocked {
		utils.Error(ctx, http.StatusForbidden, 40330, "post is locked")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var parent *models.Comment
	if req.ParentID != nil {
		var pc models.Comment
		if err := c.db.First(&pc, *req.ParentID).Error; err != nil || pc.PostID != post.ID {
			utils.Error(ctx, http.StatusBadRequest, 40042, "invalid parent comment")
			return
		}
		parent = &pc
	}

	comment := models.Comment{
		PostID:   post.ID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create comment")
		return
	}

	if err := c.ledger.AwardUser(userID, points.CommentReward, points.EngageDivisor); err != nil {
		utils.Sugar.Errorf("comment reward for user %d failed: %v", userID, err)
	}

	c.notifyCommented(&post, parent, &comment, userID)

	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load comment")
		return
	}
	utils.Success(ctx, gin.H{"comment": comment})
}

// notifyCommented creates a reply notification for the parent author or a
// comment notification for the post author. Self-notifications are skipped.
func (c *CommentController) notifyCommented(post *models.Post, parent *models.Comment, comment *models.Comment, actorID uint) {
	var actor models.User
	if err := c.db.Select("username").First(&actor, actorID).Error; err != nil {
		return
	}

	if parent != nil {
		if parent.UserID == actorID {
			return
		}
		c.db.Create(&models.Notification{
			UserID:      parent.UserID,
			Type:        models.NotifyReply,
			Title:       "收到回复",
			Content:     actor.Username + " 回复了你的评论",
			RelatedID:   post.ID,
			RelatedType: models.RelatedPost,
		})
		return
	}

	if post.UserID == actorID {
		return
	}
	c.db.Create(&models.Notification{
		UserID:      post.UserID,
		Type:        models.NotifyComment,
		Title:       "收到评论",
		Content:     actor.Username + " 评论了你的帖子",
		RelatedID:   post.ID,
		RelatedType: models.RelatedPost,
	})
}

// UpdateComment allows the author to edit their comment.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid request payload")
		return
	}
	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "content cannot be empty")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("commentId")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to load comment")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}
	if comment.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40321, "you can only edit your own comment")
		return
	}

	if err := c.db.Model(&comment).Update("content", content).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to update comment")
		return
	}
	comment.Content = content
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment allows the comment owner or an admin to delete a comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("commentId")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to load comment")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}
	if comment.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40320, "you can only delete your own comment")
		return
	}

	if err := c.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
