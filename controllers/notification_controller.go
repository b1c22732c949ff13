package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/utils"
)

// NotificationController lists and marks user notifications.
type NotificationController struct {
	db *gorm.DB
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// List returns the authenticated user's notifications, newest first.
func (n *NotificationController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := n.db.Where("user_id = ?", userID)
	if ctx.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Model(&models.Notification{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50120, "failed to count notifications")
		return
	}

	var notifications []models.Notification
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&notifications).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50121, "failed to list notifications")
		return
	}

	var unread int64
	n.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unread)

	utils.Success(ctx, gin.H{
		"items":        notifications,
		"unread_count": unread,
		"pagination":   paginationMeta(page, pageSize, total),
	})
}

// UnreadCount returns only the unread notification count.
func (n *NotificationController) UnreadCount(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var unread int64
	if err := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&unread).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50122, "failed to count notifications")
		return
	}
	utils.Success(ctx, gin.H{"unread_count": unread})
}

// MarkRead marks one notification as read.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var notification models.Notification
	if err := n.db.Where("id = ? AND user_id = ?", ctx.Param("id"), userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "notification not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50123, "failed to load notification")
		return
	}

	if err := n.db.Model(&notification).Update("is_read", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50124, "failed to mark notification")
		return
	}
	utils.Success(ctx, gin.H{"message": "marked as read"})
}

// MarkAllRead marks every unread notification of the user as read.
func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50125, "failed to mark notifications")
		return
	}
	utils.Success(ctx, gin.H{"message": "all marked as read"})
}
