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

// CheckinController exposes the daily check-in operation and its status.
type CheckinController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewCheckinController creates a new CheckinController instance.
func NewCheckinController(db *gorm.DB, ledger *points.Ledger) *CheckinController {
	return &CheckinController{db: db, ledger: ledger}
}

// CheckIn performs today's check-in for the authenticated user.
func (c *CheckinController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := c.ledger.CheckIn(userID)
	if err != nil {
		if errors.Is(err, points.ErrAlreadyCheckedIn) {
			utils.Error(ctx, http.StatusConflict, 40910, "今天已经签到过了")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to check in")
		return
	}

	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to load user")
		return
	}

	utils.Success(ctx, gin.H{
		"checkin": result,
		"points":  user.Points,
		"level":   user.Level,
	})
}

// Status reports whether the user already checked in today and the current
// streak, without mutating anything.
func (c *CheckinController) Status(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := c.ledger.Status(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to load check-in status")
		return
	}
	utils.Success(ctx, gin.H{"status": status})
}

// History returns the user's recent check-in records.
func (c *CheckinController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := c.db.Model(&models.CheckinRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to count check-ins")
		return
	}

	var records []models.CheckinRecord
	if err := c.db.Where("user_id = ?", userID).Order("checkin_date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to list check-ins")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      records,
		"pagination": paginationMeta(page, pageSize, total),
	})
}
