package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// ShopController sells perks for points. Purchases debit the balance through
// the ledger inside the same transaction that records the purchase.
type ShopController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewShopController creates a new ShopController instance.
func NewShopController(db *gorm.DB, ledger *points.Ledger) *ShopController {
	return &ShopController{db: db, ledger: ledger}
}

// ListItems returns available shop items.
func (s *ShopController) ListItems(ctx *gin.Context) {
	const cacheKey = "cache:shop:items"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var items []models.ShopItem
	if err := s.db.Where("is_available = ?", true).Order("price").Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to list shop items")
		return
	}
	payload := gin.H{"items": items}
	utils.CacheSuccess(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// Purchase buys an item. Badge items are granted at most once per user.
func (s *ShopController) Purchase(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var item models.ShopItem
	if err := s.db.First(&item, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "item not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50101, "failed to load item")
		return
	}
	if !item.IsAvailable {
		utils.Error(ctx, http.StatusBadRequest, 40096, "商品已下架")
		return
	}

	if item.ItemType == "badge" {
		var n int64
		s.db.Model(&models.UserBadge{}).Where("user_id = ? AND badge_name = ?", userID, item.Name).Count(&n)
		if n > 0 {
			utils.Error(ctx, http.StatusConflict, 40920, "已拥有该徽章")
			return
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Sufficiency is checked under the row lock inside Spend; a
		// snapshot read here could let two purchases pass the same balance
		if err := s.ledger.Spend(tx, userID, item.Price, points.ProfileDivisor); err != nil {
			return err
		}
		if err := tx.Create(&models.Purchase{
			UserID:      userID,
			ItemID:      item.ID,
			PointsSpent: item.Price,
		}).Error; err != nil {
			return err
		}
		if item.ItemType == "badge" {
			return tx.Create(&models.UserBadge{
				UserID:    userID,
				BadgeName: item.Name,
				BadgeIcon: item.Icon,
			}).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, points.ErrInsufficientPoints) {
			utils.Error(ctx, http.StatusBadRequest, 40093, "积分不足")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50102, "failed to purchase item")
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{
		"item":   item,
		"points": user.Points,
	})
}

// ListMyPurchases returns the authenticated user's purchase history.
func (s *ShopController) ListMyPurchases(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := s.db.Model(&models.Purchase{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50104, "failed to count purchases")
		return
	}

	var purchases []models.Purchase
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&purchases).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50105, "failed to list purchases")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      purchases,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// ListUserBadges returns badges held by a user (public).
func (s *ShopController) ListUserBadges(ctx *gin.Context) {
	var badges []models.UserBadge
	if err := s.db.Where("user_id = ?", ctx.Param("id")).Order("created_at").Find(&badges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50106, "failed to list badges")
		return
	}
	utils.Success(ctx, gin.H{"items": badges})
}
