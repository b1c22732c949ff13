package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/utils"
)

// FavoriteController lets users bookmark posts.
type FavoriteController struct {
	db *gorm.DB
}

// NewFavoriteController creates a new FavoriteController instance.
func NewFavoriteController(db *gorm.DB) *FavoriteController {
	return &FavoriteController{db: db}
}

// ToggleFavorite bookmarks or unbookmarks a post.
func (f *FavoriteController) ToggleFavorite(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := f.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to load post")
		return
	}

	var existing models.Favorite
	err := f.db.Where("post_id = ? AND user_id = ?", post.ID, userID).First(&existing).Error
	switch {
	case err == nil:
		if err := f.db.Delete(&existing).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to remove favorite")
			return
		}
		utils.Success(ctx, gin.H{"favorited": false})
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := f.db.Create(&models.Favorite{PostID: post.ID, UserID: userID}).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to add favorite")
			return
		}
		utils.Success(ctx, gin.H{"favorited": true})
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to load favorite")
	}
}

// ListFavorites returns the authenticated user's bookmarked posts.
func (f *FavoriteController) ListFavorites(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := f.db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to count favorites")
		return
	}

	var favorites []models.Favorite
	if err := f.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&favorites).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to list favorites")
		return
	}

	postIDs := make([]uint, 0, len(favorites))
	for _, fav := range favorites {
		postIDs = append(postIDs, fav.PostID)
	}

	var posts []models.Post
	if len(postIDs) > 0 {
		if err := f.db.Preload("User").Preload("Category").Find(&posts, postIDs).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to load posts")
			return
		}
	}
	// Preserve bookmark order
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(favorites))
	for _, fav := range favorites {
		if p, ok := byID[fav.PostID]; ok {
			ordered = append(ordered, p)
		}
	}

	utils.Success(ctx, gin.H{
		"items":      ordered,
		"pagination": paginationMeta(page, pageSize, total),
	})
}
