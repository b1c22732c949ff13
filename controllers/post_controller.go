package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// PostController manages post CRUD, the hot list and attachment uploads.
type PostController struct {
	db     *gorm.DB
	ledger *points.Ledger
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, ledger *points.Ledger) *PostController {
	return &PostController{db: db, ledger: ledger}
}

// CreatePost creates a post and credits the posting reward.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,min=1"`
		Content     string `json:"content" binding:"required"`
		CategoryID  *uint  `json:"category_id"`
		Attachments string `json:"attachments"` // JSON array of URLs
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "content cannot be empty")
		return
	}

	if req.CategoryID != nil {
		var cat models.Category
		if err := p.db.First(&cat, *req.CategoryID).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid category")
			return
		}
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Title:       title,
		Content:     content,
		Attachments: req.Attachments,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	if err := p.ledger.AwardUser(userID, points.PostReward, points.EngageDivisor); err != nil {
		utils.Sugar.Errorf("post reward for user %d failed: %v", userID, err)
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts:")

	p.db.Preload("User").Preload("Category").First(&post, post.ID)
	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns paginated posts including author information.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	categoryID := strings.TrimSpace(ctx.Query("category_id"))

	// Cache homepage/category lists when no search term to avoid key explosion
	cacheKey := fmt.Sprintf("cache:posts:list:cat=%s:page=%d:size=%d", categoryID, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	query := p.db.Preload("User").Preload("Category").
		Order("is_pinned DESC, created_at DESC")
	if search != "" {
		query = query.Where("title LIKE ? OR content LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var posts []models.Post
	var total int64
	if err := query.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationMeta(page, pageSize, total),
	}
	if search == "" {
		utils.CacheSuccess(cacheKey, payload, time.Hour)
	}
	utils.Success(ctx, payload)
}

// ListHotPosts ranks recent posts by a weighted engagement score.
func (p *PostController) ListHotPosts(ctx *gin.Context) {
	const cacheKey = "cache:posts:hot"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	since := time.Now().AddDate(0, 0, -7)
	var posts []models.Post
	err := p.db.Preload("User").Preload("Category").
		Select("posts.*, (posts.views * 0.1 + posts.likes * 2 + (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) * 1.5) AS hot_score").
		Where("posts.created_at > ?", since).
		Order("hot_score DESC").
		Limit(10).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to list hot posts")
		return
	}

	payload := gin.H{"items": posts}
	utils.CacheSuccess(cacheKey, payload, 10*time.Minute)
	utils.Success(ctx, payload)
}

// GetPost returns a single post and bumps its view counter.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.Preload("User").Preload("Category").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	// Counter bump is best-effort and atomic at the SQL level
	if err := p.db.Model(&post).UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		utils.Sugar.Warnf("view counter for post %d failed: %v", post.ID, err)
	} else {
		post.Views++
	}

	payload := gin.H{"post": post}
	if userID, ok := getUserID(ctx); ok {
		var liked, favorited int64
		p.db.Model(&models.PostLike{}).Where("post_id = ? AND user_id = ?", post.ID, userID).Count(&liked)
		p.db.Model(&models.Favorite{}).Where("post_id = ? AND user_id = ?", post.ID, userID).Count(&favorited)
		payload["liked"] = liked > 0
		payload["favorited"] = favorited > 0
	}
	utils.Success(ctx, payload)
}

// ListUserPosts returns posts created by a specific user (public).
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	userID := strings.TrimSpace(ctx.Param("id"))
	if userID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40060, "missing user id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := fmt.Sprintf("cache:user:%s:posts:page=%d:size=%d", userID, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	var total int64
	q := p.db.Where("user_id = ?", userID).Preload("User").Preload("Category").Order("created_at DESC")
	if err := q.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to count user posts")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list user posts")
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationMeta(page, pageSize, total),
	}
	utils.CacheSuccess(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// UpdatePost allows the author to update their post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,min=1"`
		Content     string `json:"content" binding:"required"`
		CategoryID  *uint  `json:"category_id"`
		Attachments string `json:"attachments"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)

	if req.CategoryID != nil {
		var cat models.Category
		if err := p.db.First(&cat, *req.CategoryID).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40026, "invalid category")
			return
		}
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}
	if post.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only update your own posts")
		return
	}

	post.Title = title
	post.Content = content
	post.CategoryID = req.CategoryID
	post.Attachments = req.Attachments
	if err := p.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(post.UserID)) + ":posts:")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost allows the author or an admin to delete a post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	if post.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if err := p.db.Delete(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(post.UserID)) + ":posts:")

	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// PinPost toggles the pinned flag; admin only.
func (p *PostController) PinPost(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40303, "admin only")
		return
	}
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}
	if err := p.db.Model(&post).Update("is_pinned", !post.IsPinned).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to pin post")
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"is_pinned": !post.IsPinned})
}

// LockPost toggles the locked flag; admin only. Locked posts reject comments.
func (p *PostController) LockPost(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40303, "admin only")
		return
	}
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}
	if err := p.db.Model(&post).Update("is_locked", !post.IsLocked).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to lock post")
		return
	}
	utils.Success(ctx, gin.H{"is_locked": !post.IsLocked})
}

// ListCategories returns the category reference table.
func (p *PostController) ListCategories(ctx *gin.Context) {
	const cacheKey = "cache:categories"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}
	var categories []models.Category
	if err := p.db.Order("id").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to list categories")
		return
	}
	payload := gin.H{"items": categories}
	utils.CacheSuccess(cacheKey, payload, 24*time.Hour)
	utils.Success(ctx, payload)
}

// UploadAttachment stores an uploaded file under static/uploads with a
// generated name and returns its public URL.
func (p *PostController) UploadAttachment(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}

	const maxSize = 10 * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, "file size exceeds 10MB")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40033, "unsupported file type")
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create upload directory")
		return
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(baseDir, name)
	if err := ctx.SaveUploadedFile(header, dst); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save file")
		return
	}

	utils.Success(ctx, gin.H{
		"url": fmt.Sprintf("/static/uploads/%s/%s/%s", now.Format("2006"), now.Format("01"), name),
	})
}
