package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/config"
	"github.com/onlytalk/onlytalk/controllers"
	"github.com/onlytalk/onlytalk/middleware"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	ledger := points.NewLedger(db)

	authController := controllers.NewAuthController(db, ledger)
	postController := controllers.NewPostController(db, ledger)
	commentController := controllers.NewCommentController(db, ledger)
	likeController := controllers.NewLikeController(db, ledger)
	favoriteController := controllers.NewFavoriteController(db)
	followController := controllers.NewFollowController(db)
	checkinController := controllers.NewCheckinController(db, ledger)
	rewardController := controllers.NewRewardController(db, ledger)
	shopController := controllers.NewShopController(db, ledger)
	leaderboardController := controllers.NewLeaderboardController(db)
	notificationController := controllers.NewNotificationController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	authGroup.PATCH("/password", middleware.AuthRequired(), authController.ChangePassword)

	// Public reads; OptionalAuth annotates per-user state when a token is sent
	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/categories", postController.ListCategories)
	public.GET("/posts", postController.ListPosts)
	public.GET("/posts/hot", postController.ListHotPosts)
	public.GET("/posts/:id", postController.GetPost)
	public.GET("/posts/:id/comments", commentController.ListComments)
	public.GET("/users/:id", authController.GetUserPublic)
	public.GET("/users/:id/posts", postController.ListUserPosts)
	public.GET("/users/:id/followers", followController.ListFollowers)
	public.GET("/users/:id/following", followController.ListFollowing)
	public.GET("/users/:id/follow-stats", followController.FollowStats)
	public.GET("/users/:id/badges", shopController.ListUserBadges)
	public.GET("/leaderboard/points", leaderboardController.Points)
	public.GET("/leaderboard/levels", leaderboardController.Levels)
	public.GET("/rewards", rewardController.ListRewardsForTarget)
	public.GET("/shop/items", shopController.ListItems)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/upload", postController.UploadAttachment)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/pin", postController.PinPost)
	protected.POST("/posts/:id/lock", postController.LockPost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.PUT("/comments/:commentId", commentController.UpdateComment)
	protected.DELETE("/comments/:commentId", commentController.DeleteComment)
	protected.POST("/posts/:id/like", likeController.TogglePostLike)
	protected.POST("/comments/:commentId/like", likeController.ToggleCommentLike)
	protected.POST("/posts/:id/favorite", favoriteController.ToggleFavorite)
	protected.GET("/users/me/favorites", favoriteController.ListFavorites)
	protected.POST("/users/:id/follow", followController.ToggleFollow)
	protected.POST("/checkin", checkinController.CheckIn)
	protected.GET("/checkin/status", checkinController.Status)
	protected.GET("/checkin/history", checkinController.History)
	protected.POST("/rewards", rewardController.CreateReward)
	protected.GET("/users/me/rewards", rewardController.ListMyRewards)
	protected.POST("/shop/items/:id/purchase", shopController.Purchase)
	protected.GET("/users/me/purchases", shopController.ListMyPurchases)
	protected.GET("/notifications", notificationController.List)
	protected.GET("/notifications/unread-count", notificationController.UnreadCount)
	protected.POST("/notifications/:id/read", notificationController.MarkRead)
	protected.POST("/notifications/read-all", notificationController.MarkAllRead)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
