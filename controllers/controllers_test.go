package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onlytalk/onlytalk/middleware"
	"github.com/onlytalk/onlytalk/models"
	"github.com/onlytalk/onlytalk/points"
	"github.com/onlytalk/onlytalk/utils"
)

func TestMain(m *testing.M) {
	// Config loading requires a JWT secret; cache calls reach it lazily
	os.Setenv("JWT_SECRET", "test-secret")
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	os.Exit(m.Run())
}

type testEnv struct {
	db     *gorm.DB
	ledger *points.Ledger
	router *gin.Engine
}

// asUser injects the identity the way middleware.AuthRequired would.
func asUser(userID uint, username string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, userID)
		ctx.Set(middleware.ContextUsernameKey, username)
		ctx.Next()
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Post{}, &models.Comment{},
		&models.PostLike{}, &models.CommentLike{}, &models.Favorite{},
		&models.Follow{}, &models.CheckinRecord{}, &models.Reward{},
		&models.Notification{}, &models.ShopItem{}, &models.Purchase{},
		&models.UserBadge{},
	))

	return &testEnv{db: db, ledger: points.NewLedger(db), router: gin.New()}
}

func (e *testEnv) createUser(t *testing.T, username string, pts int) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Points:       pts,
		Level:        points.LevelFor(pts, points.EngageDivisor),
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestCheckInEndpointCreditsPoints(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", 0)

	cc := NewCheckinController(env.db, env.ledger)
	env.router.POST("/checkin", asUser(user.ID, user.Username), cc.CheckIn)
	env.router.GET("/checkin/status", asUser(user.ID, user.Username), cc.Status)

	w := env.do(t, http.MethodPost, "/checkin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.EqualValues(t, 10, data["points"])

	checkin, ok := data["checkin"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, checkin["consecutive_days"])
	assert.EqualValues(t, 10, checkin["points_earned"])

	// Second call on the same day must conflict
	w = env.do(t, http.MethodPost, "/checkin", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/checkin/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeData(t, w)["status"].(map[string]interface{})
	assert.Equal(t, true, status["checked_in_today"])
}

func TestCreateRewardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sender := env.createUser(t, "sender", 100)
	author := env.createUser(t, "author", 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c"}
	require.NoError(t, env.db.Create(post).Error)

	rc := NewRewardController(env.db, env.ledger)
	env.router.POST("/rewards", asUser(sender.ID, sender.Username), rc.CreateReward)

	w := env.do(t, http.MethodPost, "/rewards", gin.H{
		"related_type": "post",
		"related_id":   post.ID,
		"points":       30,
		"message":      "nice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.EqualValues(t, 70, data["points"])

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, author.ID).Error)
	assert.Equal(t, 30, reloaded.Points)

	var notice models.Notification
	require.NoError(t, env.db.Where("user_id = ?", author.ID).First(&notice).Error)
	assert.Equal(t, models.NotifyReward, notice.Type)
}

func TestCreateRewardEndpointErrors(t *testing.T) {
	env := newTestEnv(t)
	sender := env.createUser(t, "sender", 5)
	author := env.createUser(t, "author", 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c"}
	require.NoError(t, env.db.Create(post).Error)
	own := &models.Post{UserID: sender.ID, Title: "mine", Content: "c"}
	require.NoError(t, env.db.Create(own).Error)

	rc := NewRewardController(env.db, env.ledger)
	env.router.POST("/rewards", asUser(sender.ID, sender.Username), rc.CreateReward)

	// Insufficient balance
	w := env.do(t, http.MethodPost, "/rewards", gin.H{
		"related_type": "post", "related_id": post.ID, "points": 50,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Self reward
	w = env.do(t, http.MethodPost, "/rewards", gin.H{
		"related_type": "post", "related_id": own.ID, "points": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing target
	w = env.do(t, http.MethodPost, "/rewards", gin.H{
		"related_type": "post", "related_id": 9999, "points": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Out of bounds
	w = env.do(t, http.MethodPost, "/rewards", gin.H{
		"related_type": "post", "related_id": post.ID, "points": 1001,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was applied along the way
	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, sender.ID).Error)
	assert.Equal(t, 5, reloaded.Points)
}

func TestCreatePostCreditsReward(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "poster", 0)

	pc := NewPostController(env.db, env.ledger)
	env.router.POST("/posts", asUser(user.ID, user.Username), pc.CreatePost)

	w := env.do(t, http.MethodPost, "/posts", gin.H{
		"title":   "hello",
		"content": "first post",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	assert.Equal(t, points.PostReward, reloaded.Points)
}

func TestCreateCommentOnLockedPostRejected(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author", 0)
	commenter := env.createUser(t, "commenter", 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c", IsLocked: true}
	require.NoError(t, env.db.Create(post).Error)

	cc := NewCommentController(env.db, env.ledger)
	env.router.POST("/posts/:id/comments", asUser(commenter.ID, commenter.Username), cc.CreateComment)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/comments", post.ID), gin.H{
		"content": "hi",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTogglePostLikeAdjustsAuthorPoints(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author", 0)
	actor := env.createUser(t, "actor", 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c"}
	require.NoError(t, env.db.Create(post).Error)

	lc := NewLikeController(env.db, env.ledger)
	env.router.POST("/posts/:id/like", asUser(actor.ID, actor.Username), lc.TogglePostLike)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/like", post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["liked"])
	assert.EqualValues(t, 1, data["likes"])

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, author.ID).Error)
	assert.Equal(t, points.LikeReward, reloaded.Points)

	// Toggle back
	w = env.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/like", post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, false, data["liked"])

	require.NoError(t, env.db.First(&reloaded, author.ID).Error)
	assert.Equal(t, 0, reloaded.Points)
}

func TestToggleCommentLikeReversesAuthorPointOnUnlike(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author", 0)
	actor := env.createUser(t, "actor", 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c"}
	require.NoError(t, env.db.Create(post).Error)
	comment := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "c"}
	require.NoError(t, env.db.Create(comment).Error)

	lc := NewLikeController(env.db, env.ledger)
	env.router.POST("/comments/:commentId/like", asUser(actor.ID, actor.Username), lc.ToggleCommentLike)

	path := fmt.Sprintf("/comments/%d/like", comment.ID)

	// Like, unlike, like again: each unlike must reverse the credit so the
	// cycle cannot farm points
	for i, want := range []int{1, 0, 1} {
		w := env.do(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var reloaded models.User
		require.NoError(t, env.db.First(&reloaded, author.ID).Error)
		assert.Equalf(t, want, reloaded.Points, "toggle %d", i+1)
	}
}

func TestPurchaseBadgeDebitsAndDedupes(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "buyer", 200)

	item := &models.ShopItem{Name: "初心者", Price: 50, ItemType: "badge", Icon: "⭐", IsAvailable: true}
	require.NoError(t, env.db.Create(item).Error)

	sc := NewShopController(env.db, env.ledger)
	env.router.POST("/shop/items/:id/purchase", asUser(user.ID, user.Username), sc.Purchase)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/shop/items/%d/purchase", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 150, decodeData(t, w)["points"])

	var badges int64
	env.db.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Count(&badges)
	assert.EqualValues(t, 1, badges)

	// Buying the same badge twice is rejected
	w = env.do(t, http.MethodPost, fmt.Sprintf("/shop/items/%d/purchase", item.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPurchaseInsufficientBalanceLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "broke", 30)

	item := &models.ShopItem{Name: "帖子置顶卡", Price: 100, ItemType: "post_pin", IsAvailable: true}
	require.NoError(t, env.db.Create(item).Error)

	sc := NewShopController(env.db, env.ledger)
	env.router.POST("/shop/items/:id/purchase", asUser(user.ID, user.Username), sc.Purchase)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/shop/items/%d/purchase", item.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Balance untouched, no purchase row recorded
	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 30, reloaded.Points)

	var purchases int64
	env.db.Model(&models.Purchase{}).Where("user_id = ?", user.ID).Count(&purchases)
	assert.EqualValues(t, 0, purchases)
}
