package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
)

func createPost(t *testing.T, db *gorm.DB, authorID uint) *models.Post {
	t.Helper()
	post := models.Post{UserID: authorID, Title: "t", Content: "c"}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

func createComment(t *testing.T, db *gorm.DB, postID, authorID uint) *models.Comment {
	t.Helper()
	comment := models.Comment{PostID: postID, UserID: authorID, Content: "c"}
	require.NoError(t, db.Create(&comment).Error)
	return &comment
}

func TestSendRewardOnComment(t *testing.T) {
	ledger, db := newTestLedger(t)
	sender := createUser(t, db, "usera", 50)
	recipient := createUser(t, db, "userb", 0)
	post := createPost(t, db, recipient.ID)
	comment := createComment(t, db, post.ID, recipient.ID)

	reward, err := ledger.SendReward(sender.ID, models.RelatedComment, comment.ID, 30, "nice")
	require.NoError(t, err)
	assert.Equal(t, sender.ID, reward.FromUserID)
	assert.Equal(t, recipient.ID, reward.ToUserID)
	assert.Equal(t, 30, reward.Points)
	assert.Equal(t, models.RelatedComment, reward.RelatedType)

	assert.Equal(t, 20, loadUser(t, db, sender.ID).Points)
	assert.Equal(t, 30, loadUser(t, db, recipient.ID).Points)

	var rewardCount, noticeCount int64
	require.NoError(t, db.Model(&models.Reward{}).Count(&rewardCount).Error)
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", recipient.ID, models.NotifyReward).
		Count(&noticeCount).Error)
	assert.EqualValues(t, 1, rewardCount)
	assert.EqualValues(t, 1, noticeCount)
}

func TestSendRewardConservesTotalPoints(t *testing.T) {
	ledger, db := newTestLedger(t)
	sender := createUser(t, db, "alice", 300)
	recipient := createUser(t, db, "bob", 120)
	post := createPost(t, db, recipient.ID)

	_, err := ledger.SendReward(sender.ID, models.RelatedPost, post.ID, 100, "")
	require.NoError(t, err)

	a := loadUser(t, db, sender.ID)
	b := loadUser(t, db, recipient.ID)
	assert.Equal(t, 200, a.Points)
	assert.Equal(t, 220, b.Points)
	assert.Equal(t, 420, a.Points+b.Points)
	// Recipient level uses the 100 divisor.
	assert.Equal(t, 3, b.Level)
}

func TestSendRewardSelfRewardRejected(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "carol", 500)
	post := createPost(t, db, user.ID)

	_, err := ledger.SendReward(user.ID, models.RelatedPost, post.ID, 10, "")
	require.ErrorIs(t, err, ErrSelfReward)
	assert.Equal(t, 500, loadUser(t, db, user.ID).Points)
}

func TestSendRewardInsufficientBalance(t *testing.T) {
	ledger, db := newTestLedger(t)
	sender := createUser(t, db, "dave", 5)
	recipient := createUser(t, db, "erin", 0)
	post := createPost(t, db, recipient.ID)

	_, err := ledger.SendReward(sender.ID, models.RelatedPost, post.ID, 10, "")
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// No partial application: balances and tables untouched.
	assert.Equal(t, 5, loadUser(t, db, sender.ID).Points)
	assert.Equal(t, 0, loadUser(t, db, recipient.ID).Points)
	var count int64
	require.NoError(t, db.Model(&models.Reward{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSendRewardTargetMissing(t *testing.T) {
	ledger, db := newTestLedger(t)
	sender := createUser(t, db, "frank", 100)

	_, err := ledger.SendReward(sender.ID, models.RelatedPost, 9999, 10, "")
	require.ErrorIs(t, err, ErrRewardTargetMissing)

	_, err = ledger.SendReward(sender.ID, "user", 1, 10, "")
	require.ErrorIs(t, err, ErrRewardTargetMissing)
}

func TestSendRewardPointsBounds(t *testing.T) {
	ledger, db := newTestLedger(t)
	sender := createUser(t, db, "grace", 5000)
	recipient := createUser(t, db, "heidi", 0)
	post := createPost(t, db, recipient.ID)

	_, err := ledger.SendReward(sender.ID, models.RelatedPost, post.ID, 0, "")
	require.ErrorIs(t, err, ErrInvalidRewardPoints)

	_, err = ledger.SendReward(sender.ID, models.RelatedPost, post.ID, 1001, "")
	require.ErrorIs(t, err, ErrInvalidRewardPoints)

	_, err = ledger.SendReward(sender.ID, models.RelatedPost, post.ID, 1000, "")
	require.NoError(t, err)
}
