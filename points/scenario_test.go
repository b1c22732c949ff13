package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
)

// Walks a new member through the first two days of activity: register bonus,
// first post, a like from another member, and two daily check-ins.
func TestNewMemberJourney(t *testing.T) {
	ledger, db := newTestLedger(t)

	author := createUser(t, db, "newbie", 0)
	require.NoError(t, ledger.AwardUser(author.ID, RegisterBonus, ProfileDivisor))
	assert.Equal(t, 10, loadUser(t, db, author.ID).Points)
	assert.Equal(t, 1, loadUser(t, db, author.ID).Level)

	post := createPost(t, db, author.ID)
	require.NoError(t, ledger.AwardUser(author.ID, PostReward, EngageDivisor))
	assert.Equal(t, 15, loadUser(t, db, author.ID).Points)

	liker := createUser(t, db, "fan", 0)
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.ApplyLikeDelta(tx, post.UserID, liker.ID, true)
	})
	require.NoError(t, err)
	got := loadUser(t, db, author.ID)
	assert.Equal(t, 16, got.Points)
	assert.Equal(t, 1, got.Level) // 16/30 + 1

	atDay(ledger, "2026-03-01")
	day1, err := ledger.CheckIn(author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, day1.ConsecutiveDays)
	assert.Equal(t, 26, loadUser(t, db, author.ID).Points)

	atDay(ledger, "2026-03-02")
	day2, err := ledger.CheckIn(author.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, day2.ConsecutiveDays)
	assert.Equal(t, 36, loadUser(t, db, author.ID).Points)
}

// A 30-point reward on another member's comment, end to end.
func TestRewardOnCommentJourney(t *testing.T) {
	ledger, db := newTestLedger(t)

	sender := createUser(t, db, "usera", 50)
	recipient := createUser(t, db, "userb", 0)
	post := createPost(t, db, recipient.ID)
	comment := createComment(t, db, post.ID, recipient.ID)

	reward, err := ledger.SendReward(sender.ID, models.RelatedComment, comment.ID, 30, "nice")
	require.NoError(t, err)

	assert.Equal(t, 20, loadUser(t, db, sender.ID).Points)
	assert.Equal(t, 30, loadUser(t, db, recipient.ID).Points)

	var stored models.Reward
	require.NoError(t, db.First(&stored, reward.ID).Error)
	assert.Equal(t, models.RelatedComment, stored.RelatedType)
	assert.Equal(t, "nice", stored.Message)

	var notices []models.Notification
	require.NoError(t, db.Where("user_id = ?", recipient.ID).Find(&notices).Error)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NotifyReward, notices[0].Type)
}
