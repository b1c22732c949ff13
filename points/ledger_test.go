package points

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onlytalk/onlytalk/models"
)

var testDBSeq uint64

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), atomic.AddUint64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Comment{},
		&models.CheckinRecord{}, &models.Reward{}, &models.Notification{},
	))
	return NewLedger(db), db
}

func createUser(t *testing.T, db *gorm.DB, username string, pts int) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Points:   pts,
		Level:    LevelFor(pts, ProfileDivisor),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func loadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		points  int
		divisor int
		want    int
	}{
		{0, 30, 1},
		{29, 30, 1},
		{30, 30, 2},
		{61, 30, 3},
		{0, 100, 1},
		{99, 100, 1},
		{100, 100, 2},
		{250, 100, 3},
		{-5, 30, 1},
		{10, 0, 1},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, LevelFor(tc.points, tc.divisor),
			"LevelFor(%d, %d)", tc.points, tc.divisor)
	}
}

func TestAwardUpdatesPointsAndLevel(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "alice", 27)

	require.NoError(t, ledger.AwardUser(user.ID, PostReward, EngageDivisor))

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 32, got.Points)
	assert.Equal(t, 2, got.Level)
}

func TestAwardClampsAtZero(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "bob", 0)

	require.NoError(t, ledger.AwardUser(user.ID, -LikeReward, EngageDivisor))

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 0, got.Points)
	assert.Equal(t, 1, got.Level)
}

func TestApplyLikeDeltaSelfLikeIsNoop(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "carol", 40)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.ApplyLikeDelta(tx, user.ID, user.ID, true)
	})
	require.NoError(t, err)

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 40, got.Points)
}

func TestLikeThenUnlikeRestoresAuthorPoints(t *testing.T) {
	ledger, db := newTestLedger(t)
	author := createUser(t, db, "author", 17)
	liker := createUser(t, db, "liker", 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.ApplyLikeDelta(tx, author.ID, liker.ID, true)
	})
	require.NoError(t, err)
	assert.Equal(t, 18, loadUser(t, db, author.ID).Points)
	assert.Equal(t, 5, loadUser(t, db, liker.ID).Points)

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.ApplyLikeDelta(tx, author.ID, liker.ID, false)
	})
	require.NoError(t, err)
	assert.Equal(t, 17, loadUser(t, db, author.ID).Points)
}

func TestRecalculateLevelWritesOnlyWhenChanged(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "dave", 210)
	require.NoError(t, db.Model(user).Update("level", 1).Error)

	level, err := ledger.RecalculateLevel(user.ID, ProfileDivisor)
	require.NoError(t, err)
	assert.Equal(t, 3, level)
	assert.Equal(t, 3, loadUser(t, db, user.ID).Level)

	// Second call with the same divisor is stable.
	level, err = ledger.RecalculateLevel(user.ID, ProfileDivisor)
	require.NoError(t, err)
	assert.Equal(t, 3, level)
}

func TestLevelNeverBelowOneAfterMutations(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "erin", 2)

	require.NoError(t, ledger.AwardUser(user.ID, -10, EngageDivisor))

	got := loadUser(t, db, user.ID)
	assert.GreaterOrEqual(t, got.Level, 1)
}

func TestSpendDebitsAndRecalculatesLevel(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "frank", 250)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Spend(tx, user.ID, 100, ProfileDivisor)
	}))

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 150, got.Points)
	assert.Equal(t, 2, got.Level)
}

func TestSpendFailsInsteadOfClampingWhenBalanceRunsOut(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "grace", 50)

	// First debit drains most of the balance
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ledger.Spend(tx, user.ID, 40, ProfileDivisor)
	}))

	// The second sees the post-debit balance under the lock and must fail,
	// not clamp to zero the way Award does
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Spend(tx, user.ID, 40, ProfileDivisor)
	})
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 10, got.Points)
}

func TestSpendRejectsNonPositiveAmounts(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "heidi", 50)

	for _, amount := range []int{0, -5} {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.Spend(tx, user.ID, amount, ProfileDivisor)
		})
		assert.Errorf(t, err, "amount %d", amount)
	}
	assert.Equal(t, 50, loadUser(t, db, user.ID).Points)
}

func atDay(ledger *Ledger, day string) {
	t, _ := time.Parse(dateLayout, day)
	ledger.now = func() time.Time { return t.Add(9 * time.Hour) }
}
