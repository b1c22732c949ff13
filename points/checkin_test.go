package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytalk/onlytalk/models"
)

func TestStreakPoints(t *testing.T) {
	cases := []struct {
		days int
		want int
	}{
		{1, 10},
		{6, 10},
		{7, 20},
		{29, 20},
		{30, 50},
		{99, 50},
		{100, 100},
		{365, 100},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, streakPoints(tc.days), "streakPoints(%d)", tc.days)
	}
}

func TestCheckInFirstDay(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "alice", 0)
	atDay(ledger, "2026-03-01")

	result, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", result.Date)
	assert.Equal(t, 1, result.ConsecutiveDays)
	assert.Equal(t, 10, result.PointsEarned)

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 10, got.Points)
	assert.Equal(t, 1, got.Level)
}

func TestCheckInTwiceSameDay(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "bob", 0)
	atDay(ledger, "2026-03-01")

	_, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)

	_, err = ledger.CheckIn(user.ID)
	require.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// Points credited exactly once, one record stored.
	assert.Equal(t, 10, loadUser(t, db, user.ID).Points)
	var count int64
	require.NoError(t, db.Model(&models.CheckinRecord{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCheckInConsecutiveDaysExtendStreak(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "carol", 0)

	atDay(ledger, "2026-03-01")
	first, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ConsecutiveDays)

	atDay(ledger, "2026-03-02")
	second, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.ConsecutiveDays)

	atDay(ledger, "2026-03-03")
	third, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, third.ConsecutiveDays)
}

func TestCheckInGapResetsStreak(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "dave", 0)

	atDay(ledger, "2026-03-01")
	_, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)

	// Skip March 2 entirely.
	atDay(ledger, "2026-03-03")
	result, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConsecutiveDays)
	assert.Equal(t, 10, result.PointsEarned)
}

func TestCheckInStreakTierBonuses(t *testing.T) {
	cases := []struct {
		yesterdayStreak int
		wantDays        int
		wantPoints      int
	}{
		{5, 6, 10},
		{6, 7, 20},
		{29, 30, 50},
		{99, 100, 100},
	}
	for _, tc := range cases {
		ledger, db := newTestLedger(t)
		user := createUser(t, db, "erin", 0)
		require.NoError(t, db.Create(&models.CheckinRecord{
			UserID:          user.ID,
			CheckinDate:     "2026-02-28",
			ConsecutiveDays: tc.yesterdayStreak,
			PointsEarned:    streakPoints(tc.yesterdayStreak),
		}).Error)

		atDay(ledger, "2026-03-01")
		result, err := ledger.CheckIn(user.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.wantDays, result.ConsecutiveDays)
		assert.Equal(t, tc.wantPoints, result.PointsEarned)
	}
}

func TestCheckInUpdatesLevelWithEngageDivisor(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "frank", 25)
	atDay(ledger, "2026-03-01")

	_, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)

	got := loadUser(t, db, user.ID)
	assert.Equal(t, 35, got.Points)
	assert.Equal(t, 2, got.Level) // 35/30 + 1
}

func TestStatusBeforeAndAfterCheckIn(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "grace", 0)
	atDay(ledger, "2026-03-01")

	status, err := ledger.Status(user.ID)
	require.NoError(t, err)
	assert.False(t, status.CheckedInToday)
	assert.Equal(t, 0, status.ConsecutiveDays)

	_, err = ledger.CheckIn(user.ID)
	require.NoError(t, err)

	status, err = ledger.Status(user.ID)
	require.NoError(t, err)
	assert.True(t, status.CheckedInToday)
	assert.Equal(t, 1, status.ConsecutiveDays)
}

func TestStatusShowsYesterdayStreakWithoutFabricatingRecord(t *testing.T) {
	ledger, db := newTestLedger(t)
	user := createUser(t, db, "heidi", 0)

	atDay(ledger, "2026-03-01")
	_, err := ledger.CheckIn(user.ID)
	require.NoError(t, err)

	atDay(ledger, "2026-03-02")
	status, err := ledger.Status(user.ID)
	require.NoError(t, err)
	assert.False(t, status.CheckedInToday)
	assert.Equal(t, 1, status.ConsecutiveDays)

	var count int64
	require.NoError(t, db.Model(&models.CheckinRecord{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
