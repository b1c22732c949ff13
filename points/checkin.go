package points

import (
	"errors"

	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
)

const dateLayout = "2006-01-02"

// Streak bonus tiers. The highest tier whose threshold is met wins.
var streakTiers = []struct {
	days   int
	points int
}{
	{100, 100},
	{30, 50},
	{7, 20},
}

const baseCheckinPoints = 10

// CheckinResult is returned from a successful daily check-in.
type CheckinResult struct {
	Date            string `json:"date"`
	ConsecutiveDays int    `json:"consecutive_days"`
	PointsEarned    int    `json:"points_earned"`
}

// CheckinStatus reports today's check-in state without mutating anything.
// When today's record is absent, ConsecutiveDays carries yesterday's streak
// so callers can show "day N, check in to continue".
type CheckinStatus struct {
	CheckedInToday  bool   `json:"checked_in_today"`
	ConsecutiveDays int    `json:"consecutive_days"`
	PointsEarned    int    `json:"points_earned,omitempty"`
	Date            string `json:"date"`
}

// streakPoints returns the bonus for reaching a consecutive-day count.
func streakPoints(consecutiveDays int) int {
	for _, tier := range streakTiers {
		if consecutiveDays >= tier.days {
			return tier.points
		}
	}
	return baseCheckinPoints
}

// CheckIn records today's check-in for the user, extends or resets the
// streak, credits the tiered bonus, and recalculates the level with the
// engagement divisor. A second call on the same calendar day returns
// ErrAlreadyCheckedIn and leaves all state untouched.
func (l *Ledger) CheckIn(userID uint) (*CheckinResult, error) {
	now := l.now()
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	var result *CheckinResult
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := locked(tx).First(&user, userID).Error; err != nil {
			return err
		}

		var existing models.CheckinRecord
		err := tx.Where("user_id = ? AND checkin_date = ?", userID, today).First(&existing).Error
		if err == nil {
			return ErrAlreadyCheckedIn
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		consecutive := 1
		var prev models.CheckinRecord
		err = tx.Where("user_id = ? AND checkin_date = ?", userID, yesterday).First(&prev).Error
		if err == nil {
			consecutive = prev.ConsecutiveDays + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		earned := streakPoints(consecutive)
		record := models.CheckinRecord{
			UserID:          userID,
			CheckinDate:     today,
			ConsecutiveDays: consecutive,
			PointsEarned:    earned,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		user.Points += earned
		user.Level = LevelFor(user.Points, EngageDivisor)
		if err := tx.Select("points", "level", "updated_at").Save(&user).Error; err != nil {
			return err
		}

		result = &CheckinResult{
			Date:            today,
			ConsecutiveDays: consecutive,
			PointsEarned:    earned,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Status reports whether the user checked in today and the streak the UI
// should display. It never fabricates a record.
func (l *Ledger) Status(userID uint) (*CheckinStatus, error) {
	now := l.now()
	today := now.Format(dateLayout)

	var record models.CheckinRecord
	err := l.db.Where("user_id = ? AND checkin_date = ?", userID, today).First(&record).Error
	if err == nil {
		return &CheckinStatus{
			CheckedInToday:  true,
			ConsecutiveDays: record.ConsecutiveDays,
			PointsEarned:    record.PointsEarned,
			Date:            today,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status := &CheckinStatus{Date: today}
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	err = l.db.Where("user_id = ? AND checkin_date = ?", userID, yesterday).First(&record).Error
	if err == nil {
		status.ConsecutiveDays = record.ConsecutiveDays
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return status, nil
}
