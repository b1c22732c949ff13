package points

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onlytalk/onlytalk/models"
)

// Point deltas credited by qualifying actions. The table is fixed policy;
// changing a value changes user-visible balances everywhere.
const (
	RegisterBonus = 10
	PostReward    = 5
	CommentReward = 2
	LikeReward    = 1
)

// Level divisors. The engagement paths (likes, check-in, posting) divide by
// 30 while the reward and profile paths divide by 100. The split is inherited
// behavior and intentionally not unified.
const (
	EngageDivisor  = 30
	ProfileDivisor = 100
)

// Reward transfer bounds per request.
const (
	MinRewardPoints = 1
	MaxRewardPoints = 1000
)

var (
	// ErrAlreadyCheckedIn is returned when today's check-in record exists.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrSelfReward is returned when a user rewards their own content.
	ErrSelfReward = errors.New("cannot reward yourself")
	// ErrInsufficientPoints is returned when the sender balance is below the
	// requested transfer amount.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrRewardTargetMissing is returned when the rewarded post or comment
	// does not exist.
	ErrRewardTargetMissing = errors.New("reward target not found")
	// ErrInvalidRewardPoints is returned for transfer amounts outside 1-1000.
	ErrInvalidRewardPoints = fmt.Errorf("reward points must be between %d and %d", MinRewardPoints, MaxRewardPoints)
)

// LevelFor derives a level from a point total. Total function: any input maps
// to a level of at least 1.
func LevelFor(points, divisor int) int {
	if divisor <= 0 {
		return 1
	}
	if points < 0 {
		points = 0
	}
	return points/divisor + 1
}

// Ledger is the single entry point for every balance mutation in the forum.
// All multi-row sequences run inside one transaction with the affected user
// rows locked, so balances can never be observed half-applied.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedger creates a Ledger bound to the shared database handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// locked applies a FOR UPDATE row lock on dialects that support it. SQLite
// serializes writers on its own and rejects the clause.
func locked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Award applies a signed delta to one user's balance inside the caller's
// transaction and recalculates the level with the given divisor. Balances
// are clamped at zero; debits that must fail instead of clamp (reward
// spending) check sufficiency before calling.
func (l *Ledger) Award(tx *gorm.DB, userID uint, delta int, divisor int) error {
	var user models.User
	if err := locked(tx).First(&user, userID).Error; err != nil {
		return err
	}
	user.Points += delta
	if user.Points < 0 {
		user.Points = 0
	}
	user.Level = LevelFor(user.Points, divisor)
	return tx.Select("points", "level", "updated_at").Save(&user).Error
}

// AwardUser is Award wrapped in its own transaction, for callers that have
// no surrounding one.
func (l *Ledger) AwardUser(userID uint, delta int, divisor int) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		return l.Award(tx, userID, delta, divisor)
	})
}

// Spend debits amount from the user's balance inside the caller's
// transaction, failing with ErrInsufficientPoints when the balance read
// under the row lock is below it. The locked read makes the sufficiency
// check and the debit one atomic step; a concurrent spender blocks on the
// lock and then sees the already-debited balance.
func (l *Ledger) Spend(tx *gorm.DB, userID uint, amount int, divisor int) error {
	if amount <= 0 {
		return fmt.Errorf("spend amount must be positive, got %d", amount)
	}
	var user models.User
	if err := locked(tx).First(&user, userID).Error; err != nil {
		return err
	}
	if user.Points < amount {
		return ErrInsufficientPoints
	}
	user.Points -= amount
	user.Level = LevelFor(user.Points, divisor)
	return tx.Select("points", "level", "updated_at").Save(&user).Error
}

// ApplyLikeDelta credits or debits the content author one point when someone
// else likes or unlikes their post or comment. Self-likes never move points.
func (l *Ledger) ApplyLikeDelta(tx *gorm.DB, authorID, actorID uint, liked bool) error {
	if authorID == actorID {
		return nil
	}
	delta := LikeReward
	if !liked {
		delta = -LikeReward
	}
	return l.Award(tx, authorID, delta, EngageDivisor)
}

// RecalculateLevel re-derives a user's stored level from their current point
// total using the given divisor, writing only when the value changed.
func (l *Ledger) RecalculateLevel(userID uint, divisor int) (int, error) {
	var level int
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := locked(tx).First(&user, userID).Error; err != nil {
			return err
		}
		level = LevelFor(user.Points, divisor)
		if level == user.Level {
			return nil
		}
		return tx.Model(&user).Update("level", level).Error
	})
	return level, err
}
