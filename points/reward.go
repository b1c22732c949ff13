package points

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/onlytalk/onlytalk/models"
)

// SendReward transfers points from one user to the author of a post or
// comment. Debit, credit, reward row, notification, and the recipient's
// level recalculation all commit in a single transaction; on any error the
// sender balance is untouched. User rows are locked in ascending id order so
// two concurrent transfers between the same pair cannot deadlock.
func (l *Ledger) SendReward(fromUserID uint, relatedType string, relatedID uint, pts int, message string) (*models.Reward, error) {
	if pts < MinRewardPoints || pts > MaxRewardPoints {
		return nil, ErrInvalidRewardPoints
	}
	if relatedType != models.RelatedPost && relatedType != models.RelatedComment {
		return nil, ErrRewardTargetMissing
	}

	var reward *models.Reward
	err := l.db.Transaction(func(tx *gorm.DB) error {
		toUserID, err := relatedAuthor(tx, relatedType, relatedID)
		if err != nil {
			return err
		}
		if toUserID == fromUserID {
			return ErrSelfReward
		}

		from, to, err := lockUserPair(tx, fromUserID, toUserID)
		if err != nil {
			return err
		}
		if from.Points < pts {
			return ErrInsufficientPoints
		}

		from.Points -= pts
		to.Points += pts
		to.Level = LevelFor(to.Points, ProfileDivisor)
		if err := tx.Select("points", "updated_at").Save(from).Error; err != nil {
			return err
		}
		if err := tx.Select("points", "level", "updated_at").Save(to).Error; err != nil {
			return err
		}

		row := models.Reward{
			FromUserID:  fromUserID,
			ToUserID:    toUserID,
			Points:      pts,
			RelatedType: relatedType,
			RelatedID:   relatedID,
			Message:     message,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		content := fmt.Sprintf("%s 打赏了你 %d 积分", from.Username, pts)
		if message != "" {
			content += "：" + message
		}
		notice := models.Notification{
			UserID:      toUserID,
			Type:        models.NotifyReward,
			Title:       "收到打赏",
			Content:     content,
			RelatedID:   relatedID,
			RelatedType: relatedType,
		}
		if err := tx.Create(&notice).Error; err != nil {
			return err
		}

		reward = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// relatedAuthor resolves the author of the rewarded post or comment.
func relatedAuthor(tx *gorm.DB, relatedType string, relatedID uint) (uint, error) {
	var authorID uint
	var err error
	switch relatedType {
	case models.RelatedPost:
		var post models.Post
		err = tx.Select("user_id").First(&post, relatedID).Error
		authorID = post.UserID
	case models.RelatedComment:
		var comment models.Comment
		err = tx.Select("user_id").First(&comment, relatedID).Error
		authorID = comment.UserID
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRewardTargetMissing
	}
	if err != nil {
		return 0, err
	}
	return authorID, nil
}

// lockUserPair loads both user rows under FOR UPDATE, acquiring the lower id
// first regardless of transfer direction.
func lockUserPair(tx *gorm.DB, fromID, toID uint) (from, to *models.User, err error) {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}

	users := map[uint]*models.User{}
	for _, id := range []uint{first, second} {
		var u models.User
		if err := locked(tx).First(&u, id).Error; err != nil {
			return nil, nil, err
		}
		users[id] = &u
	}
	return users[fromID], users[toID], nil
}
