package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphService maintains the follow relation.
type GraphService struct {
	db         *gorm.DB
	visibility *VisibilityService
	notifier   *NotificationService
}

func NewGraphService(db *gorm.DB, visibility *VisibilityService, notifier *NotificationService) *GraphService {
	return &GraphService{db: db, visibility: visibility, notifier: notifier}
}

// Follow is idempotent: a repeat follow succeeds without a second edge or a
// second notification. Hidden targets look exactly like missing ones.
func (s *GraphService) Follow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	if followerID == followedID {
		return false, ErrSelfFollow
	}
	db := s.db.WithContext(ctx)
	if err := requireUser(db, followedID); err != nil {
		return false, err
	}
	visible, err := s.visibility.IsVisible(ctx, followedID, followerID)
	if err != nil {
		return false, err
	}
	if !visible {
		return false, ErrUserNotFound
	}

	follow := models.Follow{FollowerID: followerID, FollowedID: followedID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return false, result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		metrics.Toggles.WithLabelValues("follow", "noop").Inc()
		return false, nil
	}
	metrics.Toggles.WithLabelValues("follow", "on").Inc()

	if s.notifier != nil {
		actor := followerID
		s.notifier.TryNotify(ctx, NotifyParams{
			Type:        models.NotificationFollow,
			ActorID:     &actor,
			RecipientID: followedID,
			EntityID:    &actor,
			Template:    "{actor} started following you",
		})
	}
	return true, nil
}

func (s *GraphService) Unfollow(ctx context.Context, followerID, followedID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		metrics.Toggles.WithLabelValues("follow", "off").Inc()
	}
	return nil
}

func (s *GraphService) IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

// FollowedAuthors is the candidate author set for the following feed. The
// user's own id is always included.
func (s *GraphService) FollowedAuthors(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error; err != nil {
		return nil, err
	}
	return append(ids, userID), nil
}

// Counts returns follower and following totals for a profile.
func (s *GraphService) Counts(ctx context.Context, userID uuid.UUID) (followers, following int64, err error) {
	db := s.db.WithContext(ctx).Model(&models.Follow{})
	if err = db.Where("followed_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	err = s.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error
	return followers, following, err
}
