package services

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VisibilityService owns the block relation and the single "can viewer see
// author" predicate. Feeds, comments and notifications all go through it,
// either per pair (IsVisible) or as a query condition (VisibleAuthorCondition).
type VisibilityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVisibilityService(db *gorm.DB) *VisibilityService {
	return &VisibilityService{db: db, now: time.Now}
}

// Block creates the blocker->blocked edge. Repeating a block is a no-op
// success; created reports whether a new edge was written.
func (s *VisibilityService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	if blockerID == blockedID {
		return false, ErrSelfBlock
	}
	db := s.db.WithContext(ctx)
	if err := requireUser(db, blockedID); err != nil {
		return false, err
	}

	block := models.Block{BlockerID: blockerID, BlockedID: blockedID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			metrics.Toggles.WithLabelValues("block", "noop").Inc()
			return false, nil
		}
		return false, result.Error
	}
	created := result.RowsAffected > 0
	if created {
		metrics.Toggles.WithLabelValues("block", "on").Inc()
	} else {
		metrics.Toggles.WithLabelValues("block", "noop").Inc()
	}
	return created, nil
}

// Unblock removes the blocker's own edge. A reverse edge, if any, stays.
func (s *VisibilityService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		metrics.Toggles.WithLabelValues("block", "off").Inc()
	}
	return nil
}

// IsBlockedEitherWay reports whether a block edge exists in either direction.
func (s *VisibilityService) IsBlockedEitherWay(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// IsVisible reports whether content authored by authorID may be shown to
// viewerID. Hidden when a block exists in either direction, or when the
// author is suspended, deactivated or deleted. Authors always see themselves.
func (s *VisibilityService) IsVisible(ctx context.Context, authorID, viewerID uuid.UUID) (bool, error) {
	if authorID == viewerID {
		return true, nil
	}
	blocked, err := s.IsBlockedEitherWay(ctx, authorID, viewerID)
	if err != nil || blocked {
		return false, err
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return author.IsActive && !author.IsSuspended(s.now()), nil
}

// VisibleAuthorCondition returns a WHERE fragment equivalent to IsVisible for
// every row, with column naming the author id column (e.g. "posts.author_id").
// column must be a trusted identifier, never user input.
func (s *VisibilityService) VisibleAuthorCondition(viewerID uuid.UUID, column string) (string, []interface{}) {
	cond := "(" + column + " = ? OR (" +
		column + " NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = ?) AND " +
		column + " NOT IN (SELECT blocker_id FROM blocks WHERE blocked_id = ?) AND " +
		column + " IN (SELECT id FROM users WHERE deleted_at IS NULL AND is_active = ? AND (blocked_until IS NULL OR blocked_until <= ?))))"
	return cond, []interface{}{viewerID, viewerID, viewerID, true, s.now().UTC()}
}

// VisibleTo is a gorm scope applying VisibleAuthorCondition.
func (s *VisibilityService) VisibleTo(viewerID uuid.UUID, column string) func(*gorm.DB) *gorm.DB {
	cond, args := s.VisibleAuthorCondition(viewerID, column)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(cond, args...)
	}
}

// ListBlocked returns the users userID has blocked, newest first.
func (s *VisibilityService) ListBlocked(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ?", userID).
		Order("created_at DESC").
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// ListBlockers returns the users that have blocked userID, newest first.
func (s *VisibilityService) ListBlockers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ?", userID).
		Order("created_at DESC").
		Pluck("blocker_id", &ids).Error
	return ids, err
}

func requireUser(db *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
