package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const deliveryTimeout = 5 * time.Second

// NotifyParams describes one fan-out event. ActorID is nil for system
// notifications. Template may contain {actor}, replaced once at creation.
type NotifyParams struct {
	Type        models.NotificationType
	ActorID     *uuid.UUID
	RecipientID uuid.UUID
	EntityID    *uuid.UUID
	Template    string
}

type NotificationService struct {
	db         *gorm.DB
	visibility *VisibilityService
	accounts   AccountStore
	sink       DeliverySink
}

func NewNotificationService(db *gorm.DB, visibility *VisibilityService, accounts AccountStore, sink DeliverySink) *NotificationService {
	if sink == nil {
		sink = LogSink{}
	}
	return &NotificationService{db: db, visibility: visibility, accounts: accounts, sink: sink}
}

// Notify persists a notification unless it is suppressed. Suppression
// (self-action, hidden actor) returns (nil, nil): it is not an error.
func (s *NotificationService) Notify(ctx context.Context, p NotifyParams) (*models.Notification, error) {
	actorName := ""
	if p.ActorID != nil {
		if *p.ActorID == p.RecipientID {
			metrics.Notifications.WithLabelValues(string(p.Type), "self_suppressed").Inc()
			return nil, nil
		}
		visible, err := s.visibility.IsVisible(ctx, *p.ActorID, p.RecipientID)
		if err != nil {
			return nil, err
		}
		if !visible {
			metrics.Notifications.WithLabelValues(string(p.Type), "hidden_suppressed").Inc()
			return nil, nil
		}
		actor, err := s.accounts.GetUser(ctx, *p.ActorID)
		if err != nil {
			return nil, err
		}
		actorName = actor.DisplayName
	}

	n := &models.Notification{
		RecipientID: p.RecipientID,
		Type:        p.Type,
		ActorID:     p.ActorID,
		EntityID:    p.EntityID,
		Message:     renderMessage(p.Template, actorName),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		slog.Error("failed to persist notification", "error", err, "user_id", p.RecipientID.String(), "action", "notify")
		return nil, err
	}
	metrics.Notifications.WithLabelValues(string(p.Type), "created").Inc()

	s.dispatch(n)
	return n, nil
}

// TryNotify is Notify for callers whose own operation must not fail with it.
// Errors are logged at WARN and dropped.
func (s *NotificationService) TryNotify(ctx context.Context, p NotifyParams) {
	if _, err := s.Notify(ctx, p); err != nil {
		slog.Warn("notification dropped",
			"error", err,
			"type", string(p.Type),
			"user_id", p.RecipientID.String(),
			"action", "notify")
	}
}

// dispatch hands the notification to the sink without blocking the caller.
func (s *NotificationService) dispatch(n *models.Notification) {
	delivered := *n
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.sink.Deliver(ctx, &delivered); err != nil {
			metrics.Notifications.WithLabelValues(string(delivered.Type), "delivery_failed").Inc()
			slog.Warn("notification delivery failed",
				"error", err,
				"notification_id", delivered.ID,
				"user_id", delivered.RecipientID.String(),
				"action", "deliver")
		}
	}()
}

func renderMessage(template, actorName string) string {
	return strings.NewReplacer("{actor}", actorName).Replace(template)
}

// recipientScope limits rows to userID and hides notifications whose actor
// is no longer visible to them.
func (s *NotificationService) recipientScope(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	cond, args := s.visibility.VisibleAuthorCondition(userID, "notifications.actor_id")
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("notifications.recipient_id = ?", userID).
			Where("(notifications.actor_id IS NULL OR "+cond+")", args...)
	}
}

// List returns a page of notifications, newest first. hasMore follows the
// feed convention: true when the page came back full.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]models.Notification, bool, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Scopes(s.recipientScope(userID))
	if unreadOnly {
		query = query.Where("notifications.is_read = ?", false)
	}
	var items []models.Notification
	err := query.Order("notifications.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, false, err
	}
	return items, len(items) == limit, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(s.recipientScope(userID)).
		Where("notifications.is_read = ?", false).
		Count(&count).Error
	return count, err
}

// MarkRead marks ids read. A nil slice marks every notification of userID;
// ids belonging to other users are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false)
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		query = query.Where("id IN ?", ids)
	}
	result := query.Update("is_read", true)
	return result.RowsAffected, result.Error
}
