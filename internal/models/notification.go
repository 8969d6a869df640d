package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationSystem  NotificationType = "system"
)

// Notification is immutable after creation except for IsRead. Message is
// rendered once and never re-rendered.
type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_recipient_read" json:"recipient_id"`
	Type        NotificationType `gorm:"size:20;not null" json:"type"`
	ActorID     *uuid.UUID       `gorm:"type:uuid;index" json:"actor_id"`
	EntityID    *uuid.UUID       `gorm:"type:uuid" json:"entity_id,omitempty"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notifications_recipient_read" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}
