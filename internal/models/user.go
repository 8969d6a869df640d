package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// User is the account record. The social core only reads role, activity,
// suspension and display preferences from it.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Username     string         `gorm:"not null;size:50;uniqueIndex" json:"username"`
	DisplayName  string         `gorm:"size:100" json:"display_name"`
	Password     string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"size:20;default:'standard'" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	BlockedUntil *time.Time     `gorm:"index" json:"blocked_until,omitempty"`
	ShowNsfw     bool           `gorm:"not null;default:false" json:"show_nsfw"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	if u.Role == "" {
		u.Role = RoleStandard
	}
	return nil
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// IsSuspended reports whether a moderation suspension is in force at now.
func (u *User) IsSuspended(now time.Time) bool {
	return u.BlockedUntil != nil && u.BlockedUntil.After(now)
}
