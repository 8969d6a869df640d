package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is published content. Only moderation-triggered deletion mutates it.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Title     string    `gorm:"size:200" json:"title,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageRef  *string   `gorm:"size:500" json:"image_ref,omitempty"`
	Category  string    `gorm:"size:50;index" json:"category,omitempty"`
	Tags      string    `gorm:"size:500" json:"tags"`
	Nsfw      bool      `gorm:"not null;default:false" json:"nsfw"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// Like is unique per (user, post).
type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// SavedPost is a private bookmark, unique per (user, post).
type SavedPost struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_user_post" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *SavedPost) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
