package dto

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	ImageRef *string  `json:"image_ref"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Nsfw     bool     `json:"nsfw"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type LikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type SaveResponse struct {
	Saved bool `json:"saved"`
}

type FollowResponse struct {
	Following bool `json:"following"`
}

type BlockResponse struct {
	Blocked bool `json:"blocked"`
}

type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Followers   int64     `json:"followers"`
	Following   int64     `json:"following"`
	IsFollowing bool      `json:"is_following"`
}

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	HasMore       bool                  `json:"has_more"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkReadRequest marks the listed ids read; omit ids to mark everything.
type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
