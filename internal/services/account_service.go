package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountView is the slice of an account the social core is allowed to read.
type AccountView struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	ShowNsfw     bool       `json:"show_nsfw"`
}

func (a *AccountView) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// AccountStore is the account subsystem as seen by moderation and feeds.
type AccountStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*AccountView, error)
	SuspendUser(ctx context.Context, id uuid.UUID, until time.Time) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

func toAccountView(u *models.User) *AccountView {
	name := u.Name()
	return &AccountView{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  name,
		Role:         u.Role,
		IsActive:     u.IsActive,
		BlockedUntil: u.BlockedUntil,
		ShowNsfw:     u.ShowNsfw,
	}
}

func (s *AccountService) GetUser(ctx context.Context, id uuid.UUID) (*AccountView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toAccountView(&user), nil
}

// FindByUsernames resolves @mentions. Unknown names are skipped.
func (s *AccountService) FindByUsernames(ctx context.Context, usernames []string) ([]AccountView, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("username IN ?", usernames).Find(&users).Error; err != nil {
		return nil, err
	}
	views := make([]AccountView, len(users))
	for i := range users {
		views[i] = *toAccountView(&users[i])
	}
	return views, nil
}

func (s *AccountService) SuspendUser(ctx context.Context, id uuid.UUID, until time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("blocked_until", until)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser deactivates the account and removes everything it authored.
func (s *AccountService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		authored := tx.Model(&models.Post{}).Select("id").Where("author_id = ?", id)
		steps := []struct {
			model interface{}
			query string
			args  []interface{}
		}{
			{&models.Like{}, "user_id = ? OR post_id IN (?)", []interface{}{id, authored}},
			{&models.SavedPost{}, "user_id = ? OR post_id IN (?)", []interface{}{id, authored}},
			{&models.Comment{}, "author_id = ? OR post_id IN (?)", []interface{}{id, authored}},
			{&models.Post{}, "author_id = ?", []interface{}{id}},
			{&models.Follow{}, "follower_id = ? OR followed_id = ?", []interface{}{id, id}},
			{&models.Block{}, "blocker_id = ? OR blocked_id = ?", []interface{}{id, id}},
			{&models.Notification{}, "recipient_id = ? OR actor_id = ?", []interface{}{id, id}},
			{&models.RefreshToken{}, "user_id = ?", []interface{}{id}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("cascade delete %T: %w", step.model, err)
			}
		}

		if err := tx.Model(&user).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// UpdatePreferences changes display settings; nil fields are left untouched.
func (s *AccountService) UpdatePreferences(ctx context.Context, id uuid.UUID, displayName *string, showNsfw *bool) (*AccountView, error) {
	updates := map[string]interface{}{}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	if showNsfw != nil {
		updates["show_nsfw"] = *showNsfw
	}
	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.GetUser(ctx, id)
}
