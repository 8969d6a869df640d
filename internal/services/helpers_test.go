package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingSink captures deliveries in memory.
type recordingSink struct {
	mu        sync.Mutex
	delivered []models.Notification
	identity  []uuid.UUID
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, *n)
	return s.err
}

func (s *recordingSink) RequestIdentityVerification(_ context.Context, userID, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = append(s.identity, userID)
	return s.err
}

func (s *recordingSink) Delivered() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.delivered...)
}

func (s *recordingSink) IdentityRequests() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.identity...)
}

// failingAccounts wraps a real store and fails the mutating calls.
type failingAccounts struct {
	AccountStore
	err error
}

func (f *failingAccounts) SuspendUser(context.Context, uuid.UUID, time.Time) error {
	return f.err
}

func (f *failingAccounts) DeleteUser(context.Context, uuid.UUID) error {
	return f.err
}

var errAccountStoreDown = errors.New("account store unavailable")

// coreSuite wires every service against a fresh SQLite file per test.
type coreSuite struct {
	suite.Suite
	ctx           context.Context
	db            *gorm.DB
	sink          *recordingSink
	accounts      *AccountService
	visibility    *VisibilityService
	notifications *NotificationService
	graph         *GraphService
	posts         *PostService
	feed          *FeedService
	moderation    *ModerationService
}

func (s *coreSuite) SetupTest() {
	db, err := database.OpenSQLite(filepath.Join(s.T().TempDir(), "circle.db"), logger.Silent)
	s.Require().NoError(err)
	s.Require().NoError(database.MigrateModels(db, database.Models()))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s.ctx = context.Background()
	s.db = db
	s.sink = &recordingSink{}
	s.accounts = NewAccountService(db)
	s.visibility = NewVisibilityService(db)
	s.notifications = NewNotificationService(db, s.visibility, s.accounts, s.sink)
	s.graph = NewGraphService(db, s.visibility, s.notifications)
	s.posts = NewPostService(db, s.visibility, s.accounts, s.notifications, NewContentFilter())
	s.feed = NewFeedService(db, s.graph, s.visibility, s.accounts, FeedOptions{})
	s.moderation = NewModerationService(db, s.visibility, s.accounts, s.notifications, s.sink, 0)
}

func (s *coreSuite) createUser(username string) *models.User {
	u := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
		Password:    "not-a-real-hash",
		IsActive:    true,
	}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *coreSuite) createAdmin(username string) *models.User {
	u := s.createUser(username)
	s.Require().NoError(s.db.Model(u).Update("role", models.RoleAdmin).Error)
	return u
}

type postOption func(*models.Post)

func withTags(tags string) postOption { return func(p *models.Post) { p.Tags = tags } }
func withTitle(title string) postOption { return func(p *models.Post) { p.Title = title } }
func withCategory(cat string) postOption { return func(p *models.Post) { p.Category = cat } }
func nsfw() postOption { return func(p *models.Post) { p.Nsfw = true } }
func aged(d time.Duration) postOption { return func(p *models.Post) { p.CreatedAt = time.Now().UTC().Add(-d) } }

// createPost inserts directly so tests control created_at.
func (s *coreSuite) createPost(authorID uuid.UUID, content string, opts ...postOption) *models.Post {
	p := &models.Post{AuthorID: authorID, Content: content, CreatedAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(p)
	}
	s.Require().NoError(s.db.Create(p).Error)
	return p
}

func (s *coreSuite) addLikes(postID uuid.UUID, users ...*models.User) {
	for _, u := range users {
		s.Require().NoError(s.db.Create(&models.Like{UserID: u.ID, PostID: postID}).Error)
	}
}

func (s *coreSuite) addComment(postID, authorID uuid.UUID, content string, age time.Duration) *models.Comment {
	c := &models.Comment{PostID: postID, AuthorID: authorID, Content: content, CreatedAt: time.Now().UTC().Add(-age)}
	s.Require().NoError(s.db.Create(c).Error)
	return c
}

func (s *coreSuite) notificationCount(recipientID uuid.UUID, typ models.NotificationType) int64 {
	var count int64
	s.Require().NoError(s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", recipientID, typ).
		Count(&count).Error)
	return count
}

func (s *coreSuite) assemble(viewerID uuid.UUID, q FeedQuery) *FeedPage {
	page, err := s.feed.Assemble(s.ctx, viewerID, q)
	s.Require().NoError(err)
	return page
}

func postIDs(page *FeedPage) []uuid.UUID {
	ids := make([]uuid.UUID, len(page.Posts))
	for i, p := range page.Posts {
		ids[i] = p.ID
	}
	return ids
}

func authorIDs(page *FeedPage) []uuid.UUID {
	ids := make([]uuid.UUID, len(page.Posts))
	for i, p := range page.Posts {
		ids[i] = p.AuthorID
	}
	return ids
}
