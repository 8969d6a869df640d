package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type AccountSuite struct {
	coreSuite
	auth *AuthService
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) SetupTest() {
	s.coreSuite.SetupTest()
	s.auth = NewAuthService(s.db, &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	})
}

func (s *AccountSuite) TestGetUser() {
	u := s.createUser("alice")

	view, err := s.accounts.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", view.Username)
	s.Equal(models.RoleStandard, view.Role)
	s.False(view.IsAdmin())
	s.True(view.IsActive)

	_, err = s.accounts.GetUser(s.ctx, uuid.New())
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *AccountSuite) TestSuspendUnknownUser() {
	err := s.accounts.SuspendUser(s.ctx, uuid.New(), time.Now().UTC().Add(time.Hour))
	s.ErrorIs(err, ErrNotFound)
}

func (s *AccountSuite) TestDeleteUserRemovesGraphAndContent() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	_, err := s.graph.Follow(s.ctx, a.ID, b.ID)
	s.Require().NoError(err)
	_, err = s.visibility.Block(s.ctx, b.ID, s.createUser("carol").ID)
	s.Require().NoError(err)
	post := s.createPost(b.ID, "bye")
	s.addComment(post.ID, a.ID, "noo", 0)

	s.Require().NoError(s.accounts.DeleteUser(s.ctx, b.ID))

	for _, m := range []interface{}{&models.Follow{}, &models.Block{}, &models.Post{}, &models.Comment{}, &models.Notification{}} {
		var count int64
		s.Require().NoError(s.db.Model(m).Count(&count).Error)
		s.Zero(count, "%T", m)
	}

	var deleted models.User
	s.Require().NoError(s.db.Unscoped().First(&deleted, "id = ?", b.ID).Error)
	s.False(deleted.IsActive)
	s.True(deleted.DeletedAt.Valid)

	s.ErrorIs(s.accounts.DeleteUser(s.ctx, b.ID), ErrUserNotFound)
}

func (s *AccountSuite) TestUpdatePreferences() {
	u := s.createUser("alice")
	name := "Alice"
	show := true

	view, err := s.accounts.UpdatePreferences(s.ctx, u.ID, &name, &show)
	s.Require().NoError(err)
	s.Equal("Alice", view.DisplayName)
	s.True(view.ShowNsfw)

	view, err = s.accounts.UpdatePreferences(s.ctx, u.ID, nil, nil)
	s.Require().NoError(err)
	s.True(view.ShowNsfw, "nil fields untouched")
}

func (s *AccountSuite) TestRegisterLoginRefresh() {
	resp, err := s.auth.Register(s.ctx, &dto.RegisterRequest{
		Email:    "New@Example.com",
		Username: "newbie",
		Password: "correct horse",
	})
	s.Require().NoError(err)
	s.NotEmpty(resp.AccessToken)
	s.Equal("new@example.com", resp.User.Email)
	s.Equal(models.RoleStandard, resp.User.Role)

	_, err = s.auth.Register(s.ctx, &dto.RegisterRequest{Email: "new@example.com", Username: "other", Password: "correct horse"})
	s.ErrorIs(err, ErrEmailTaken)

	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "new@example.com", Password: "wrong password"})
	s.ErrorIs(err, ErrInvalidCredentials)

	login, err := s.auth.Login(s.ctx, &dto.LoginRequest{Email: "new@example.com", Password: "correct horse"})
	s.Require().NoError(err)

	refreshed, err := s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	s.Require().NoError(err)
	s.NotEqual(login.RefreshToken, refreshed.RefreshToken)

	_, err = s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	s.ErrorIs(err, ErrInvalidToken, "refresh tokens are single use")
}

func (s *AccountSuite) TestSuspendedUserCannotLogin() {
	resp, err := s.auth.Register(s.ctx, &dto.RegisterRequest{
		Email:    "troll@example.com",
		Username: "troll",
		Password: "long enough",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.SuspendUser(s.ctx, resp.User.ID, time.Now().UTC().Add(time.Hour)))

	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "troll@example.com", Password: "long enough"})
	s.ErrorIs(err, ErrAccountDisabled)
}
