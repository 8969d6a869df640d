package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type NotificationSuite struct {
	coreSuite
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, new(NotificationSuite))
}

func (s *NotificationSuite) notify(typ models.NotificationType, actor, recipient uuid.UUID) *models.Notification {
	n, err := s.notifications.Notify(s.ctx, NotifyParams{
		Type:        typ,
		ActorID:     &actor,
		RecipientID: recipient,
		Template:    "{actor} did something",
	})
	s.Require().NoError(err)
	return n
}

// lookupFailingAccounts fails every GetUser call.
type lookupFailingAccounts struct {
	AccountStore
}

func (lookupFailingAccounts) GetUser(context.Context, uuid.UUID) (*AccountView, error) {
	return nil, errAccountStoreDown
}

func (s *NotificationSuite) TestTryNotifyLogsAndSwallowsErrors() {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	a := s.createUser("alice")
	b := s.createUser("bob")
	notifier := NewNotificationService(s.db, s.visibility, lookupFailingAccounts{AccountStore: s.accounts}, s.sink)
	graph := NewGraphService(s.db, s.visibility, notifier)

	followed, err := graph.Follow(s.ctx, a.ID, b.ID)
	s.Require().NoError(err)
	s.True(followed)
	s.Zero(s.notificationCount(b.ID, models.NotificationFollow))

	logged := buf.String()
	s.Contains(logged, `"level":"WARN"`)
	s.Contains(logged, `"msg":"notification dropped"`)
	s.Contains(logged, errAccountStoreDown.Error())
}

func (s *NotificationSuite) TestSelfActionSuppressed() {
	a := s.createUser("alice")

	for _, typ := range []models.NotificationType{models.NotificationLike, models.NotificationComment, models.NotificationFollow, models.NotificationMention} {
		s.Nil(s.notify(typ, a.ID, a.ID), typ)
	}

	var count int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Count(&count).Error)
	s.Zero(count)
}

func (s *NotificationSuite) TestHiddenActorSuppressed() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	_, err := s.visibility.Block(s.ctx, b.ID, a.ID)
	s.Require().NoError(err)

	s.Nil(s.notify(models.NotificationLike, a.ID, b.ID))
	s.Nil(s.notify(models.NotificationLike, b.ID, a.ID))
	s.Zero(s.notificationCount(b.ID, models.NotificationLike))
}

func (s *NotificationSuite) TestMessageFrozenAtCreation() {
	a := s.createUser("alice")
	b := s.createUser("bob")

	n := s.notify(models.NotificationLike, a.ID, b.ID)
	s.Require().NotNil(n)
	s.Equal("alice did something", n.Message)

	s.Require().NoError(s.db.Model(a).Update("display_name", "Alice Renamed").Error)

	items, _, err := s.notifications.List(s.ctx, b.ID, false, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("alice did something", items[0].Message)
}

func (s *NotificationSuite) TestDeliveredToSink() {
	a := s.createUser("alice")
	b := s.createUser("bob")

	n := s.notify(models.NotificationFollow, a.ID, b.ID)
	s.Require().NotNil(n)

	s.Eventually(func() bool {
		for _, d := range s.sink.Delivered() {
			if d.ID == n.ID {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func (s *NotificationSuite) TestSinkFailureDoesNotAffectPersistence() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	s.sink.err = errors.New("push gateway down")

	n := s.notify(models.NotificationComment, a.ID, b.ID)
	s.Require().NotNil(n)
	s.EqualValues(1, s.notificationCount(b.ID, models.NotificationComment))
}

func (s *NotificationSuite) TestSystemNotificationHasNoActor() {
	b := s.createUser("bob")

	n, err := s.notifications.Notify(s.ctx, NotifyParams{
		Type:        models.NotificationSystem,
		RecipientID: b.ID,
		Template:    "Welcome aboard",
	})
	s.Require().NoError(err)
	s.Require().NotNil(n)
	s.Nil(n.ActorID)

	count, err := s.notifications.UnreadCount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *NotificationSuite) TestMarkReadSubsetIgnoresForeignIDs() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	c := s.createUser("carol")
	first := s.notify(models.NotificationLike, a.ID, b.ID)
	s.notify(models.NotificationComment, a.ID, b.ID)
	foreign := s.notify(models.NotificationLike, a.ID, c.ID)

	updated, err := s.notifications.MarkRead(s.ctx, b.ID, []uuid.UUID{first.ID, foreign.ID})
	s.Require().NoError(err)
	s.EqualValues(1, updated)

	unread, err := s.notifications.UnreadCount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.EqualValues(1, unread)

	unread, err = s.notifications.UnreadCount(s.ctx, c.ID)
	s.Require().NoError(err)
	s.EqualValues(1, unread, "other users' notifications untouched")
}

func (s *NotificationSuite) TestMarkReadAll() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	s.notify(models.NotificationLike, a.ID, b.ID)
	s.notify(models.NotificationComment, a.ID, b.ID)

	updated, err := s.notifications.MarkRead(s.ctx, b.ID, []uuid.UUID{})
	s.Require().NoError(err)
	s.Zero(updated, "an explicit empty list marks nothing")

	updated, err = s.notifications.MarkRead(s.ctx, b.ID, nil)
	s.Require().NoError(err)
	s.EqualValues(2, updated)

	unread, err := s.notifications.UnreadCount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Zero(unread)
}

func (s *NotificationSuite) TestListHidesActorsBlockedLater() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	s.notify(models.NotificationLike, a.ID, b.ID)

	_, err := s.visibility.Block(s.ctx, b.ID, a.ID)
	s.Require().NoError(err)

	items, hasMore, err := s.notifications.List(s.ctx, b.ID, false, 1, 10)
	s.Require().NoError(err)
	s.Empty(items)
	s.False(hasMore)

	unread, err := s.notifications.UnreadCount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Zero(unread)
}

func (s *NotificationSuite) TestListUnreadOnly() {
	a := s.createUser("alice")
	b := s.createUser("bob")
	read := s.notify(models.NotificationLike, a.ID, b.ID)
	s.notify(models.NotificationComment, a.ID, b.ID)
	_, err := s.notifications.MarkRead(s.ctx, b.ID, []uuid.UUID{read.ID})
	s.Require().NoError(err)

	items, _, err := s.notifications.List(s.ctx, b.ID, true, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(models.NotificationComment, items[0].Type)
}
