package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PostSuite struct {
	coreSuite
}

func TestPostSuite(t *testing.T) {
	suite.Run(t, new(PostSuite))
}

func (s *PostSuite) TestToggleLikeTwiceRestoresCount() {
	author := s.createUser("author")
	fan := s.createUser("fan")
	post := s.createPost(author.ID, "hello")

	liked, count, err := s.posts.ToggleLike(s.ctx, fan.ID, post.ID)
	s.Require().NoError(err)
	s.True(liked)
	s.EqualValues(1, count)

	liked, count, err = s.posts.ToggleLike(s.ctx, fan.ID, post.ID)
	s.Require().NoError(err)
	s.False(liked)
	s.EqualValues(0, count)

	s.EqualValues(1, s.notificationCount(author.ID, models.NotificationLike), "unlike never notifies")
}

func (s *PostSuite) TestLikeOwnPostDoesNotNotify() {
	author := s.createUser("author")
	post := s.createPost(author.ID, "hello")

	_, _, err := s.posts.ToggleLike(s.ctx, author.ID, post.ID)
	s.Require().NoError(err)
	s.Zero(s.notificationCount(author.ID, models.NotificationLike))
}

func (s *PostSuite) TestHiddenPostLooksMissing() {
	author := s.createUser("author")
	blocked := s.createUser("blocked")
	post := s.createPost(author.ID, "hello")
	_, err := s.visibility.Block(s.ctx, author.ID, blocked.ID)
	s.Require().NoError(err)

	_, _, err = s.posts.ToggleLike(s.ctx, blocked.ID, post.ID)
	s.ErrorIs(err, ErrPostNotFound)
	_, err = s.posts.ToggleSave(s.ctx, blocked.ID, post.ID)
	s.ErrorIs(err, ErrPostNotFound)
	_, err = s.posts.AddComment(s.ctx, blocked.ID, post.ID, "hi")
	s.ErrorIs(err, ErrPostNotFound)

	_, _, err = s.posts.ToggleLike(s.ctx, blocked.ID, uuid.New())
	s.ErrorIs(err, ErrPostNotFound)
}

func (s *PostSuite) TestToggleSave() {
	author := s.createUser("author")
	reader := s.createUser("reader")
	post := s.createPost(author.ID, "bookmark me")

	saved, err := s.posts.ToggleSave(s.ctx, reader.ID, post.ID)
	s.Require().NoError(err)
	s.True(saved)
	saved, err = s.posts.ToggleSave(s.ctx, reader.ID, post.ID)
	s.Require().NoError(err)
	s.False(saved)
	s.Zero(s.notificationCount(author.ID, models.NotificationLike))
}

func (s *PostSuite) TestCreatePostNormalizesAndNotifiesMentions() {
	author := s.createUser("author")
	friend := s.createUser("friend")

	post, err := s.posts.CreatePost(s.ctx, author.ID, CreatePostInput{
		Title:    " Launch day ",
		Content:  "Thanks @friend and @nobody_here and @author",
		Category: " News ",
		Tags:     []string{" Go ", "#go", "", "Release,Notes"},
	})
	s.Require().NoError(err)
	s.Equal("Launch day", post.Title)
	s.Equal("news", post.Category)
	s.Equal("go,release notes", post.Tags)

	s.EqualValues(1, s.notificationCount(friend.ID, models.NotificationMention))
	s.Zero(s.notificationCount(author.ID, models.NotificationMention), "self mention suppressed")
}

func (s *PostSuite) TestCreatePostValidation() {
	author := s.createUser("author")

	_, err := s.posts.CreatePost(s.ctx, author.ID, CreatePostInput{Content: "   "})
	s.ErrorIs(err, ErrInvalidOperation)

	_, err = s.posts.CreatePost(s.ctx, author.ID, CreatePostInput{Content: "this is a scam"})
	s.ErrorIs(err, ErrInvalidOperation)
}

func (s *PostSuite) TestAddCommentNotifiesAuthorOnce() {
	author := s.createUser("author")
	commenter := s.createUser("commenter")
	post := s.createPost(author.ID, "thoughts?")

	// Mentioning the author must not produce a second notification.
	_, err := s.posts.AddComment(s.ctx, commenter.ID, post.ID, "nice one @author")
	s.Require().NoError(err)

	s.EqualValues(1, s.notificationCount(author.ID, models.NotificationComment))
	s.Zero(s.notificationCount(author.ID, models.NotificationMention))
}

func (s *PostSuite) TestListCommentsSkipsHiddenCommenters() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")
	friend := s.createUser("friend")
	troll := s.createUser("troll")
	post := s.createPost(author.ID, "thread")
	s.addComment(post.ID, friend.ID, "first", 2*time.Hour)
	s.addComment(post.ID, troll.ID, "rude", time.Hour)
	_, err := s.visibility.Block(s.ctx, troll.ID, viewer.ID)
	s.Require().NoError(err)

	comments, hasMore, err := s.posts.ListComments(s.ctx, viewer.ID, post.ID, 1, 10)
	s.Require().NoError(err)
	s.False(hasMore)
	s.Require().Len(comments, 1)
	s.Equal("first", comments[0].Content)
	s.Equal(friend.ID, comments[0].Author.ID)
}

func (s *PostSuite) TestDeletePostOwnerOnly() {
	author := s.createUser("author")
	other := s.createUser("other")
	post := s.createPost(author.ID, "mine")
	s.addLikes(post.ID, other)

	s.ErrorIs(s.posts.DeletePost(s.ctx, other.ID, post.ID), ErrPostNotFound)
	s.Require().NoError(s.posts.DeletePost(s.ctx, author.ID, post.ID))

	var likes int64
	s.Require().NoError(s.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	s.Zero(likes)
}

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"hi @alice and @bob", []string{"alice", "bob"}},
		{"@alice @alice", []string{"alice"}},
		{"mail me at me@example.com", nil},
		{"@ab is too short", nil},
		{"(@carol_1)", []string{"carol_1"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMentions(tt.text), tt.text)
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "web dev"}, NormalizeTags([]string{"Go", " #go ", "web,dev", ""}))
	assert.Empty(t, NormalizeTags(nil))
}
