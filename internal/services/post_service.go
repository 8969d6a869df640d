package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxPostLength    = 5000
	maxCommentLength = 1000
	maxTitleLength   = 200
	maxTags          = 10
)

var mentionPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])@([A-Za-z0-9_]{3,30})`)

type CreatePostInput struct {
	Title    string
	Content  string
	ImageRef *string
	Category string
	Tags     []string
	Nsfw     bool
}

// PostService handles publishing and engagement (likes, saves, comments).
type PostService struct {
	db         *gorm.DB
	visibility *VisibilityService
	accounts   *AccountService
	notifier   *NotificationService
	filter     *ContentFilter
}

func NewPostService(db *gorm.DB, visibility *VisibilityService, accounts *AccountService, notifier *NotificationService, filter *ContentFilter) *PostService {
	return &PostService{db: db, visibility: visibility, accounts: accounts, notifier: notifier, filter: filter}
}

func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	title := strings.TrimSpace(in.Title)
	if content == "" || len(content) > maxPostLength {
		return nil, fmt.Errorf("post must be 1-%d characters: %w", maxPostLength, ErrInvalidOperation)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("title must be under %d characters: %w", maxTitleLength, ErrInvalidOperation)
	}
	if err := s.filter.Validate(title + "\n" + content); err != nil {
		return nil, err
	}
	tags := NormalizeTags(in.Tags)
	if len(tags) > maxTags {
		return nil, fmt.Errorf("at most %d tags allowed: %w", maxTags, ErrInvalidOperation)
	}

	post := &models.Post{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
		ImageRef: in.ImageRef,
		Category: strings.ToLower(strings.TrimSpace(in.Category)),
		Tags:     strings.Join(tags, ","),
		Nsfw:     in.Nsfw,
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}

	s.notifyMentions(ctx, authorID, post.ID, content, "{actor} mentioned you in a post", nil)
	return post, nil
}

// DeletePost removes the author's own post along with its engagement.
func (s *PostService) DeletePost(ctx context.Context, authorID, postID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND author_id = ?", postID, authorID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		for _, m := range []interface{}{&models.Like{}, &models.SavedPost{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&post).Error
	})
}

// GetVisiblePost loads a post, reporting NotFound when its author is hidden
// from viewerID so blocks are indistinguishable from deletions.
func (s *PostService) GetVisiblePost(ctx context.Context, viewerID, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Scopes(s.visibility.VisibleTo(viewerID, "posts.author_id")).
		Where("posts.id = ?", postID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ToggleLike flips the viewer's like. Only the transition to liked notifies
// the author; a concurrent duplicate insert is treated as already liked.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uuid.UUID) (bool, int64, error) {
	post, err := s.GetVisiblePost(ctx, userID, postID)
	if err != nil {
		return false, 0, err
	}
	db := s.db.WithContext(ctx)

	liked, created, err := toggleRow(db, &models.Like{UserID: userID, PostID: postID},
		"user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return false, 0, err
	}
	metrics.Toggles.WithLabelValues("like", toggleState(liked, created)).Inc()

	if created {
		actor := userID
		s.notifier.TryNotify(ctx, NotifyParams{
			Type:        models.NotificationLike,
			ActorID:     &actor,
			RecipientID: post.AuthorID,
			EntityID:    &post.ID,
			Template:    "{actor} liked your post",
		})
	}

	var count int64
	if err := db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return liked, 0, err
	}
	return liked, count, nil
}

// ToggleSave flips the viewer's bookmark. Saves never notify.
func (s *PostService) ToggleSave(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	if _, err := s.GetVisiblePost(ctx, userID, postID); err != nil {
		return false, err
	}
	saved, created, err := toggleRow(s.db.WithContext(ctx), &models.SavedPost{UserID: userID, PostID: postID},
		"user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return false, err
	}
	metrics.Toggles.WithLabelValues("save", toggleState(saved, created)).Inc()
	return saved, nil
}

// toggleRow deletes the matching row if present, otherwise inserts row.
// It returns the resulting state and whether this call created the row.
func toggleRow(db *gorm.DB, row interface{}, query string, args ...interface{}) (on bool, created bool, err error) {
	deleted := db.Where(query, args...).Delete(row)
	if deleted.Error != nil {
		return false, false, deleted.Error
	}
	if deleted.RowsAffected > 0 {
		return false, false, nil
	}

	inserted := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if inserted.Error != nil {
		if errors.Is(inserted.Error, gorm.ErrDuplicatedKey) {
			return true, false, nil
		}
		return false, false, inserted.Error
	}
	return true, inserted.RowsAffected > 0, nil
}

func toggleState(on, created bool) string {
	switch {
	case created:
		return "on"
	case on:
		return "noop"
	default:
		return "off"
	}
}

func (s *PostService) AddComment(ctx context.Context, userID, postID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxCommentLength {
		return nil, fmt.Errorf("comment must be 1-%d characters: %w", maxCommentLength, ErrInvalidOperation)
	}
	if err := s.filter.Validate(content); err != nil {
		return nil, err
	}
	post, err := s.GetVisiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, AuthorID: userID, Content: content}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}

	actor := userID
	s.notifier.TryNotify(ctx, NotifyParams{
		Type:        models.NotificationComment,
		ActorID:     &actor,
		RecipientID: post.AuthorID,
		EntityID:    &post.ID,
		Template:    "{actor} commented on your post",
	})
	s.notifyMentions(ctx, userID, post.ID, content, "{actor} mentioned you in a comment", &post.AuthorID)
	return comment, nil
}

// ListComments returns comments newest first, skipping hidden commenters.
func (s *PostService) ListComments(ctx context.Context, viewerID, postID uuid.UUID, page, limit int) ([]CommentView, bool, error) {
	if _, err := s.GetVisiblePost(ctx, viewerID, postID); err != nil {
		return nil, false, err
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").
		Scopes(s.visibility.VisibleTo(viewerID, "comments.author_id")).
		Where("comments.post_id = ?", postID).
		Order("comments.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, false, err
	}
	views := make([]CommentView, len(comments))
	for i := range comments {
		views[i] = toCommentView(&comments[i])
	}
	return views, len(comments) == limit, nil
}

// notifyMentions fans out mention notifications for @usernames in text.
// skip lets a caller avoid double-notifying someone already told.
func (s *PostService) notifyMentions(ctx context.Context, actorID, entityID uuid.UUID, text, template string, skip *uuid.UUID) {
	names := ExtractMentions(text)
	if len(names) == 0 {
		return
	}
	users, err := s.accounts.FindByUsernames(ctx, names)
	if err != nil {
		slog.Warn("mention lookup failed", "error", err, "user_id", actorID.String(), "action", "notify")
		return
	}
	for _, u := range users {
		if skip != nil && u.ID == *skip {
			continue
		}
		actor, entity := actorID, entityID
		s.notifier.TryNotify(ctx, NotifyParams{
			Type:        models.NotificationMention,
			ActorID:     &actor,
			RecipientID: u.ID,
			EntityID:    &entity,
			Template:    template,
		})
	}
}

// ExtractMentions returns unique @usernames in order of appearance.
func ExtractMentions(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// NormalizeTags trims, lowercases and de-duplicates tags, dropping empties
// and stripping commas so the stored comma-delimited text stays parseable.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(t, ",", " ")))
		t = strings.TrimPrefix(t, "#")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
