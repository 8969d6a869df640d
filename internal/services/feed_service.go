package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedMode string

const (
	FeedFollowing FeedMode = "following"
	FeedTrending  FeedMode = "trending"
	FeedTag       FeedMode = "tag"
	FeedSearch    FeedMode = "search"
)

const (
	// TrendingCommentWeight is fixed: a comment counts double a like.
	TrendingCommentWeight = 2
	recentCommentsPerPost = 2
)

// TrendingScore is likeCount + 2 x commentCount.
func TrendingScore(likes, comments int64) int64 {
	return likes + TrendingCommentWeight*comments
}

var trendingScoreSQL = fmt.Sprintf(
	"((SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) + %d * (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id))",
	TrendingCommentWeight,
)

type FeedQuery struct {
	Mode     FeedMode
	Tag      string
	Search   string
	Category string
	Page     int
	Limit    int
}

type AuthorSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
}

type CommentView struct {
	ID        uuid.UUID     `json:"id"`
	Author    AuthorSummary `json:"author"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
}

// FeedPost is a post with read-time engagement data for one viewer.
type FeedPost struct {
	models.Post
	Author         AuthorSummary `json:"author"`
	LikeCount      int64         `json:"like_count"`
	CommentCount   int64         `json:"comment_count"`
	TrendingScore  int64         `json:"trending_score"`
	Liked          bool          `json:"liked"`
	Saved          bool          `json:"saved"`
	RecentComments []CommentView `json:"recent_comments"`
}

// FeedPage carries hasMore using the full-page convention: the engine asks
// for Limit rows and reports HasMore when exactly Limit came back. It never
// reports a false "no more", but a page that ends exactly on the last row
// reports HasMore=true and the following page is empty.
type FeedPage struct {
	Posts   []FeedPost `json:"posts"`
	Mode    FeedMode   `json:"mode"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	HasMore bool       `json:"has_more"`
}

type FeedOptions struct {
	TrendingWindow time.Duration
	DefaultLimit   int
	MaxLimit       int
}

// FeedService assembles ranked, visibility-filtered pages of posts.
type FeedService struct {
	db         *gorm.DB
	graph      *GraphService
	visibility *VisibilityService
	accounts   AccountStore
	opts       FeedOptions
	now        func() time.Time
}

func NewFeedService(db *gorm.DB, graph *GraphService, visibility *VisibilityService, accounts AccountStore, opts FeedOptions) *FeedService {
	if opts.TrendingWindow <= 0 {
		opts.TrendingWindow = 7 * 24 * time.Hour
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 50
	}
	return &FeedService{db: db, graph: graph, visibility: visibility, accounts: accounts, opts: opts, now: time.Now}
}

func (s *FeedService) Assemble(ctx context.Context, viewerID uuid.UUID, q FeedQuery) (*FeedPage, error) {
	start := time.Now()
	defer func() {
		metrics.FeedAssemblyDuration.WithLabelValues(string(q.Mode)).Observe(time.Since(start).Seconds())
	}()

	viewer, err := s.accounts.GetUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	page, limit := s.normalizePage(q.Page, q.Limit)

	query := s.db.WithContext(ctx).Model(&models.Post{})
	switch q.Mode {
	case FeedFollowing:
		authors, err := s.graph.FollowedAuthors(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		query = query.Where("posts.author_id IN ?", authors).
			Order("posts.created_at DESC")
	case FeedTrending:
		query = query.Where("posts.created_at >= ?", s.now().UTC().Add(-s.opts.TrendingWindow)).
			Order(trendingScoreSQL + " DESC").
			Order("posts.created_at DESC")
	case FeedTag:
		tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(q.Tag), "#"))
		if tag == "" {
			return nil, fmt.Errorf("tag is required: %w", ErrInvalidOperation)
		}
		query = query.Where(`LOWER(posts.tags) LIKE ? ESCAPE '\'`, likePattern(tag)).
			Order("posts.created_at DESC")
	case FeedSearch:
		term := strings.ToLower(strings.TrimSpace(q.Search))
		if term == "" {
			return nil, fmt.Errorf("search query is required: %w", ErrInvalidOperation)
		}
		pattern := likePattern(term)
		// Tiers: exact title, then tag match, then everything else.
		query = query.
			Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\' OR LOWER(posts.tags) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  `CASE WHEN LOWER(posts.title) = ? THEN 0 WHEN LOWER(posts.tags) LIKE ? ESCAPE '\' THEN 1 ELSE 2 END, posts.created_at DESC`,
				Vars: []interface{}{term, pattern},
			}})
	default:
		return nil, fmt.Errorf("unknown feed mode %q: %w", q.Mode, ErrInvalidOperation)
	}

	// Cross-cutting filters: visibility, then NSFW, then category.
	query = query.Scopes(s.visibility.VisibleTo(viewerID, "posts.author_id"))
	if !viewer.ShowNsfw {
		query = query.Where("posts.nsfw = ?", false)
	}
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		query = query.Where("posts.category = ?", category)
	}

	var posts []models.Post
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}

	items, err := s.enrich(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return &FeedPage{
		Posts:   items,
		Mode:    q.Mode,
		Page:    page,
		Limit:   limit,
		HasMore: len(posts) == limit,
	}, nil
}

func (s *FeedService) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}
	return page, limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for a substring match. LIKE wildcards in term are
// escaped, so callers must add ESCAPE '\' to the clause.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

type postCount struct {
	PostID uuid.UUID
	Count  int64
}

// enrich attaches counts, viewer flags, authors and recent comments. All of
// it is recomputed per call; nothing here is stored.
func (s *FeedService) enrich(ctx context.Context, viewerID uuid.UUID, posts []models.Post) ([]FeedPost, error) {
	items := make([]FeedPost, len(posts))
	if len(posts) == 0 {
		return items, nil
	}
	db := s.db.WithContext(ctx)

	postIDs := make([]uuid.UUID, len(posts))
	authorIDs := make([]uuid.UUID, 0, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		authorIDs = append(authorIDs, p.AuthorID)
	}

	likeCounts, err := countByPost(db, &models.Like{}, postIDs)
	if err != nil {
		return nil, err
	}
	commentCounts, err := countByPost(db, &models.Comment{}, postIDs)
	if err != nil {
		return nil, err
	}
	liked, err := viewerPostSet(db, &models.Like{}, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	saved, err := viewerPostSet(db, &models.SavedPost{}, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	var authors []models.User
	if err := db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	authorByID := make(map[uuid.UUID]*models.User, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = &authors[i]
	}

	recent, err := s.recentComments(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	for i, p := range posts {
		item := FeedPost{
			Post:           p,
			LikeCount:      likeCounts[p.ID],
			CommentCount:   commentCounts[p.ID],
			Liked:          liked[p.ID],
			Saved:          saved[p.ID],
			RecentComments: recent[p.ID],
		}
		if item.RecentComments == nil {
			item.RecentComments = []CommentView{}
		}
		item.TrendingScore = TrendingScore(item.LikeCount, item.CommentCount)
		if a, ok := authorByID[p.AuthorID]; ok {
			item.Author = summarize(a)
		}
		items[i] = item
	}
	return items, nil
}

func countByPost(db *gorm.DB, model interface{}, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []postCount
	err := db.Model(model).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Count
	}
	return counts, nil
}

func viewerPostSet(db *gorm.DB, model interface{}, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := db.Model(model).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// recentComments returns up to recentCommentsPerPost visible comments per
// post, newest first. The cap is applied in SQL with ROW_NUMBER.
func (s *FeedService) recentComments(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID][]CommentView, error) {
	visible, visibleArgs := s.visibility.VisibleAuthorCondition(viewerID, "c.author_id")
	ranked := "comments.id IN (SELECT ranked.id FROM (" +
		"SELECT c.id, ROW_NUMBER() OVER (PARTITION BY c.post_id ORDER BY c.created_at DESC, c.id) AS rn " +
		"FROM comments c WHERE c.post_id IN ? AND " + visible +
		") ranked WHERE ranked.rn <= ?)"
	args := append([]interface{}{postIDs}, visibleArgs...)
	args = append(args, recentCommentsPerPost)

	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where(ranked, args...).
		Order("comments.created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	byPost := make(map[uuid.UUID][]CommentView, len(postIDs))
	for i := range comments {
		c := &comments[i]
		byPost[c.PostID] = append(byPost[c.PostID], toCommentView(c))
	}
	return byPost, nil
}

func summarize(u *models.User) AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, DisplayName: u.Name()}
}

func toCommentView(c *models.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Author:    summarize(&c.Author),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
