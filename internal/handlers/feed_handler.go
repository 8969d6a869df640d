package handlers

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Get serves GET /api/feed?mode&tag&q&category&page&limit.
func (h *FeedHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	page, err := h.feed.Assemble(c.UserContext(), userID, services.FeedQuery{
		Mode:     services.FeedMode(c.Query("mode", string(services.FeedFollowing))),
		Tag:      c.Query("tag"),
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
