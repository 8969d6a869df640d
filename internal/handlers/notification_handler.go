package handlers

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/notifications?unread=true&page&limit
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	page, limit := pageParams(c, 20, 100)
	items, hasMore, err := h.notifications.List(c.UserContext(), userID, c.QueryBool("unread", false), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return c.JSON(dto.NotificationListResponse{Notifications: items, Page: page, Limit: limit, HasMore: hasMore})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	count, err := h.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.UnreadCountResponse{Unread: count})
}

// MarkRead with no body, or a body without ids, marks everything read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	updated, err := h.notifications.MarkRead(c.UserContext(), userID, req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MarkReadResponse{Updated: updated})
}
