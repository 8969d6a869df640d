package handlers

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SocialHandler serves follows, blocks, profiles and preferences.
type SocialHandler struct {
	graph      *services.GraphService
	visibility *services.VisibilityService
	accounts   *services.AccountService
}

func NewSocialHandler(graph *services.GraphService, visibility *services.VisibilityService, accounts *services.AccountService) *SocialHandler {
	return &SocialHandler{graph: graph, visibility: visibility, accounts: accounts}
}

func (h *SocialHandler) Follow(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if _, err := h.graph.Follow(c.UserContext(), userID, targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FollowResponse{Following: true})
}

func (h *SocialHandler) Unfollow(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.graph.Unfollow(c.UserContext(), userID, targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FollowResponse{Following: false})
}

func (h *SocialHandler) Block(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if _, err := h.visibility.Block(c.UserContext(), userID, targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BlockResponse{Blocked: true})
}

func (h *SocialHandler) Unblock(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.visibility.Unblock(c.UserContext(), userID, targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BlockResponse{Blocked: false})
}

func (h *SocialHandler) ListBlocked(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ids, err := h.visibility.ListBlocked(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return c.JSON(dto.BlockListResponse{Blocked: ids})
}

// Profile answers 404 for hidden users so a block is never revealed.
func (h *SocialHandler) Profile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	ctx := c.UserContext()
	visible, err := h.visibility.IsVisible(ctx, targetID, userID)
	if err != nil {
		return respondError(c, err)
	}
	if !visible {
		return respondError(c, services.ErrUserNotFound)
	}
	user, err := h.accounts.GetUser(ctx, targetID)
	if err != nil {
		return respondError(c, err)
	}
	followers, following, err := h.graph.Counts(ctx, targetID)
	if err != nil {
		return respondError(c, err)
	}
	isFollowing, err := h.graph.IsFollowing(ctx, userID, targetID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(dto.ProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Followers:   followers,
		Following:   following,
		IsFollowing: isFollowing,
	})
}

func (h *SocialHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.accounts.UpdatePreferences(c.UserContext(), userID, req.DisplayName, req.ShowNsfw)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
