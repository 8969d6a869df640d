package handlers

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.posts.CreatePost(c.UserContext(), userID, services.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageRef: req.ImageRef,
		Category: req.Category,
		Tags:     req.Tags,
		Nsfw:     req.Nsfw,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) Delete(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post ID")
	}

	if err := h.posts.DeletePost(c.UserContext(), userID, postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

func (h *PostHandler) Like(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post ID")
	}

	liked, count, err := h.posts.ToggleLike(c.UserContext(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.LikeResponse{Liked: liked, LikeCount: count})
}

func (h *PostHandler) Save(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post ID")
	}

	saved, err := h.posts.ToggleSave(c.UserContext(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SaveResponse{Saved: saved})
}

func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post ID")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := h.posts.AddComment(c.UserContext(), userID, postID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *PostHandler) ListComments(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post ID")
	}

	page, limit := pageParams(c, 20, 100)
	comments, hasMore, err := h.posts.ListComments(c.UserContext(), userID, postID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"page":     page,
		"limit":    limit,
		"has_more": hasMore,
	})
}
