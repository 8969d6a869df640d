package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	Feed          *handlers.FeedHandler
	Posts         *handlers.PostHandler
	Social        *handlers.SocialHandler
	Moderation    *handlers.ModerationHandler
	Notifications *handlers.NotificationHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	protected := api.Group("", middleware.JWTProtected(cfg))
	Protected(protected, h)

	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	Admin(admin, h)
}

// Protected registers routes for any signed-in user on r.
func Protected(r fiber.Router, h Handlers) {
	r.Post("/auth/logout", h.Auth.Logout)

	r.Get("/feed", h.Feed.Get)

	r.Post("/posts", h.Posts.Create)
	r.Delete("/posts/:id", h.Posts.Delete)
	r.Post("/posts/:id/like", h.Posts.Like)
	r.Post("/posts/:id/save", h.Posts.Save)
	r.Post("/posts/:id/comments", h.Posts.AddComment)
	r.Get("/posts/:id/comments", h.Posts.ListComments)

	r.Get("/users/:id", h.Social.Profile)
	r.Post("/users/:id/follow", h.Social.Follow)
	r.Delete("/users/:id/follow", h.Social.Unfollow)
	r.Post("/users/:id/block", h.Social.Block)
	r.Delete("/users/:id/block", h.Social.Unblock)
	r.Get("/blocks", h.Social.ListBlocked)
	r.Put("/me/preferences", h.Social.UpdatePreferences)

	r.Post("/reports", h.Moderation.CreateReport)

	r.Get("/notifications", h.Notifications.List)
	r.Get("/notifications/unread-count", h.Notifications.UnreadCount)
	r.Post("/notifications/read", h.Notifications.MarkRead)
}

// Admin registers the moderation console on r, which must already enforce
// AdminRequired.
func Admin(r fiber.Router, h Handlers) {
	r.Get("/reports", h.Moderation.ListReports)
	r.Get("/reports/:id", h.Moderation.GetReport)
	r.Post("/reports/:id/review", h.Moderation.Review)
	r.Post("/reports/:id/resolve", h.Moderation.Resolve)
}
