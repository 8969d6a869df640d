package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	pgLogHandler := logging.AttachDB(database.DB)

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Delivery sink: Redis pub/sub when configured, log-only otherwise
	var sink services.DeliverySink = services.LogSink{}
	var redisSink *services.RedisSink
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := services.NewRedisSink(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Error("redis unavailable, falling back to log sink", "error", err)
		} else {
			redisSink = rs
			sink = rs
			slog.Info("delivery sink connected", "sink", "redis")
		}
	}

	// Services
	accountService := services.NewAccountService(database.DB)
	authService := services.NewAuthService(database.DB, cfg)
	visibilityService := services.NewVisibilityService(database.DB)
	notificationService := services.NewNotificationService(database.DB, visibilityService, accountService, sink)
	graphService := services.NewGraphService(database.DB, visibilityService, notificationService)
	postService := services.NewPostService(database.DB, visibilityService, accountService, notificationService, services.NewContentFilter())
	feedService := services.NewFeedService(database.DB, graphService, visibilityService, accountService, services.FeedOptions{
		TrendingWindow: cfg.TrendingWindow,
		DefaultLimit:   cfg.FeedDefaultLimit,
		MaxLimit:       cfg.FeedMaxLimit,
	})
	moderationService := services.NewModerationService(database.DB, visibilityService, accountService, notificationService, sink, cfg.SuspensionPeriod())

	// Handlers
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Health:        handlers.NewHealthHandler(database.DB),
		Feed:          handlers.NewFeedHandler(feedService),
		Posts:         handlers.NewPostHandler(postService),
		Social:        handlers.NewSocialHandler(graphService, visibilityService, accountService),
		Moderation:    handlers.NewModerationHandler(moderationService),
		Notifications: handlers.NewNotificationHandler(notificationService),
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if redisSink != nil {
		if err := redisSink.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
