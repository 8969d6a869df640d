package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DeliverySink hands persisted notifications and moderation requests to the
// push/poll layer. Callers never block on it and never roll back on failure.
type DeliverySink interface {
	Deliver(ctx context.Context, n *models.Notification) error
	RequestIdentityVerification(ctx context.Context, userID, reportID uuid.UUID) error
}

const identityRequestChannel = "moderation:identity_requests"

func notificationChannel(recipientID uuid.UUID) string {
	return "notifications:" + recipientID.String()
}

// RedisSink publishes to Redis pub/sub; the realtime gateway subscribes.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink connects using a redis:// URL.
func NewRedisSink(ctx context.Context, url string) (*RedisSink, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisSink{client: client}, nil
}

func (s *RedisSink) Deliver(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, notificationChannel(n.RecipientID), payload).Err()
}

func (s *RedisSink) RequestIdentityVerification(ctx context.Context, userID, reportID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{
		"user_id":   userID.String(),
		"report_id": reportID.String(),
	})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, identityRequestChannel, payload).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

// LogSink is used when no Redis is configured. Clients fall back to polling.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, n *models.Notification) error {
	slog.Debug("notification ready for polling", "notification_id", n.ID, "user_id", n.RecipientID.String())
	return nil
}

func (LogSink) RequestIdentityVerification(_ context.Context, userID, reportID uuid.UUID) error {
	slog.Info("identity verification requested", "user_id", userID.String(), "report_id", reportID, "action", "request_id")
	return nil
}
