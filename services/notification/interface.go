package notification

import (
	"context"
	"fmt"
	"time"

	"lokals/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NotificationService defines methods for sending FCM pushes.
type NotificationService interface {
	SendClientPush(ctx context.Context, clientID, title, body string, data map[string]string) error
	SendProviderPush(ctx context.Context, providerID, title, body string, data map[string]string) error
	RegisterDeviceToken(ctx context.Context, role, id, token string) error
}

const (
	clientTokenPrefix   = "fcm:client:"
	providerTokenPrefix = "fcm:provider:"
	tokenTTL            = 90 * 24 * time.Hour
)

// DefaultNotificationService is the production implementation. Device tokens
// are kept in Redis so a push target survives restarts without a user
// profile store.
type DefaultNotificationService struct {
	cache  *redis.Client
	logger *zap.Logger
}

func NewDefaultNotificationService(cache *redis.Client, logger *zap.Logger) *DefaultNotificationService {
	return &DefaultNotificationService{cache: cache, logger: logger}
}

// RegisterDeviceToken stores (or refreshes) the FCM token for an actor.
func (s *DefaultNotificationService) RegisterDeviceToken(ctx context.Context, role, id, token string) error {
	if token == "" {
		return utils.NewValidationError("device token is required")
	}
	key, err := tokenKey(role, id)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, token, tokenTTL).Err(); err != nil {
		return fmt.Errorf("failed to store device token for %s %s: %w", role, id, err)
	}
	return nil
}

// SendClientPush looks up the client's FCM token and sends a push. A missing
// token is a no-op: not every client keeps the app installed, and pushes are
// advisory next to the change stream.
func (s *DefaultNotificationService) SendClientPush(ctx context.Context, clientID, title, body string, data map[string]string) error {
	token, ok := s.resolveToken(ctx, clientTokenPrefix+clientID)
	if !ok {
		s.logger.Debug("notification: no device token for client, skipping push",
			zap.String("clientId", clientID))
		return nil
	}
	if data == nil {
		data = map[string]string{}
	}
	data["role"] = "client"

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message to client %s: %w", clientID, err)
	}
	return nil
}

// SendProviderPush sends a high-priority push; dispatch offers have a live
// deadline, so the message must break through doze mode.
func (s *DefaultNotificationService) SendProviderPush(ctx context.Context, providerID, title, body string, data map[string]string) error {
	token, ok := s.resolveToken(ctx, providerTokenPrefix+providerID)
	if !ok {
		s.logger.Debug("notification: no device token for provider, skipping push",
			zap.String("providerId", providerID))
		return nil
	}
	if data == nil {
		data = map[string]string{}
	}
	data["role"] = "provider"

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message to provider %s: %w", providerID, err)
	}
	return nil
}

func (s *DefaultNotificationService) resolveToken(ctx context.Context, key string) (string, bool) {
	token, err := s.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Warn("notification: token lookup failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return token, token != ""
}

func tokenKey(role, id string) (string, error) {
	switch role {
	case "client":
		return clientTokenPrefix + id, nil
	case "provider":
		return providerTokenPrefix + id, nil
	default:
		return "", utils.NewValidationError(fmt.Sprintf("unknown actor role %q", role))
	}
}
