package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lokals/models"
	"lokals/utils"

	"github.com/go-redis/redis/v8"
)

// roundRetention keeps a round readable a little past its deadline so the
// expiry sweep and late provider reads still see it.
const roundRetention = 10 * time.Minute

// RoundStore holds the ephemeral broadcast state of an open search: the
// current round per booking and each provider's pending-request feed.
type RoundStore interface {
	SaveRound(ctx context.Context, r *models.DispatchRound) error
	// GetRound returns nil, nil when no round is open for the booking.
	GetRound(ctx context.Context, bookingID string) (*models.DispatchRound, error)
	DeleteRound(ctx context.Context, bookingID string) error

	AddProviderRequest(ctx context.Context, providerID, bookingID string, ttl time.Duration) error
	RemoveProviderRequest(ctx context.Context, providerID, bookingID string) error
	ListProviderRequests(ctx context.Context, providerID string) ([]string, error)
}

// RedisRoundStore keeps rounds as JSON values and provider feeds as sets,
// both bounded by TTL so abandoned state ages out on its own.
type RedisRoundStore struct {
	client *redis.Client
}

func NewRedisRoundStore(client *redis.Client) *RedisRoundStore {
	return &RedisRoundStore{client: client}
}

func roundKey(bookingID string) string {
	return utils.DispatchRoundPrefix + bookingID
}

func providerKey(providerID string) string {
	return utils.ProviderRequestsPrefix + providerID
}

func (s *RedisRoundStore) SaveRound(ctx context.Context, r *models.DispatchRound) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch round for booking %s: %w", r.BookingID, err)
	}
	ttl := time.Until(r.Deadline) + roundRetention
	if err := s.client.Set(ctx, roundKey(r.BookingID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save dispatch round for booking %s: %w", r.BookingID, err)
	}
	return nil
}

func (s *RedisRoundStore) GetRound(ctx context.Context, bookingID string) (*models.DispatchRound, error) {
	data, err := s.client.Get(ctx, roundKey(bookingID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dispatch round for booking %s: %w", bookingID, err)
	}
	var r models.DispatchRound
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("corrupt dispatch round for booking %s: %w", bookingID, err)
	}
	return &r, nil
}

func (s *RedisRoundStore) DeleteRound(ctx context.Context, bookingID string) error {
	return s.client.Del(ctx, roundKey(bookingID)).Err()
}

func (s *RedisRoundStore) AddProviderRequest(ctx context.Context, providerID, bookingID string, ttl time.Duration) error {
	key := providerKey(providerID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, bookingID)
	pipe.Expire(ctx, key, ttl+roundRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add booking %s to provider %s feed: %w", bookingID, providerID, err)
	}
	return nil
}

func (s *RedisRoundStore) RemoveProviderRequest(ctx context.Context, providerID, bookingID string) error {
	return s.client.SRem(ctx, providerKey(providerID), bookingID).Err()
}

func (s *RedisRoundStore) ListProviderRequests(ctx context.Context, providerID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, providerKey(providerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests for provider %s: %w", providerID, err)
	}
	return ids, nil
}
