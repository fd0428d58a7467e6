package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"lokals/utils"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore deduplicates command replays: the first caller reserves
// the key, does the work and records the outcome; replays read the recorded
// outcome back instead of redoing the work.
type IdempotencyStore interface {
	// Reserve claims the key for this attempt. A false return means the key
	// is already held; the recorded booking id (possibly empty while the
	// first attempt is still in flight) comes back with it.
	Reserve(ctx context.Context, key string) (bool, string, error)

	// Complete records the outcome of the first attempt.
	Complete(ctx context.Context, key, bookingID string) error

	// Release frees the key after a failed first attempt so the client can
	// retry.
	Release(ctx context.Context, key string) error
}

type idemRecord struct {
	BookingID string `json:"bookingId"`
}

// RedisIdempotencyStore backs the store with SETNX records under a TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func idemKey(key string) string {
	return utils.IdempotencyPrefix + key
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, string, error) {
	placeholder, _ := json.Marshal(idemRecord{})
	ok, err := s.client.SetNX(ctx, idemKey(key), placeholder, utils.IdempotencyTTL).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to reserve idempotency key %s: %w", key, err)
	}
	if ok {
		return true, "", nil
	}

	data, err := s.client.Get(ctx, idemKey(key)).Bytes()
	if err == redis.Nil {
		// The holder released between our SETNX and GET; treat as a fresh miss.
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to read idempotency record %s: %w", key, err)
	}
	var rec idemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, "", fmt.Errorf("corrupt idempotency record %s: %w", key, err)
	}
	return false, rec.BookingID, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, bookingID string) error {
	data, _ := json.Marshal(idemRecord{BookingID: bookingID})
	if err := s.client.Set(ctx, idemKey(key), data, utils.IdempotencyTTL).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency record %s: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idemKey(key)).Err()
}
