// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"lokals/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client.
	CacheClient *redis.Client
	// DispatchCacheClient holds dispatch round state and the provider
	// request feeds while a booking is SEARCHING.
	DispatchCacheClient *redis.Client
	// IdempotencyCacheClient stores first-outcome records for command
	// replay deduplication.
	IdempotencyCacheClient *redis.Client
	// GeoCacheClient mirrors live provider positions in a Redis GEO set.
	GeoCacheClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// InitRedis initializes every logical Redis client the engine uses.
func InitRedis() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	DispatchCacheClient = newRedisClient(config.AppConfig.RedisDispatchDB)
	IdempotencyCacheClient = newRedisClient(config.AppConfig.RedisIdempotencyDB)
	GeoCacheClient = newRedisClient(config.AppConfig.RedisGeoDB)
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	}
	return CacheClient
}

// GetDispatchCacheClient returns the dispatch round state client.
func GetDispatchCacheClient() *redis.Client {
	if DispatchCacheClient == nil {
		DispatchCacheClient = newRedisClient(config.AppConfig.RedisDispatchDB)
	}
	return DispatchCacheClient
}

// GetIdempotencyCacheClient returns the idempotency record client.
func GetIdempotencyCacheClient() *redis.Client {
	if IdempotencyCacheClient == nil {
		IdempotencyCacheClient = newRedisClient(config.AppConfig.RedisIdempotencyDB)
	}
	return IdempotencyCacheClient
}

// GetGeoCacheClient returns the live provider position client.
func GetGeoCacheClient() *redis.Client {
	if GeoCacheClient == nil {
		GeoCacheClient = newRedisClient(config.AppConfig.RedisGeoDB)
	}
	return GeoCacheClient
}
