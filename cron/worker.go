package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"lokals/config"
	"lokals/services/dispatch"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitDispatchWorker runs the async dispatch worker in background.
func InitDispatchWorker(coord dispatch.Coordinator) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(dispatch.TypeDispatchSearch, handleSearchTask(coord))
	mux.HandleFunc(dispatch.TypeDispatchExpire, handleExpireTask(coord))

	go monitorRedisConnection()

	// Start async worker with retry logic.
	go func() {
		log.Println("[DispatchWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[DispatchWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[DispatchWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSearchTask(coord dispatch.Coordinator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p dispatch.SearchPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DispatchWorker] invalid search payload: %v", err)
			return err
		}
		return coord.StartSearch(ctx, p.BookingID)
	}
}

func handleExpireTask(coord dispatch.Coordinator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p dispatch.ExpirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DispatchWorker] invalid expire payload: %v", err)
			return err
		}
		return coord.ExpireWindow(ctx, p.BookingID)
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[DispatchWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
