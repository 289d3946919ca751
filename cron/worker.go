package cron

import (
	"context"
	"log"
	"time"

	"parkly/config"
	"parkly/services/booking"
	"parkly/services/geofence"
	"parkly/services/resolver"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// Periodic task types.
const (
	TypeExpirePending = "booking:expire_pending"
	TypeSweepStalled  = "booking:sweep_stalled"
	TypeMarkStale     = "tracker:mark_stale"
)

// Sweep cadences.
const (
	expirePendingEvery = "@every 1m"
	sweepStalledEvery  = "@every 5m"
	markStaleEvery     = "@every 2m"
)

// InitSweepWorker runs the asynq worker and its periodic scheduler in the
// background. The sweeps drive every time-based transition: pending
// expiration, stalled-booking resolution, and stale tracker detection.
func InitSweepWorker(engine booking.BookingService, res resolver.Resolver, tracker *geofence.Tracker) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueue,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirePending, func(ctx context.Context, task *asynq.Task) error {
		_, err := engine.ExpirePending(ctx)
		return err
	})
	mux.HandleFunc(TypeSweepStalled, func(ctx context.Context, task *asynq.Task) error {
		_, err := res.SweepStalled(ctx)
		return err
	})
	mux.HandleFunc(TypeMarkStale, func(ctx context.Context, task *asynq.Task) error {
		_, err := tracker.MarkStaleSessions(ctx)
		return err
	})

	// Start Redis health monitor
	go monitorRedisConnection()

	go runScheduler(redisOpts)

	// Start async worker with retry logic
	go func() {
		log.Println("[SweepWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// runScheduler enqueues the periodic sweep tasks.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})

	entries := map[string]string{
		TypeExpirePending: expirePendingEvery,
		TypeSweepStalled:  sweepStalledEvery,
		TypeMarkStale:     markStaleEvery,
	}
	for taskType, spec := range entries {
		if _, err := scheduler.Register(spec, asynq.NewTask(taskType, nil)); err != nil {
			log.Fatalf("[SweepWorker] Failed to register %s: %v", taskType, err)
		}
	}

	if err := scheduler.Run(); err != nil {
		log.Fatalf("[SweepWorker] Scheduler stopped: %v", err)
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueue,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SweepWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
