package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

const healthCheckInterval = time.Minute

// HealthStatus is the last observed state of the engine's backing stores.
type HealthStatus struct {
	Mongo     bool      `json:"mongo"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checked_at"`
}

var (
	healthMu     sync.RWMutex
	healthStatus HealthStatus
)

// GetHealthStatus returns the latest snapshot taken by the monitor.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return healthStatus
}

// StartHealthMonitor pings the shared Mongo and Redis clients once a minute
// and keeps the snapshot current.
func StartHealthMonitor(redisClients []*redis.Client, mongoClient *mongo.Client) {
	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		ctx := context.Background()
		for range ticker.C {
			snapshot := HealthStatus{CheckedAt: time.Now()}
			for _, client := range redisClients {
				snapshot.Redis = append(snapshot.Redis, client.Ping(ctx).Err() == nil)
			}
			snapshot.Mongo = mongoClient.Ping(ctx, nil) == nil

			healthMu.Lock()
			healthStatus = snapshot
			healthMu.Unlock()
		}
	}()
}
