package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sobercast/sobercast/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// NewRedis builds a client for rc. It returns nil when no host is configured,
// and every caller treats a nil client as "Redis disabled".
func NewRedis(rc config.RedisConfig) *redis.Client {
	if rc.Host == "" {
		return nil
	}
	port := rc.Port
	if port == 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(rc.Host, strconv.Itoa(port)),
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	// ping only to surface misconfiguration early; callers fall back on errors
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping %s failed: %v", client.Options().Addr, err)
	}
	return client
}

// GetRedis returns a singleton Redis client based on loaded config.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = NewRedis(config.Get().Redis)
	})
	return redisClient
}
