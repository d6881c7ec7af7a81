package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"cantina/internal/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

// InitRedis connects to Redis. Redis only backs the advisory payment locks,
// so an unreachable instance degrades the service instead of killing it:
// callers get a nil client and skip the lock.
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unreachable, continuing without it: %v", err)
		return nil
	}

	RedisClient = client
	log.Println("Redis connected")
	return client
}
