package store

import (
	"context"
	"fmt"

	"redis-queue-executor/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and checks the connection before returning.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect %s: %w", cfg.RedisAddr, err)
	}

	return rdb, nil
}
