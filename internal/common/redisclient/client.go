// Package redisclient wraps go-redis connection setup, the way
// owl-common's redis package does.
package redisclient

import (
	"context"

	"github.com/numa1979/edge-room-monitor/internal/common/config"

	"github.com/go-redis/redis/v8"
)

func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
