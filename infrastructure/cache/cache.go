package cache

import (
	"context"

	"media-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects a Redis client and verifies the connection. A nil client
// with error is returned when Redis is unreachable so callers can degrade.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
		return nil, err
	}
	return client, nil
}
