//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer backs the card cache in integration tests.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	client, url, err := connectRedis(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connect redis: %v", err)
	}
	return &RedisContainer{Container: container, URL: url, Client: client}
}

func connectRedis(ctx context.Context, container *tcredis.RedisContainer) (*redis.Client, string, error) {
	url, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("connection string: %w", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", url, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, "", fmt.Errorf("ping: %w", err)
	}
	return client, url, nil
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

// Keys lists keys matching pattern, e.g. "cardledger:card:*".
func (r *RedisContainer) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.Client.Keys(ctx, pattern).Result()
}
