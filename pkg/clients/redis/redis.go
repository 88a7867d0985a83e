// pkg/clients/redis/redis.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/go-redis/redis/v8"
)

var ErrKeyNotFound = errors.New("key not found")

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)
	MGet(ctx context.Context, keys ...string) ([]interface{}, error)
	// Watch runs fn in an optimistic transaction over keys. A write to any
	// watched key before EXEC fails it with redis.TxFailedErr.
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	client *redis.Client
}

func (r *redisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return result, err
}

func (r *redisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisClient) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return r.client.SAdd(ctx, key, members...).Err()
}

func (r *redisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *redisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *redisClient) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.client.MGet(ctx, keys...).Result()
}

func (r *redisClient) Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	return r.client.Watch(ctx, fn, keys...)
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

// Wrap adapts an already configured go-redis client.
func Wrap(client *redis.Client) RedisClient {
	return &redisClient{client: client}
}

func NewRedisClient(ctx context.Context, maxAttempts int, host, port, password string, db int) (RedisClient, string, error) {
	var client *redis.Client
	var err error

	addr := fmt.Sprintf("%s:%s", host, port)

	err = utils.DoWithRetry(func() error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return err
		}
		return nil
	}, maxAttempts, 5*time.Second)

	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, err)
	}

	version, err := client.Info(ctx, "server").Result()
	if err != nil {
		_ = client.Close()
		return nil, "", fmt.Errorf("failed to get Redis version: %w", err)
	}

	return &redisClient{client: client}, parseVersion(version), nil
}

// parseVersion picks redis_version out of an INFO server reply.
func parseVersion(info string) string {
	const field = "redis_version:"
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), field); ok {
			return v
		}
	}
	return "unknown"
}
