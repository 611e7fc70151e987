package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// ErrDisabled is returned by reads when no redis address was configured.
var ErrDisabled = errors.New("cache not enabled")

// Client defines the interface for cache operations.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	Enabled() bool
	Ping(ctx context.Context) error
	Close() error
}

// RedisClient is a wrapper around the Redis client.
type RedisClient struct {
	client  *redis.Client
	enabled bool
}

// NewRedisClient creates a new Redis cache client.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		// Return disabled client if no address provided
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
	}, nil
}

// Wrap adapts an existing go-redis client.
func Wrap(client *redis.Client) *RedisClient {
	return &RedisClient{client: client, enabled: client != nil}
}

// Enabled reports whether a redis server is configured.
func (r *RedisClient) Enabled() bool {
	return r != nil && r.enabled
}

// Ping checks connectivity. A disabled client is always healthy.
func (r *RedisClient) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	return r.client.Ping(ctx).Err()
}

// Get retrieves a value from cache. Missing keys yield ErrMiss.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if !r.Enabled() {
		return "", ErrDisabled
	}

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

// Set stores a value in cache with expiration.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !r.Enabled() {
		return nil // Silently skip if cache is not enabled
	}

	return r.client.Set(ctx, key, value, expiration).Err()
}

// Exists checks if keys exist in cache.
func (r *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}

	return r.client.Exists(ctx, keys...).Result()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	if !r.Enabled() {
		return nil
	}

	return r.client.Close()
}
