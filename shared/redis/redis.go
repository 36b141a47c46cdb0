package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/pkg/resilience"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get for missing keys
var ErrNotFound = errors.New("redis: key not found")

// Options configures the Redis client
type Options struct {
	// URL is either host:port or a redis:// URL
	URL      string
	Password string
	DB       int
}

// RedisClient wraps go-redis with a circuit breaker so an unavailable
// Redis fails fast instead of stalling every request
type RedisClient struct {
	client  *redis.Client
	breaker *resilience.CircuitBreaker
}

// NewRedisClient creates a client for the given options
func NewRedisClient(opts Options, log *logger.Logger) (*RedisClient, error) {
	var redisOpts *redis.Options
	if strings.HasPrefix(opts.URL, "redis://") || strings.HasPrefix(opts.URL, "rediss://") {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, err
		}
		redisOpts = parsed
	} else {
		addr := opts.URL
		if addr == "" {
			addr = "localhost:6379"
		}
		redisOpts = &redis.Options{
			Addr:     addr,
			Password: opts.Password,
			DB:       opts.DB,
		}
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("redis")
	breakerCfg.Timeout = 2 * time.Second
	breakerCfg.RetryTimeout = 15 * time.Second

	return &RedisClient{
		client:  redis.NewClient(redisOpts),
		breaker: resilience.NewCircuitBreaker(breakerCfg, log),
	}, nil
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return r.client.Set(ctx, key, value, expiration).Err()
	})
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	var value string
	missing := false
	err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		v, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			missing = true
			return nil
		}
		value = v
		return err
	})
	if err != nil {
		return "", err
	}
	if missing {
		return "", ErrNotFound
	}
	return value, nil
}

// Exists reports whether key is present
func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		var err error
		n, err = r.client.Exists(ctx, key).Result()
		return err
	})
	return n > 0, err
}

func (r *RedisClient) Del(ctx context.Context, key string) error {
	return r.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return r.client.Del(ctx, key).Err()
	})
}

// Ping checks connectivity, bypassing the breaker so health checks see the real state
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connections
func (r *RedisClient) Close() error {
	return r.client.Close()
}
