package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/songlist/editor/internal/infrastructure/config"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/ports"
)

const (
	redisConnectAttempts = 5
	redisRetryDelay      = 2 * time.Second
)

// RedisAPI is the subset of the redis client the repository uses
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisRepositoryImpl keeps the document under a single key
type RedisRepositoryImpl struct {
	client RedisAPI
	key    string
}

// NewRedisClient connects to redis, retrying with exponential backoff
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	delay := redisRetryDelay

	for attempt := 1; attempt <= redisConnectAttempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		err := client.Ping(ctx).Err()
		if err == nil {
			log.Infow("Redis connected", "addr", cfg.Addr, "db", cfg.DB)
			return client, nil
		}
		client.Close()

		log.Warnw("Redis connection failed", "addr", cfg.Addr, "attempt", attempt, "error", err)
		if attempt == redisConnectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("failed to connect to redis at %s after %d attempts", cfg.Addr, redisConnectAttempts)
}

// NewRedisRepository creates a key-value document repository
func NewRedisRepository(client RedisAPI, key string) *RedisRepositoryImpl {
	return &RedisRepositoryImpl{client: client, key: key}
}

func (r *RedisRepositoryImpl) Name() string {
	return "redis"
}

func (r *RedisRepositoryImpl) Read(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis key %s: %w", r.key, ports.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get key: %w", err)
	}

	return data, nil
}

func (r *RedisRepositoryImpl) Write(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return nil
}

func (r *RedisRepositoryImpl) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
