package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls how the Redis-backed store connects.
type RedisConfig struct {
	ConnectionURL  string        `env:"CF_REDIS_URL"`
	ConnectTimeout time.Duration `env:"CF_REDIS_CONNECT_TIMEOUT" envDefault:"5s"`
	KeyPrefix      string        `env:"CF_REDIS_KEY_PREFIX" envDefault:"cf:"`
}

// Redis stores values in a Redis instance. Intended for server-side
// hosts that embed the SDK and want queue snapshots to survive process
// replacement on the same backing store.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Storage = (*Redis)(nil)

// NewRedis connects to Redis using cfg and verifies the connection with
// a ping before returning the store.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return &Redis{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewRedisWithClient wraps an existing client, for hosts that already
// manage a Redis connection.
func NewRedisWithClient(client *redis.Client, keyPrefix string) (*Redis, error) {
	if client == nil {
		return nil, ErrStorageUnavailable
	}
	return &Redis{client: client, prefix: keyPrefix}, nil
}

// GetString returns the value stored for key, if present.
func (r *Redis) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(ErrReadFailed, err)
	}
	return val, true, nil
}

// SetString stores value under key without expiry; snapshot lifecycle is
// managed by the queue, not by TTL.
func (r *Redis) SetString(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// Remove deletes key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// Close releases the underlying client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
