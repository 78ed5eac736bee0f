package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyKeyPrefix = "orderdesk:idempotency:"
	defaultDialTimeout          = 5 * time.Second
)

// RedisConfig addresses one Redis server.
type RedisConfig struct {
	Addr        string // host:port
	Password    string
	DB          int
	DialTimeout time.Duration // bounds the initial ping; defaults to 5s
}

// DialRedis opens a client and pings it. The caller owns the client.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisIdempotencyStore shares claimed keys between replicas. It borrows the
// client and never closes it.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore namespaces keys under prefix, or under
// "orderdesk:idempotency:" when prefix is empty.
func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = defaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

// Claim is a single SET key value NX GET (Redis 7+): a nil reply means the key
// was free and is now ours, otherwise the reply is the current holder's value.
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	holder, err := s.client.SetArgs(ctx, s.prefix+key, value, redis.SetArgs{Mode: "NX", TTL: ttl, Get: true}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return true, "", nil
	case err != nil:
		return false, "", fmt.Errorf("claim %q: %w", key, err)
	default:
		return false, holder, nil
	}
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %q: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
