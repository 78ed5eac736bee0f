package cache

import (
	"errors"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrRedisRequired is returned when Redis is mandatory but no client is configured.
var ErrRedisRequired = errors.New("redis is required for idempotency keys but is not configured")

// StoreOptions selects the idempotency backend.
type StoreOptions struct {
	// Client is the shared Redis client; nil selects the in-process store.
	Client    redis.UniversalClient
	KeyPrefix string

	// RequireRedis refuses the in-process fallback. Production sets it because
	// in-process keys are not shared between replicas.
	RequireRedis bool

	Logger *zap.Logger
}

// NewIdempotencyStore returns the store backing Idempotency-Key replays and
// event de-duplication.
func NewIdempotencyStore(opts StoreOptions) (shared.IdempotencyStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Client != nil {
		logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(opts.Client, opts.KeyPrefix), nil
	}
	if opts.RequireRedis {
		return nil, ErrRedisRequired
	}
	logger.Warn("Redis disabled, idempotency keys are kept in process and not shared between instances")
	return NewInMemoryIdempotencyStore(), nil
}
