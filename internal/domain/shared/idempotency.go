package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a claimed key is remembered unless configured otherwise.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore hands out first-writer-wins claims on string keys. Order
// creation claims request Idempotency-Keys with it and event subscribers claim
// event ids.
type IdempotencyStore interface {
	// Claim stores value under key when the key is free or expired. Otherwise
	// claimed is false and existing is the value already held.
	Claim(ctx context.Context, key, value string, ttl time.Duration) (claimed bool, existing string, err error)

	// Release frees key after the guarded operation failed.
	Release(ctx context.Context, key string) error

	Close() error
}
