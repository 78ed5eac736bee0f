package inventory

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often an operation that lost a concurrency race is re-executed
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// RetryOnConflict runs fn and re-runs it with exponential backoff while it fails with a
// retryable error. Any other error stops immediately and is returned unchanged.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, logger *zap.Logger, operation string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0

	attempt := func() error {
		err := fn()
		if err == nil || shared.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		telemetry.AddEvent(ctx, "conflict_retry",
			attribute.String("operation", operation),
			attribute.Int64("wait_ms", wait.Milliseconds()),
		)
		if logger != nil {
			logger.Debug("retrying after concurrency conflict",
				zap.String("operation", operation),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
	}

	return backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(b, policy.MaxRetries), ctx), notify)
}
