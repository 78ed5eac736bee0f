package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome of one delivery to a deduplicated handler.
type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// DeliveryStats is a snapshot of a DeliveryRecorder.
type DeliveryStats struct {
	Handled   int64 `json:"handled"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// DeliveryRecorder tallies outcomes in process and, when built with a meter,
// exports them as orderdesk_event_deliveries_total. One recorder may be
// shared by several handlers.
type DeliveryRecorder struct {
	handled, duplicate, failed atomic.Int64
	counter                    metric.Int64Counter
}

// NewDeliveryRecorder returns a recorder; a nil meter keeps the counts local.
func NewDeliveryRecorder(meter metric.Meter) (*DeliveryRecorder, error) {
	r := &DeliveryRecorder{}
	if meter == nil {
		return r, nil
	}
	counter, err := telemetry.EventDeliveries.Counter(meter)
	if err != nil {
		return nil, err
	}
	r.counter = counter
	return r, nil
}

func (r *DeliveryRecorder) record(ctx context.Context, handler string, o Outcome) {
	switch o {
	case OutcomeHandled:
		r.handled.Add(1)
	case OutcomeDuplicate:
		r.duplicate.Add(1)
	case OutcomeFailed:
		r.failed.Add(1)
	}
	if r.counter != nil {
		r.counter.Add(ctx, 1, metric.WithAttributes(
			telemetry.LabelHandler.String(handler),
			telemetry.LabelOutcome.String(string(o)),
		))
	}
}

func (r *DeliveryRecorder) Stats() DeliveryStats {
	return DeliveryStats{
		Handled:   r.handled.Load(),
		Duplicate: r.duplicate.Load(),
		Failed:    r.failed.Load(),
	}
}

// DedupConfig tunes an IdempotentHandler. Zero values are usable.
type DedupConfig struct {
	TTL      time.Duration // how long a handled event id is remembered; 0 means shared.DefaultIdempotencyTTL
	Disabled bool          // pass every delivery straight through
	Recorder *DeliveryRecorder
	Logger   *zap.Logger
}

// IdempotentHandler runs the wrapped handler at most once per event id. The id
// is claimed before the handler runs and released again when it fails, so a
// redelivery gets another attempt.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	cfg     DedupConfig
}

// NewIdempotentHandler wraps handler. name scopes the claimed keys, so two
// handlers receiving the same event each process it once.
func NewIdempotentHandler(name string, handler shared.EventHandler, store shared.IdempotencyStore, cfg DedupConfig) *IdempotentHandler {
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyTTL
	}
	if cfg.Recorder == nil {
		cfg.Recorder = &DeliveryRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &IdempotentHandler{name: name, handler: handler, store: store, cfg: cfg}
}

// Name is the key scope given to NewIdempotentHandler.
func (h *IdempotentHandler) Name() string {
	return h.name
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

func (h *IdempotentHandler) Recorder() *DeliveryRecorder {
	return h.cfg.Recorder
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.cfg.Disabled || h.store == nil {
		return h.deliver(ctx, event, "")
	}

	key := "event:" + h.name + ":" + event.EventID().String()
	claimed, _, err := h.store.Claim(ctx, key, event.EventType(), h.cfg.TTL)
	switch {
	case err != nil:
		// A store outage must not drop events; a duplicate is the lesser failure.
		h.cfg.Logger.Warn("Idempotency store unavailable, delivering anyway",
			zap.String("handler", h.name),
			zap.Stringer("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return h.deliver(ctx, event, "")
	case !claimed:
		h.cfg.Recorder.record(ctx, h.name, OutcomeDuplicate)
		h.cfg.Logger.Debug("Duplicate event skipped",
			zap.String("handler", h.name),
			zap.Stringer("event_id", event.EventID()),
		)
		return nil
	default:
		return h.deliver(ctx, event, key)
	}
}

// deliver runs the handler and, on failure, releases claimedKey if one was taken.
func (h *IdempotentHandler) deliver(ctx context.Context, event shared.DomainEvent, claimedKey string) error {
	err := h.handler.Handle(ctx, event)
	if err == nil {
		h.cfg.Recorder.record(ctx, h.name, OutcomeHandled)
		return nil
	}
	h.cfg.Recorder.record(ctx, h.name, OutcomeFailed)
	if claimedKey != "" {
		if relErr := h.store.Release(ctx, claimedKey); relErr != nil {
			h.cfg.Logger.Warn("Failed to release idempotency key",
				zap.String("key", claimedKey),
				zap.Error(relErr),
			)
		}
	}
	return err
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
