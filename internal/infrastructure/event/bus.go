package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop.
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus calls subscribers synchronously, in subscription order, on
// the publishing goroutine. Services publish only after their transaction has
// committed. Handler errors and panics are logged and contained: they reach
// neither the publisher nor the remaining handlers.
type InMemoryEventBus struct {
	subs    *HandlerRegistry
	log     *zap.Logger
	stopped atomic.Bool
}

// NewInMemoryEventBus returns a bus with no subscribers. A nil logger discards output.
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{subs: NewHandlerRegistry(), log: log}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	for _, ev := range events {
		b.deliver(ctx, ev)
	}
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, ev shared.DomainEvent) {
	handlers := b.subs.GetHandlers(ev.EventType())
	telemetry.AddEvent(ctx, "domain_event.published",
		telemetry.EventType(ev.EventType()),
		telemetry.EventID(ev.EventID()),
		attribute.Int("handlers", len(handlers)),
	)
	for _, h := range handlers {
		err := safeHandle(ctx, h, ev)
		if err == nil {
			continue
		}
		name := handlerName(h)
		telemetry.AddEvent(ctx, "domain_event.handler_failed",
			telemetry.EventType(ev.EventType()),
			attribute.String("handler", name),
		)
		b.log.Error("event handler failed",
			zap.String("handler", name),
			zap.String("event_type", ev.EventType()),
			zap.Stringer("event_id", ev.EventID()),
			zap.Error(err),
		)
	}
}

// Subscribe registers handler for eventTypes, or for its own EventTypes when
// none are given. A handler with no types at all receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.subs.Register(handler, eventTypes...)
	b.log.Debug("handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.subs.Unregister(handler)
}

// Start (re)opens the bus for publishing.
func (b *InMemoryEventBus) Start(context.Context) error {
	b.stopped.Store(false)
	b.log.Info("event bus started", zap.Int("handlers", b.subs.Len()))
	return nil
}

// Stop makes Publish fail with ErrBusStopped. Delivery is synchronous, so
// nothing is left in flight.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.stopped.Store(true)
	b.log.Info("event bus stopped")
	return nil
}

func safeHandle(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// handlerName prefers a handler's own Name and falls back to its type.
func handlerName(h shared.EventHandler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
