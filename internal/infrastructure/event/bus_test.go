package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	tests := []struct {
		name      string
		subscribe func(bus *InMemoryEventBus, h *testHandler)
		handler   *testHandler
		events    []shared.DomainEvent
		want      int
	}{
		{
			name:      "explicit types",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h, "OrderCreated") },
			handler:   newTestHandler(),
			events:    []shared.DomainEvent{newTestEvent("OrderCreated"), newTestEvent("StockChanged")},
			want:      1,
		},
		{
			name:      "handler's own types",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h) },
			handler:   newTestHandler("OrderCreated", "StockChanged"),
			events:    []shared.DomainEvent{newTestEvent("OrderCreated"), newTestEvent("StockChanged")},
			want:      2,
		},
		{
			name:      "wildcard",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h) },
			handler:   newTestHandler(),
			events:    []shared.DomainEvent{newTestEvent("OrderCreated"), newTestEvent("Anything")},
			want:      2,
		},
		{
			name:      "no match",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h, "ProductCreated") },
			handler:   newTestHandler(),
			events:    []shared.DomainEvent{newTestEvent("OrderCreated")},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(zap.NewNop())
			tt.subscribe(bus, tt.handler)

			require.NoError(t, bus.Publish(context.Background(), tt.events...))
			assert.Equal(t, tt.want, tt.handler.count())
		})
	}
}

func TestInMemoryEventBus_FailingHandlersAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler("OrderCreated")
	failing.err = errors.New("redis down")
	panicking := newTestHandler("OrderCreated")
	panicking.panicWith = "boom"
	healthy := newTestHandler("OrderCreated")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCreated")))
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, healthy.count())

	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].ContextMap()["error"], "handler panicked: boom")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newTestHandler("OrderCreated")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCreated")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCreated")))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("OrderCreated")
	bus.Subscribe(handler)
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("OrderCreated")))

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("OrderCreated")), ErrBusStopped)
	assert.Equal(t, 1, handler.count())

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("OrderCreated")))
	assert.Equal(t, 2, handler.count())
}

func TestInMemoryEventBus_LogsHandlerName(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	inner := newTestHandler("OrderCreated")
	inner.err = errors.New("broker unavailable")
	bus.Subscribe(NewIdempotentHandler("kafka", inner, nil, DedupConfig{}))
	bus.Subscribe(newTestHandler("OrderCreated"))

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCreated")))

	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kafka", entries[0].ContextMap()["handler"])
}
