package testutil

import (
	"context"
	"sync"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// RecordingHandler keeps every event delivered to it, in order.
type RecordingHandler struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
}

// NewRecordingHandler subscribes to types, or to every event when none are given.
func NewRecordingHandler(types ...string) *RecordingHandler {
	return &RecordingHandler{types: types}
}

func (h *RecordingHandler) EventTypes() []string { return h.types }

func (h *RecordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	return nil
}

// Types lists the received event types in delivery order.
func (h *RecordingHandler) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.EventType())
	}
	return out
}

// For returns the events raised by one aggregate.
func (h *RecordingHandler) For(aggregateID string) []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []shared.DomainEvent
	for _, ev := range h.events {
		if ev.AggregateID().String() == aggregateID {
			out = append(out, ev)
		}
	}
	return out
}
