package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	t.Run("typed and wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newTestHandler()
		wildcard := newTestHandler()
		r.Register(typed, "OrderCreated", "OrderStatusChanged")
		r.Register(wildcard)

		assert.Equal(t, []any{typed, wildcard}, toAny(r.GetHandlers("OrderCreated")))
		assert.Equal(t, []any{typed, wildcard}, toAny(r.GetHandlers("OrderStatusChanged")))
		assert.Equal(t, []any{wildcard}, toAny(r.GetHandlers("StockChanged")))
		assert.Equal(t, 2, r.Len())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "OrderCreated")
		r.Register(h, "OrderCreated")

		assert.Len(t, r.GetHandlers("OrderCreated"), 1)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("registering again widens the subscription", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "OrderCreated")
		r.Register(h, "StockChanged")

		assert.Len(t, r.GetHandlers("OrderCreated"), 1)
		assert.Len(t, r.GetHandlers("StockChanged"), 1)
		assert.Empty(t, r.GetHandlers("ProductCreated"))

		r.Register(h)
		r.Register(h, "OrderCreated")
		assert.Len(t, r.GetHandlers("ProductCreated"), 1, "a wildcard subscription stays wildcard")
	})

	t.Run("registration order is call order", func(t *testing.T) {
		r := NewHandlerRegistry()
		wildcard := newTestHandler()
		typed := newTestHandler()
		r.Register(wildcard)
		r.Register(typed, "OrderCreated")

		assert.Equal(t, []any{wildcard, typed}, toAny(r.GetHandlers("OrderCreated")))
	})

	t.Run("unregister removes every subscription", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		other := newTestHandler()
		r.Register(h, "OrderCreated", "StockChanged")
		r.Register(h)
		r.Register(other, "OrderCreated")

		r.Unregister(h)

		assert.Equal(t, []any{other}, toAny(r.GetHandlers("OrderCreated")))
		assert.Empty(t, r.GetHandlers("StockChanged"))
		assert.Equal(t, 1, r.Len())
	})
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
