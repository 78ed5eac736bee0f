package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		store, _ := newTestStore(t)

		claimed, existing, err := store.Claim(ctx, "k1", "order-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Empty(t, existing)
	})

	t.Run("second claim returns the holder", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, _, err := store.Claim(ctx, "k2", "order-1", time.Hour)
		require.NoError(t, err)

		claimed, existing, err := store.Claim(ctx, "k2", "order-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.Equal(t, "order-1", existing)
	})

	t.Run("expired key can be claimed again", func(t *testing.T) {
		store, now := newTestStore(t)

		_, _, err := store.Claim(ctx, "k3", "order-1", time.Minute)
		require.NoError(t, err)

		*now = now.Add(time.Minute)
		claimed, _, err := store.Claim(ctx, "k3", "order-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("released key can be claimed again", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, _, err := store.Claim(ctx, "k4", "order-1", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "k4"))

		claimed, _, err := store.Claim(ctx, "k4", "order-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("release of unknown key is a no-op", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.NoError(t, store.Release(ctx, "missing"))
	})
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	_, _, _ = store.Claim(ctx, "short-1", "a", time.Second)
	_, _, _ = store.Claim(ctx, "short-2", "b", time.Second)
	_, _, _ = store.Claim(ctx, "long", "c", time.Hour)
	assert.Equal(t, 3, store.Len())

	*now = now.Add(2 * time.Second)
	assert.Equal(t, 2, store.sweep())

	assert.Equal(t, 1, store.Len())
	claimed, existing, err := store.Claim(ctx, "long", "d", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "c", existing)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	const numGoroutines = 100

	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			claimed, _, err := store.Claim(ctx, "same-key", "v", time.Hour)
			results <- err == nil && claimed
		}()
	}

	winners := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one goroutine should claim the key")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	claimed, _, err := store.Claim(context.Background(), "after-close", "v", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}
