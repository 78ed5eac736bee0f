package cache

import (
	"context"
	"sync"
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
)

const sweepInterval = 5 * time.Minute

type claim struct {
	value   string
	expires time.Time
}

func (c claim) liveAt(t time.Time) bool { return t.Before(c.expires) }

// InMemoryIdempotencyStore keeps claims in process memory. Claims are lost on
// restart and not shared between replicas, so it only suits a single instance
// and tests.
type InMemoryIdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]claim
	now    func() time.Time

	stop    context.CancelFunc
	stopped chan struct{}
}

// NewInMemoryIdempotencyStore starts a sweeper that drops expired claims until Close.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &InMemoryIdempotencyStore{
		claims:  make(map[string]claim),
		now:     time.Now,
		stop:    cancel,
		stopped: make(chan struct{}),
	}
	go s.sweepLoop(ctx, sweepInterval)
	return s
}

func (s *InMemoryIdempotencyStore) Claim(_ context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if held, ok := s.claims[key]; ok && held.liveAt(now) {
		return false, held.value, nil
	}
	s.claims[key] = claim{value: value, expires: now.Add(ttl)}
	return true, "", nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper and waits for it. Later calls return immediately.
func (s *InMemoryIdempotencyStore) Close() error {
	s.stop()
	<-s.stopped
	return nil
}

// Len counts stored claims, expired ones not yet swept included.
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *InMemoryIdempotencyStore) sweepLoop(ctx context.Context, every time.Duration) {
	defer close(s.stopped)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired claims and reports how many went.
func (s *InMemoryIdempotencyStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dropped := 0
	for key, c := range s.claims {
		if !c.liveAt(now) {
			delete(s.claims, key)
			dropped++
		}
	}
	return dropped
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
