package event

import (
	"context"
	"errors"
	"sync"

	"github.com/orderdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDispatchBuffer is the inbox size used when AsyncConfig.Buffer is not positive.
const DefaultDispatchBuffer = 1024

var (
	// ErrInboxFull is returned by Handle when the worker is too far behind.
	ErrInboxFull     = errors.New("event inbox full")
	ErrHandlerClosed = errors.New("event handler closed")
)

// AsyncConfig sizes the inbox. A nil Logger discards output.
type AsyncConfig struct {
	Buffer int
	Logger *zap.Logger
}

type delivery struct {
	ctx   context.Context
	event shared.DomainEvent
}

// AsyncHandler moves a slow subscriber off the publishing goroutine. Handle
// only enqueues; one worker goroutine feeds the inbox to the wrapped handler
// in order. Work runs under a context detached from the publisher's
// cancellation, so a request that ends after commit does not lose its events.
// When the inbox is full the event is refused with ErrInboxFull rather than
// blocking the publisher.
type AsyncHandler struct {
	inner shared.EventHandler
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan delivery
	done   chan struct{}
}

// NewAsyncHandler starts the worker; Close stops it.
func NewAsyncHandler(inner shared.EventHandler, cfg AsyncConfig) *AsyncHandler {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultDispatchBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &AsyncHandler{
		inner: inner,
		log:   cfg.Logger,
		inbox: make(chan delivery, cfg.Buffer),
		done:  make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *AsyncHandler) Name() string         { return handlerName(h.inner) }
func (h *AsyncHandler) EventTypes() []string { return h.inner.EventTypes() }

// Pending counts queued events not yet taken by the worker.
func (h *AsyncHandler) Pending() int { return len(h.inbox) }

func (h *AsyncHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHandlerClosed
	}
	select {
	case h.inbox <- delivery{ctx: context.WithoutCancel(ctx), event: ev}:
		return nil
	default:
		return ErrInboxFull
	}
}

func (h *AsyncHandler) run() {
	defer close(h.done)
	for d := range h.inbox {
		if err := safeHandle(d.ctx, h.inner, d.event); err != nil {
			h.log.Error("async event handler failed",
				zap.String("handler", h.Name()),
				zap.String("event_type", d.event.EventType()),
				zap.Stringer("event_id", d.event.EventID()),
				zap.Error(err),
			)
		}
	}
}

// Close refuses new events and waits until the worker has drained the inbox
// or ctx ends. It is safe to call more than once.
func (h *AsyncHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.inbox)
	}
	h.mu.Unlock()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		h.log.Warn("event inbox not drained before shutdown",
			zap.String("handler", h.Name()),
			zap.Int("pending", len(h.inbox)),
		)
		return ctx.Err()
	}
}

var _ shared.EventHandler = (*AsyncHandler)(nil)
