package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and timestamps.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh random ID and stamps both timestamps with the current time.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised since
// the aggregate was last published. A freshly created aggregate is at version 1.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns a new entity at version 1 with no pending events.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// Changed records one state change: it bumps Version, stamps UpdatedAt and queues event.
func (a *BaseAggregateRoot) Changed(event DomainEvent) {
	a.Version++
	a.UpdatedAt = time.Now()
	a.Raise(event)
}

// Raise queues event without counting a state change.
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// IncrementVersion bumps the version alone. Repositories compare it against the stored row.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// TakeEvents returns the queued events and empties the queue.
func (a *BaseAggregateRoot) TakeEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

// EventSource is implemented by every aggregate.
type EventSource interface {
	TakeEvents() []DomainEvent
}
