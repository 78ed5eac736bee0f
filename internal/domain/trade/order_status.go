package trade

import (
	"strings"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus normalizes a status string
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.IsValid()
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for FULFILLED and CANCELLED
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// StockEffect is the inventory side effect a transition requires
type StockEffect int

const (
	StockEffectNone StockEffect = iota
	StockEffectDeduct
	StockEffectRestore
)

// String returns a readable name of the effect
func (e StockEffect) String() string {
	switch e {
	case StockEffectDeduct:
		return "deduct"
	case StockEffectRestore:
		return "restore"
	}
	return "none"
}

type transitionKey struct {
	from OrderStatus
	to   OrderStatus
}

// Legal transitions and the stock effect each one triggers
var transitions = map[transitionKey]StockEffect{
	{OrderStatusPending, OrderStatusApproved}:   StockEffectDeduct,
	{OrderStatusPending, OrderStatusCancelled}:  StockEffectNone,
	{OrderStatusApproved, OrderStatusFulfilled}: StockEffectNone,
	{OrderStatusApproved, OrderStatusCancelled}: StockEffectRestore,
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	_, ok := transitions[transitionKey{s, target}]
	return ok
}

// TransitionEffect returns the stock effect of moving from one status to another.
// ok is false for illegal transitions.
func TransitionEffect(from, to OrderStatus) (effect StockEffect, ok bool) {
	effect, ok = transitions[transitionKey{from, to}]
	return effect, ok
}

// InvalidTransitionError builds INVALID_TRANSITION with the current and attempted status
func InvalidTransitionError(current, attempted OrderStatus) *shared.DomainError {
	return shared.ErrInvalidTransition.
		WithMessage("Cannot transition order from "+current.String()+" to "+attempted.String()).
		WithDetail("current", current.String()).
		WithDetail("attempted", attempted.String())
}
