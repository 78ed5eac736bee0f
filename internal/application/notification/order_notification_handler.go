package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// Kind identifies what a notification is about
type Kind string

const (
	KindNewOrder           Kind = "NEW_ORDER"
	KindOrderStatusChanged Kind = "ORDER_STATUS_CHANGED"
	KindStockChanged       Kind = "STOCK_CHANGED"
)

// Recipient is a room a notification is delivered to: a single user or every holder of a role
type Recipient struct {
	UserID *uuid.UUID  `json:"user_id,omitempty"`
	Role   shared.Role `json:"role,omitempty"`
}

// UserRecipient addresses one user
func UserRecipient(id uuid.UUID) Recipient {
	return Recipient{UserID: &id}
}

// RoleRecipient addresses every user holding a role
func RoleRecipient(role shared.Role) Recipient {
	return Recipient{Role: role}
}

// Room returns the room name of the recipient, e.g. "user:<id>" or "role:ADMIN"
func (r Recipient) Room() string {
	if r.UserID != nil {
		return "user:" + r.UserID.String()
	}
	return "role:" + string(r.Role)
}

// Notification is the message handed to a Notifier
type Notification struct {
	EventID    string            `json:"event_id"`
	Kind       Kind              `json:"kind"`
	Title      string            `json:"title"`
	Data       map[string]string `json:"data"`
	Recipients []Recipient       `json:"-"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notifier delivers notifications. Implementations can push to websockets, pub/sub, email.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// OrderNotificationHandler turns order and stock events into notifications routed to the
// buyer, every supplier on the order and the admin room
type OrderNotificationHandler struct {
	logger   *zap.Logger
	notifier Notifier
}

// NewOrderNotificationHandler creates a new handler for order lifecycle events
func NewOrderNotificationHandler(logger *zap.Logger) *OrderNotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderNotificationHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending notifications
func (h *OrderNotificationHandler) WithNotifier(notifier Notifier) *OrderNotificationHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderStatusChanged,
		inventory.EventTypeStockChanged,
	}
}

// Handle builds the notification for an event and hands it to the notifier.
// Delivery failures are logged and swallowed; they never affect the order workflow.
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, err := BuildNotification(event)
	if err != nil {
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
			zap.Error(err),
		)
		return err
	}

	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send notification",
			zap.String("event_id", n.EventID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Debug("notification sent",
		zap.String("event_id", n.EventID),
		zap.String("kind", string(n.Kind)),
		zap.Int("recipients", len(n.Recipients)),
	)
	return nil
}

// BuildNotification maps a domain event to its notification and recipients
func BuildNotification(event shared.DomainEvent) (Notification, error) {
	n := Notification{
		EventID:    event.EventID().String(),
		OccurredAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		n.Kind = KindNewOrder
		n.Title = "New order " + e.OrderNumber
		n.Data = map[string]string{
			"order_id":     e.OrderID.String(),
			"order_number": e.OrderNumber,
			"buyer_id":     e.BuyerID.String(),
			"total_amount": e.TotalAmount.String(),
			"item_count":   fmt.Sprintf("%d", e.ItemCount),
		}
		n.Recipients = orderRecipients(e.BuyerID, e.SupplierIDs)

	case *trade.OrderStatusChangedEvent:
		n.Kind = KindOrderStatusChanged
		n.Title = fmt.Sprintf("Order %s is now %s", e.OrderNumber, e.ToStatus)
		n.Data = map[string]string{
			"order_id":     e.OrderID.String(),
			"order_number": e.OrderNumber,
			"from_status":  e.FromStatus.String(),
			"to_status":    e.ToStatus.String(),
			"actor_id":     e.ActorID.String(),
			"actor_role":   e.ActorRole.String(),
		}
		if e.Reason != "" {
			n.Data["reason"] = e.Reason
		}
		n.Recipients = orderRecipients(e.BuyerID, e.SupplierIDs)

	case *inventory.StockChangedEvent:
		n.Kind = KindStockChanged
		n.Title = "Stock changed"
		n.Data = map[string]string{
			"product_id":    e.ProductID.String(),
			"old_qty":       e.OldQty.String(),
			"new_qty":       e.NewQty.String(),
			"movement_type": string(e.MovementType),
		}
		if e.Reason != "" {
			n.Data["reason"] = e.Reason
		}
		n.Recipients = []Recipient{UserRecipient(e.SupplierID), RoleRecipient(shared.RoleAdmin)}

	default:
		return Notification{}, fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	return n, nil
}

func orderRecipients(buyerID uuid.UUID, supplierIDs []uuid.UUID) []Recipient {
	out := make([]Recipient, 0, len(supplierIDs)+2)
	out = append(out, UserRecipient(buyerID))
	for _, id := range supplierIDs {
		out = append(out, UserRecipient(id))
	}
	return append(out, RoleRecipient(shared.RoleAdmin))
}

// Ensure OrderNotificationHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderNotificationHandler)(nil)

// LoggingNotifier is a simple notifier that logs notifications.
// Used when no pub/sub backend is configured.
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a new logging notifier
func NewLoggingNotifier(logger *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{
		logger: logger,
	}
}

// Notify logs the notification once per recipient room
func (n *LoggingNotifier) Notify(ctx context.Context, notification Notification) error {
	for _, r := range notification.Recipients {
		n.logger.Info("notification",
			zap.String("room", r.Room()),
			zap.String("kind", string(notification.Kind)),
			zap.String("title", notification.Title),
			zap.String("event_id", notification.EventID),
		)
	}
	return nil
}

// Ensure LoggingNotifier implements Notifier
var _ Notifier = (*LoggingNotifier)(nil)
