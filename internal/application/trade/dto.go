package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// CreateOrderItemInput represents one line in the create order request
type CreateOrderItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"decimal_positive"`
	Unit      string          `json:"unit" binding:"required,uom"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Items []CreateOrderItemInput `json:"items" binding:"required,min=1,max=100,dive"`
	Notes string                 `json:"notes" binding:"max=2000"`

	// IdempotencyKey comes from the Idempotency-Key header, not the body
	IdempotencyKey string `json:"-"`
}

// TransitionOrderRequest represents a request to move an order to another status
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED FULFILLED CANCELLED"`
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for order list
type OrderListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING APPROVED FULFILLED CANCELLED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at order_number total_amount"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	SupplierID         uuid.UUID       `json:"supplier_id"`
	ProductName        string          `json:"product_name"`
	QuantityRequested  decimal.Decimal `json:"quantity_requested"`
	RequestedUOM       string          `json:"requested_uom"`
	QuantityInBaseUOM  decimal.Decimal `json:"quantity_in_base_uom"`
	BaseUOM            string          `json:"base_uom"`
	UnitPriceInBaseUOM decimal.Decimal `json:"unit_price_in_base_uom"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	BuyerID     uuid.UUID           `json:"buyer_id"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Notes       string              `json:"notes,omitempty"`
	SupplierIDs []uuid.UUID         `json:"supplier_ids"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Version     int                 `json:"version"`
}

// OrderHistoryResponse represents one status change
type OrderHistoryResponse struct {
	ID         uuid.UUID `json:"id"`
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			SupplierID:         item.SupplierID,
			ProductName:        item.ProductName,
			QuantityRequested:  item.QuantityRequested,
			RequestedUOM:       item.RequestedUOM.String(),
			QuantityInBaseUOM:  item.QuantityInBaseUOM,
			BaseUOM:            item.BaseUOM.String(),
			UnitPriceInBaseUOM: item.UnitPriceInBaseUOM,
			LineTotal:          item.LineTotal,
		}
	}
	return OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount,
		Notes:       o.Notes,
		SupplierIDs: o.SupplierIDs(),
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Version:     o.Version,
	}
}

// ToOrderResponses converts a slice of domain Orders
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToOrderHistoryResponses converts status history entries
func ToOrderHistoryResponses(entries []trade.OrderStatusHistory) []OrderHistoryResponse {
	out := make([]OrderHistoryResponse, len(entries))
	for i, e := range entries {
		var from *string
		if e.FromStatus != nil {
			s := e.FromStatus.String()
			from = &s
		}
		out[i] = OrderHistoryResponse{
			ID:         e.ID,
			FromStatus: from,
			ToStatus:   e.ToStatus.String(),
			ActorID:    e.ActorID,
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}
