package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	BuyerID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderNumber string           `gorm:"type:varchar(32);not null;uniqueIndex:idx_orders_order_number"`
	Status      string           `gorm:"type:varchar(20);not null;index"`
	TotalAmount decimal.Decimal  `gorm:"type:numeric;not null;default:0"`
	Notes       string           `gorm:"type:text"`
	Items       []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate.
// Items must have been preloaded.
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		BaseAggregateRoot: m.root(),
		BuyerID:           m.BuyerID,
		OrderNumber:       m.OrderNumber,
		Status:            trade.OrderStatus(m.Status),
		TotalAmount:       m.TotalAmount,
		Notes:             m.Notes,
		Items:             make([]trade.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order aggregate.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.setRoot(o.BaseAggregateRoot)
	m.BuyerID = o.BuyerID
	m.OrderNumber = o.OrderNumber
	m.Status = o.Status.String()
	m.TotalAmount = o.TotalAmount
	m.Notes = o.Notes
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(&o.Items[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order aggregate.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName        string          `gorm:"type:varchar(200);not null"`
	QuantityRequested  decimal.Decimal `gorm:"type:numeric;not null"`
	RequestedUOM       string          `gorm:"column:requested_uom;type:varchar(20);not null"`
	QuantityInBaseUOM  decimal.Decimal `gorm:"column:quantity_in_base_uom;type:numeric;not null"`
	BaseUOM            string          `gorm:"column:base_uom;type:varchar(20);not null"`
	UnitPriceInBaseUOM decimal.Decimal `gorm:"column:unit_price_in_base_uom;type:numeric;not null"`
	LineTotal          decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		ProductID:          m.ProductID,
		SupplierID:         m.SupplierID,
		ProductName:        m.ProductName,
		QuantityRequested:  m.QuantityRequested,
		RequestedUOM:       valueobject.UnitCode(m.RequestedUOM),
		QuantityInBaseUOM:  m.QuantityInBaseUOM,
		BaseUOM:            valueobject.UnitCode(m.BaseUOM),
		UnitPriceInBaseUOM: m.UnitPriceInBaseUOM,
		LineTotal:          m.LineTotal,
		CreatedAt:          m.CreatedAt,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem.
func OrderItemModelFromDomain(i *trade.OrderItem) OrderItemModel {
	return OrderItemModel{
		ID:                 i.ID,
		OrderID:            i.OrderID,
		ProductID:          i.ProductID,
		SupplierID:         i.SupplierID,
		ProductName:        i.ProductName,
		QuantityRequested:  i.QuantityRequested,
		RequestedUOM:       i.RequestedUOM.String(),
		QuantityInBaseUOM:  i.QuantityInBaseUOM,
		BaseUOM:            i.BaseUOM.String(),
		UnitPriceInBaseUOM: i.UnitPriceInBaseUOM,
		LineTotal:          i.LineTotal,
		CreatedAt:          i.CreatedAt,
	}
}

// OrderStatusHistoryModel is the persistence model for one status history entry.
type OrderStatusHistoryModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index:idx_order_status_history_order_created,priority:1"`
	FromStatus *string   `gorm:"type:varchar(20)"`
	ToStatus   string    `gorm:"type:varchar(20);not null"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`
	Reason     string    `gorm:"type:varchar(500)"`
	CreatedAt  time.Time `gorm:"not null;index:idx_order_status_history_order_created,priority:2"`
}

// TableName returns the table name for GORM
func (OrderStatusHistoryModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain history entry.
func (m *OrderStatusHistoryModel) ToDomain() trade.OrderStatusHistory {
	var from *trade.OrderStatus
	if m.FromStatus != nil {
		s := trade.OrderStatus(*m.FromStatus)
		from = &s
	}
	return trade.OrderStatusHistory{
		ID:         m.ID,
		OrderID:    m.OrderID,
		FromStatus: from,
		ToStatus:   trade.OrderStatus(m.ToStatus),
		ActorID:    m.ActorID,
		Reason:     m.Reason,
		CreatedAt:  m.CreatedAt,
	}
}

// OrderStatusHistoryModelFromDomain creates a new persistence model from a domain history entry.
func OrderStatusHistoryModelFromDomain(h *trade.OrderStatusHistory) *OrderStatusHistoryModel {
	var from *string
	if h.FromStatus != nil {
		s := h.FromStatus.String()
		from = &s
	}
	return &OrderStatusHistoryModel{
		ID:         h.ID,
		OrderID:    h.OrderID,
		FromStatus: from,
		ToStatus:   h.ToStatus.String(),
		ActorID:    h.ActorID,
		Reason:     h.Reason,
		CreatedAt:  h.CreatedAt,
	}
}

// OrderNumberSequenceModel holds the last issued order sequence per year.
type OrderNumberSequenceModel struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderNumberSequenceModel) TableName() string {
	return "order_number_sequences"
}
