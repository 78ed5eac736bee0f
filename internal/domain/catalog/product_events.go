package catalog

import (
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const AggregateTypeProduct = "Product"

const (
	EventTypeProductCreated       = "ProductCreated"
	EventTypeProductStatusChanged = "ProductStatusChanged"
	EventTypeProductPriceChanged  = "ProductPriceChanged"
)

// ProductRef identifies the product and its owning supplier in every product
// event. It is flattened into the serialized form.
type ProductRef struct {
	ProductID  uuid.UUID `json:"product_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

func refOf(p *Product) ProductRef {
	return ProductRef{ProductID: p.ID, SupplierID: p.SupplierID}
}

func productEvent(eventType string, p *Product) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, p.ID)
}

type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductRef
	Name    string `json:"name"`
	SKU     string `json:"sku,omitempty"`
	BaseUOM string `json:"base_uom"`
}

func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: productEvent(EventTypeProductCreated, p),
		ProductRef:      refOf(p),
		Name:            p.Name,
		SKU:             p.SKUValue(),
		BaseUOM:         p.BaseUOM.String(),
	}
}

// ProductStatusChangedEvent follows activation and deactivation.
type ProductStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductRef
	IsActive bool `json:"is_active"`
}

func NewProductStatusChangedEvent(p *Product) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		BaseDomainEvent: productEvent(EventTypeProductStatusChanged, p),
		ProductRef:      refOf(p),
		IsActive:        p.IsActive,
	}
}

// ProductPriceChangedEvent carries both prices per base unit. Orders already
// placed keep the price they captured.
type ProductPriceChangedEvent struct {
	shared.BaseDomainEvent
	ProductRef
	OldPrice decimal.Decimal `json:"old_price"`
	NewPrice decimal.Decimal `json:"new_price"`
}

func NewProductPriceChangedEvent(p *Product, oldPrice decimal.Decimal) *ProductPriceChangedEvent {
	return &ProductPriceChangedEvent{
		BaseDomainEvent: productEvent(EventTypeProductPriceChanged, p),
		ProductRef:      refOf(p),
		OldPrice:        oldPrice,
		NewPrice:        p.PricePerBaseUOM,
	}
}
