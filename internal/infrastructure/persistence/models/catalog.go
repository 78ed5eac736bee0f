package models

import (
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	SupplierID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name                   string          `gorm:"type:varchar(200);not null"`
	SKU                    *string         `gorm:"column:sku;type:varchar(64);uniqueIndex:idx_products_sku"`
	BaseUOM                string          `gorm:"column:base_uom;type:varchar(20);not null"`
	ConversionFactorToBase decimal.Decimal `gorm:"type:numeric;not null;default:1"`
	PricePerBaseUOM        decimal.Decimal `gorm:"column:price_per_base_uom;type:numeric;not null;default:0"`
	IsActive               bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot:      m.root(),
		SupplierID:             m.SupplierID,
		Name:                   m.Name,
		SKU:                    m.SKU,
		BaseUOM:                valueobject.UnitCode(m.BaseUOM),
		ConversionFactorToBase: m.ConversionFactorToBase,
		PricePerBaseUOM:        m.PricePerBaseUOM,
		IsActive:               m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.setRoot(p.BaseAggregateRoot)
	m.SupplierID = p.SupplierID
	m.Name = p.Name
	m.SKU = p.SKU
	m.BaseUOM = p.BaseUOM.String()
	m.ConversionFactorToBase = p.ConversionFactorToBase
	m.PricePerBaseUOM = p.PricePerBaseUOM
	m.IsActive = p.IsActive
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
