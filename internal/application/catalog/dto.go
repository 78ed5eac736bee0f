package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product.
// SupplierID is only honoured for admins; suppliers always create for themselves.
type CreateProductRequest struct {
	SupplierID             *uuid.UUID       `json:"supplier_id"`
	Name                   string           `json:"name" binding:"required,min=1,max=200"`
	SKU                    string           `json:"sku" binding:"max=64"`
	BaseUOM                string           `json:"base_uom" binding:"required,uom"`
	ConversionFactorToBase *decimal.Decimal `json:"conversion_factor_to_base" binding:"omitempty,decimal_positive"`
	PricePerBaseUOM        decimal.Decimal  `json:"price_per_base_uom" binding:"decimal_non_negative"`
}

// UpdatePriceRequest represents a request to change a product's price
type UpdatePriceRequest struct {
	PricePerBaseUOM decimal.Decimal `json:"price_per_base_uom" binding:"decimal_non_negative"`
}

// SetActiveRequest represents a request to activate or deactivate a product
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search     string `form:"search"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=name created_at price_per_base_uom"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                     uuid.UUID       `json:"id"`
	SupplierID             uuid.UUID       `json:"supplier_id"`
	Name                   string          `json:"name"`
	SKU                    string          `json:"sku,omitempty"`
	BaseUOM                string          `json:"base_uom"`
	ConversionFactorToBase decimal.Decimal `json:"conversion_factor_to_base"`
	PricePerBaseUOM        decimal.Decimal `json:"price_per_base_uom"`
	IsActive               bool            `json:"is_active"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	Version                int             `json:"version"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                     p.ID,
		SupplierID:             p.SupplierID,
		Name:                   p.Name,
		SKU:                    p.SKUValue(),
		BaseUOM:                p.BaseUOM.String(),
		ConversionFactorToBase: p.ConversionFactorToBase,
		PricePerBaseUOM:        p.PricePerBaseUOM,
		IsActive:               p.IsActive,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
		Version:                p.Version,
	}
}

// ToProductResponses converts a slice of domain Products to responses
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
