package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/service"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	maxProductNameLength = 200
	maxSKULength         = 64
)

// Product represents a supplier-provided catalog item.
// Stock and prices are expressed in BaseUOM. ConversionFactorToBase is the number of base
// units in one PACKAGE of this product.
type Product struct {
	shared.BaseAggregateRoot
	SupplierID             uuid.UUID
	Name                   string
	SKU                    *string
	BaseUOM                valueobject.UnitCode
	ConversionFactorToBase decimal.Decimal
	PricePerBaseUOM        decimal.Decimal
	IsActive               bool
}

// NewProduct creates a new active product owned by a supplier
func NewProduct(
	supplierID uuid.UUID,
	name string,
	sku string,
	baseUOM valueobject.UnitCode,
	conversionFactorToBase decimal.Decimal,
	pricePerBaseUOM decimal.Decimal,
) (*Product, error) {
	if supplierID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Supplier ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if !valueobject.IsBaseUnitCandidate(baseUOM) {
		return nil, shared.ErrInvalidInput.WithMessage("Base unit must be a supported unit: " + string(baseUOM))
	}
	if conversionFactorToBase.IsZero() {
		conversionFactorToBase = decimal.NewFromInt(1)
	}
	if !conversionFactorToBase.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("Conversion factor must be positive")
	}
	if err := validatePrice(pricePerBaseUOM); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(),
		SupplierID:             supplierID,
		Name:                   name,
		BaseUOM:                baseUOM,
		ConversionFactorToBase: conversionFactorToBase,
		PricePerBaseUOM:        pricePerBaseUOM,
		IsActive:               true,
	}
	if sku = strings.ToUpper(strings.TrimSpace(sku)); sku != "" {
		if len(sku) > maxSKULength {
			return nil, shared.ErrInvalidInput.WithMessage("SKU cannot exceed 64 characters")
		}
		product.SKU = &sku
	}

	product.Raise(NewProductCreatedEvent(product))

	return product, nil
}

// ToBaseQuantity converts a requested quantity into the product's base unit.
// PACKAGE uses the product's own conversion factor; every other unit goes through the
// static conversion table.
func (p *Product) ToBaseQuantity(conv *service.UnitConversionService, quantity decimal.Decimal, unit valueobject.UnitCode) (decimal.Decimal, error) {
	if unit == valueobject.UnitPackage {
		return quantity.Mul(p.ConversionFactorToBase), nil
	}
	return conv.ConvertToBase(quantity, unit, p.BaseUOM)
}

// AcceptsUnit reports whether quantities in unit can be ordered or stocked for this product
func (p *Product) AcceptsUnit(conv *service.UnitConversionService, unit valueobject.UnitCode) bool {
	return unit == valueobject.UnitPackage || conv.IsCompatible(unit, p.BaseUOM)
}

// UpdatePrice changes the price per base unit. Existing order lines keep the price they froze.
func (p *Product) UpdatePrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	if price.Equal(p.PricePerBaseUOM) {
		return nil
	}

	old := p.PricePerBaseUOM
	p.PricePerBaseUOM = price
	p.Changed(NewProductPriceChangedEvent(p, old))

	return nil
}

// Activate makes the product orderable again
func (p *Product) Activate() {
	if p.IsActive {
		return
	}
	p.IsActive = true
	p.Changed(NewProductStatusChangedEvent(p))
}

// Deactivate stops new orders for the product. Existing orders are unaffected.
func (p *Product) Deactivate() {
	if !p.IsActive {
		return
	}
	p.IsActive = false
	p.Changed(NewProductStatusChangedEvent(p))
}

// CanBeManagedBy returns true for the owning supplier and for admins
func (p *Product) CanBeManagedBy(actor shared.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsSupplier() && actor.ID == p.SupplierID
}

// SKUValue returns the SKU or an empty string
func (p *Product) SKUValue() string {
	if p.SKU == nil {
		return ""
	}
	return *p.SKU
}

func validateProductName(name string) error {
	if name == "" {
		return shared.ErrInvalidInput.WithMessage("Product name cannot be empty")
	}
	if len(name) > maxProductNameLength {
		return shared.ErrInvalidInput.WithMessage("Product name cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("Price cannot be negative")
	}
	return nil
}
