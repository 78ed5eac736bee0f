package catalog

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/orderdesk/backend/internal/application/inventory"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	txScope        appinv.TransactionScope
	productRepo    catalog.ProductRepository
	eventPublisher shared.EventPublisher
	retry          appinv.RetryPolicy
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(txScope appinv.TransactionScope, productRepo catalog.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		txScope:     txScope,
		productRepo: productRepo,
		retry:       appinv.DefaultRetryPolicy(),
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetRetryPolicy overrides the conflict retry policy
func (s *ProductService) SetRetryPolicy(policy appinv.RetryPolicy) {
	s.retry = policy
}

// Create creates a product and its zero-stock inventory record in one transaction
func (s *ProductService) Create(ctx context.Context, actor shared.Actor, req CreateProductRequest) (*ProductResponse, error) {
	if err := actor.Require(shared.RoleSupplier, shared.RoleAdmin); err != nil {
		return nil, err
	}

	supplierID := actor.ID
	if actor.IsAdmin() {
		if req.SupplierID == nil || *req.SupplierID == uuid.Nil {
			return nil, shared.ErrInvalidInput.WithMessage("supplier_id is required when an admin creates a product")
		}
		supplierID = *req.SupplierID
	}

	baseUOM, err := valueobject.ParseUnitCode(req.BaseUOM)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	factor := decimal.Zero
	if req.ConversionFactorToBase != nil {
		factor = *req.ConversionFactorToBase
	}

	product, err := catalog.NewProduct(supplierID, req.Name, req.SKU, baseUOM, factor, req.PricePerBaseUOM)
	if err != nil {
		return nil, err
	}
	stock, err := inventory.NewInventory(product.ID, product.SupplierID)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if sku := product.SKUValue(); sku != "" {
			exists, err := repos.ProductRepo().ExistsBySKU(ctx, sku)
			if err != nil {
				return err
			}
			if exists {
				return shared.ErrAlreadyExists.WithMessage("Product SKU already exists").WithDetail("sku", sku)
			}
		}
		if err := repos.ProductRepo().Create(ctx, product); err != nil {
			return err
		}
		return repos.InventoryRepo().Create(ctx, stock)
	})
	if err != nil {
		return nil, err
	}

	appinv.PublishDomainEvents(ctx, s.eventPublisher, product)
	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("supplier_id", product.SupplierID.String()),
		zap.String("base_uom", product.BaseUOM.String()),
	)

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID retrieves a product. Buyers cannot see inactive products.
func (s *ProductService) GetByID(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !product.CanBeManagedBy(actor) {
		return nil, shared.ErrProductNotFound
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List lists products visible to the actor: buyers see active products, suppliers see
// their own, admins see everything
func (s *ProductService) List(ctx context.Context, actor shared.Actor, filter ProductListFilter) ([]ProductResponse, int64, error) {
	f := catalog.ProductFilter{Filter: shared.DefaultFilter()}
	f.Page = filter.Page
	f.PageSize = filter.PageSize
	f.Search = filter.Search
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Filter = f.Filter.Normalize()

	var requested *uuid.UUID
	if filter.SupplierID != "" {
		id, err := uuid.Parse(filter.SupplierID)
		if err != nil {
			return nil, 0, shared.ErrInvalidInput.WithMessage("Invalid supplier ID format")
		}
		requested = &id
	}

	switch actor.Role {
	case shared.RoleSupplier:
		id := actor.ID
		f.SupplierID = &id
	case shared.RoleAdmin:
		f.SupplierID = requested
	default:
		f.SupplierID = requested
		f.ActiveOnly = true
	}

	products, total, err := s.productRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// UpdatePrice changes a product's price. Existing order lines keep their frozen price.
func (s *ProductService) UpdatePrice(ctx context.Context, actor shared.Actor, productID uuid.UUID, req UpdatePriceRequest) (*ProductResponse, error) {
	return s.mutate(ctx, actor, productID, func(p *catalog.Product) error {
		return p.UpdatePrice(req.PricePerBaseUOM)
	})
}

// SetActive activates or deactivates a product
func (s *ProductService) SetActive(ctx context.Context, actor shared.Actor, productID uuid.UUID, active bool) (*ProductResponse, error) {
	return s.mutate(ctx, actor, productID, func(p *catalog.Product) error {
		if active {
			p.Activate()
		} else {
			p.Deactivate()
		}
		return nil
	})
}

func (s *ProductService) mutate(ctx context.Context, actor shared.Actor, productID uuid.UUID, fn func(p *catalog.Product) error) (*ProductResponse, error) {
	if err := actor.Require(shared.RoleSupplier, shared.RoleAdmin); err != nil {
		return nil, err
	}

	var product *catalog.Product
	err := appinv.RetryOnConflict(ctx, s.retry, s.logger, "update_product", func() error {
		p, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if !p.CanBeManagedBy(actor) {
			return shared.ErrForbidden.WithMessage("Only the owning supplier may change this product")
		}
		version := p.Version
		if err := fn(p); err != nil {
			return err
		}
		if p.Version != version {
			if err := s.productRepo.SaveWithLock(ctx, p); err != nil {
				return err
			}
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	appinv.PublishDomainEvents(ctx, s.eventPublisher, product)
	resp := ToProductResponse(product)
	return &resp, nil
}
