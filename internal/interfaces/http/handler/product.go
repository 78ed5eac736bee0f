package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Description  Suppliers create products for themselves; admins must pass supplier_id. A zero-stock inventory row is created with the product.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(SUPPLIER, ADMIN)
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// GetByID godoc
// @ID           getProduct
// @Summary      Get a product
// @Description  Buyers only see active products
// @Tags         products
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), actor, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Description  Buyers see active products, suppliers their own, admins everything
// @Tags         products
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        search query string false "Name or SKU contains"
// @Param        supplier_id query string false "Supplier filter (buyers, admins)" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field" Enums(name, created_at, price_per_base_uom)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	products, total, err := h.productService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, products, total, page, pageSize)
}

// UpdatePrice godoc
// @ID           updateProductPrice
// @Summary      Change a product's price
// @Description  Existing order lines keep the price they were created with
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(SUPPLIER, ADMIN)
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdatePriceRequest true "New price per base unit"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id}/price [patch]
func (h *ProductHandler) UpdatePrice(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var req catalogapp.UpdatePriceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdatePrice(c.Request.Context(), actor, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// SetActive godoc
// @ID           setProductActive
// @Summary      Activate or deactivate a product
// @Description  Inactive products cannot be ordered and are hidden from buyers
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(SUPPLIER, ADMIN)
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.SetActiveRequest true "Active flag"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id}/active [patch]
func (h *ProductHandler) SetActive(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var req catalogapp.SetActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.SetActive(c.Request.Context(), actor, productID, *req.IsActive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
