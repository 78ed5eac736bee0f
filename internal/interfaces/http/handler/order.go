package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tradeapp "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
)

// maxIdempotencyKeyLength bounds the Idempotency-Key header
const maxIdempotencyKeyLength = 128

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	orderService *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder godoc
// @ID           createOrder
// @Summary      Place an order
// @Description  Buyers only. Quantities are converted to each product's base unit and prices are captured at creation. Stock is checked but not deducted until approval.
// @Description  A repeated request with the same Idempotency-Key returns the order created by the first one.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(BUYER)
// @Param        Idempotency-Key header string false "Client supplied retry key"
// @Param        request body tradeapp.CreateOrderRequest true "Order lines"
// @Success      201 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req tradeapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetOrder godoc
// @ID           getOrder
// @Summary      Get an order
// @Description  Buyers see their own orders, suppliers orders containing their products, admins everything
// @Tags         orders
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// GetOrderHistory godoc
// @ID           getOrderHistory
// @Summary      Get an order's status history
// @Tags         orders
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]tradeapp.OrderHistoryResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id}/history [get]
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id", "order")
	if !ok {
		return
	}

	history, err := h.orderService.GetOrderHistory(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// ListOrders godoc
// @ID           listOrders
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        status query string false "Status filter" Enums(PENDING, APPROVED, FULFILLED, CANCELLED)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field" Enums(created_at, order_number, total_amount)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter tradeapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// TransitionOrderStatus godoc
// @ID           transitionOrderStatus
// @Summary      Change an order's status
// @Description  PENDING to APPROVED deducts stock, APPROVED to CANCELLED restores it. Admins drive every transition; a buyer may only cancel their own pending order.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.TransitionOrderRequest true "Target status"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/status [post]
func (h *OrderHandler) TransitionOrderStatus(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id", "order")
	if !ok {
		return
	}
	var req tradeapp.TransitionOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.TransitionOrderStatus(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
