package router

import (
	"net/http"

	"github.com/orderdesk/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers mounted by the router
type Handlers struct {
	Product   *handler.ProductHandler
	Inventory *handler.InventoryHandler
	Order     *handler.OrderHandler
	System    *handler.SystemHandler
}

// DomainGroups is the route table of the versioned API.
func DomainGroups(h Handlers) []Group {
	return []Group{
		{
			Name:   "catalog",
			Prefix: "/products",
			Routes: []Route{
				{http.MethodPost, "", h.Product.Create},
				{http.MethodGet, "", h.Product.List},
				{http.MethodGet, "/:id", h.Product.GetByID},
				{http.MethodPatch, "/:id/price", h.Product.UpdatePrice},
				{http.MethodPatch, "/:id/active", h.Product.SetActive},
			},
			Groups: []Group{{
				Name:   "inventory",
				Prefix: "/:id/stock",
				Routes: []Route{
					{http.MethodGet, "", h.Inventory.GetInventory},
					{http.MethodGet, "/check", h.Inventory.CheckStock},
					{http.MethodPost, "/adjustments", h.Inventory.AdjustStock},
					{http.MethodGet, "/movements", h.Inventory.ListMovements},
				},
			}},
		},
		{
			Name:   "trade",
			Prefix: "/orders",
			Routes: []Route{
				{http.MethodPost, "", h.Order.CreateOrder},
				{http.MethodGet, "", h.Order.ListOrders},
				{http.MethodGet, "/:id", h.Order.GetOrder},
				{http.MethodGet, "/:id/history", h.Order.GetOrderHistory},
				{http.MethodPost, "/:id/status", h.Order.TransitionOrderStatus},
			},
		},
		{
			Name:   "system",
			Prefix: "/system",
			Routes: []Route{
				{http.MethodGet, "/info", h.System.GetSystemInfo},
				{http.MethodGet, "/ping", h.System.Ping},
			},
		},
	}
}
