// Package handler exposes the catalog and order services over HTTP JSON.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ExposeErrors adds the internal error text to 500 responses. Enabled
	// outside production.
	ExposeErrors bool
}

// Handler serves the /api routes, delegating to the domain services.
type Handler struct {
	products     *product.Service
	orders       *order.Service
	exposeErrors bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products *product.Service, orders *order.Service) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		exposeErrors: cfg.ExposeErrors,
	}
}

// Router registers every route on a new chi mux. Static order paths
// (email, number, admin) are matched before /api/orders/{orderId}.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.Home)

	r.Post("/api/products", h.CreateProduct)
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)
	r.Patch("/api/products/{id}", h.UpdateProduct)
	r.Delete("/api/products/{id}", h.DeleteProduct)

	r.Post("/api/orders", h.PlaceOrder)
	r.Get("/api/orders/email/{email}", h.ListCustomerOrders)
	r.Get("/api/orders/number/{orderNumber}", h.GetOrderByNumber)
	r.Get("/api/orders/admin/all", h.ListAllOrders)
	r.Patch("/api/orders/admin/{orderId}/status", h.UpdateOrderStatus)
	r.Patch("/api/orders/admin/{orderId}", h.UpdateOrder)
	r.Get("/api/orders/{orderId}", h.GetOrder)
	r.Patch("/api/orders/{orderId}/cancel", h.CancelOrder)

	return r
}

// Home answers the root path with a plain welcome line.
func (h *Handler) Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Welcome to Homepage of Ecommerce API"))
}
