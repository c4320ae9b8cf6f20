package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/zarqash/internal/domain/order"
)

type placedOrderJSON struct {
	Order       orderJSON `json:"order"`
	OrderNumber string    `json:"orderNumber"`
}

type singleOrderJSON struct {
	Order orderJSON `json:"order"`
}

type cancelledOrderJSON struct {
	Order            orderJSON         `json:"order"`
	StockRestoration []restorationJSON `json:"stockRestoration"`
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in placeOrderInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Failed to create order")
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), in.toRequest())
	if err != nil {
		h.fail(w, r, err, "Failed to create order")
		return
	}
	writeData(w, http.StatusCreated, "Order created successfully", placedOrderJSON{
		Order:       toOrderJSON(res.Order, res.Products),
		OrderNumber: res.Order.Number,
	})
}

// ListCustomerOrders handles GET /api/orders/email/{email}.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if unescaped, err := url.PathUnescape(email); err == nil {
		email = unescaped
	}

	res, err := h.orders.ListByEmail(r.Context(), email, listParams(r))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch orders")
		return
	}
	writeData(w, http.StatusOK, "", toOrderListJSON(res))
}

// ListAllOrders handles GET /api/orders/admin/all.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.ListAll(r.Context(), listParams(r))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch orders")
		return
	}
	writeData(w, http.StatusOK, "", toOrderListJSON(res))
}

// GetOrder handles GET /api/orders/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch order")
		return
	}
	writeData(w, http.StatusOK, "", singleOrderJSON{Order: toOrderJSON(res.Order, res.Products)})
}

// GetOrderByNumber handles GET /api/orders/number/{orderNumber}.
func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")
	if unescaped, err := url.PathUnescape(number); err == nil {
		number = unescaped
	}

	res, err := h.orders.GetByNumber(r.Context(), number)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch order")
		return
	}
	writeData(w, http.StatusOK, "", singleOrderJSON{Order: toOrderJSON(res.Order, res.Products)})
}

// CancelOrder handles PATCH /api/orders/{orderId}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var in cancelInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Failed to cancel order")
		return
	}

	res, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "orderId"), in.CancelReason)
	if err != nil {
		h.fail(w, r, err, "Failed to cancel order")
		return
	}

	restored := make([]restorationJSON, len(res.Restorations))
	for i, rs := range res.Restorations {
		restored[i] = restorationJSON{
			Product:    rs.ProductID,
			DialColor:  rs.DialColor,
			StrapColor: rs.StrapColor,
			Quantity:   rs.Quantity,
			Outcome:    string(rs.Outcome),
		}
	}
	writeData(w, http.StatusOK, "Order cancelled successfully", cancelledOrderJSON{
		Order:            toOrderJSON(res.Order, res.Products),
		StockRestoration: restored,
	})
}

// UpdateOrderStatus handles PATCH /api/orders/admin/{orderId}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Failed to update order status")
		return
	}

	res, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), order.StatusUpdate{
		Status:            order.Status(in.Status),
		TrackingNumber:    in.TrackingNumber,
		EstimatedDelivery: in.EstimatedDelivery.ptr(),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to update order status")
		return
	}
	writeData(w, http.StatusOK, "Order status updated successfully", singleOrderJSON{
		Order: toOrderJSON(res.Order, res.Products),
	})
}

// UpdateOrder handles PATCH /api/orders/admin/{orderId}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var in orderPatchInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Failed to update order")
		return
	}

	res, err := h.orders.Update(r.Context(), chi.URLParam(r, "orderId"), in.toPatch())
	if err != nil {
		h.fail(w, r, err, "Failed to update order")
		return
	}
	writeData(w, http.StatusOK, "Order updated successfully", singleOrderJSON{
		Order: toOrderJSON(res.Order, res.Products),
	})
}

func listParams(r *http.Request) order.ListParams {
	q := r.URL.Query()
	return order.ListParams{
		Page:      leadingInt(q.Get("page")),
		Limit:     leadingInt(q.Get("limit")),
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}

// leadingInt parses the integer prefix of s ("20items" is 20). It returns nil
// when s does not start with a number.
func leadingInt(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}
