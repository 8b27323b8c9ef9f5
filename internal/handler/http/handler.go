// Package http exposes the storefront cart over a JSON API.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Davidgwa1996/unidigitalcom/pkg/httpclient"
	"github.com/Davidgwa1996/unidigitalcom/pkg/httputil"
	"github.com/Davidgwa1996/unidigitalcom/pkg/pagination"
	"github.com/Davidgwa1996/unidigitalcom/pkg/validator"

	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/service"
)

// Handler serves the catalog, cart and checkout endpoints.
type Handler struct {
	cart       *service.CartService
	checkout   *service.CheckoutService
	currencies *domain.CurrencyTable
	logger     *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(cart *service.CartService, checkout *service.CheckoutService, currencies *domain.CurrencyTable, logger *slog.Logger) *Handler {
	return &Handler{cart: cart, checkout: checkout, currencies: currencies, logger: logger}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// decodeAndValidate decodes the body into dst and runs its validate tags.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.writeError(w, r, err)
		return false
	}
	if err := validator.Validate(dst); err != nil {
		h.writeError(w, r, err)
		return false
	}
	return true
}

// --- Catalog ---

// ListProducts handles GET /api/v1/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.cart.Products(r.Context(), catalog.Filter{
		Category: r.URL.Query().Get("category"),
		Page:     pagination.FromRequest(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.cart.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// ListCurrencies handles GET /api/v1/currencies
func (h *Handler) ListCurrencies(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"reference":  h.currencies.Reference(),
		"currencies": h.currencies.All(),
	})
}

// --- Cart ---

// GetCart handles GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.Cart(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// GetTotals handles GET /api/v1/cart/totals
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.Cart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view.Totals)
}

// GetCount handles GET /api/v1/cart/count. With ?product_id= the quantity of
// that product is included.
func (h *Handler) GetCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionIDFromContext(ctx)

	count, err := h.cart.ItemCount(ctx, sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := CountResponse{ItemCount: count}
	if pid := r.URL.Query().Get("product_id"); pid != "" {
		q, err := h.cart.QuantityOf(ctx, sid, pid)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.ProductID = pid
		resp.Quantity = &q
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// AddItem handles POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	qty, err := domain.ParseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.AddItem(r.Context(), sid, req.ProductID, qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// UpdateItem handles PUT /api/v1/cart/items/{id}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	qty, err := domain.ParseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.UpdateQuantity(r.Context(), sid, chi.URLParam(r, "id"), qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.RemoveItem(r.Context(), sid, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.Clear(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// SetCurrency handles PUT /api/v1/cart/currency
func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req SetCurrencyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sid := sessionIDFromContext(r.Context())
	view, err := h.cart.SetCurrency(r.Context(), sid, req.Currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(sid, view, h.currencies))
}

// --- Checkout ---

// Checkout handles POST /api/v1/checkout. An Idempotency-Key header is
// forwarded to the order API.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in service.CheckoutInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	conf, err := h.checkout.Checkout(r.Context(), sessionIDFromContext(r.Context()), in, r.Header.Get(httpclient.HeaderIdempotencyKey))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, conf)
}
