package http

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/Davidgwa1996/unidigitalcom/internal/cartstore"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// --- Request DTOs ---

// AddItemRequest is the body of POST /api/v1/cart/items. A missing
// quantity adds one unit.
type AddItemRequest struct {
	ProductID string      `json:"product_id" validate:"required,max=128"`
	Quantity  json.Number `json:"quantity"`
}

// UpdateQuantityRequest is the body of PUT /api/v1/cart/items/{id}.
type UpdateQuantityRequest struct {
	Quantity json.Number `json:"quantity" validate:"required"`
}

// SetCurrencyRequest is the body of PUT /api/v1/cart/currency.
type SetCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,max=8"`
}

// --- Response DTOs ---

// ItemResponse is one cart line. Display figures are in the cart currency.
type ItemResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
	DisplayUnitPrice decimal.Decimal `json:"display_unit_price"`
	DisplayLineTotal decimal.Decimal `json:"display_line_total"`
	Image            string          `json:"image,omitempty"`
	Category         string          `json:"category,omitempty"`
}

// CartResponse is the cart contents with its totals.
type CartResponse struct {
	SessionID string            `json:"session_id"`
	Items     []ItemResponse    `json:"items"`
	Currency  string            `json:"currency"`
	ItemCount int               `json:"item_count"`
	Totals    domain.TotalsView `json:"totals"`
	Formatted FormattedTotals   `json:"formatted"`
}

// FormattedTotals are the display totals rendered with the currency symbol.
type FormattedTotals struct {
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Shipping   string `json:"shipping"`
	GrandTotal string `json:"grand_total"`
}

// CountResponse answers GET /api/v1/cart/count.
type CountResponse struct {
	ItemCount int    `json:"item_count"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  *int   `json:"quantity,omitempty"`
}

func newCartResponse(sessionID string, v cartstore.View, currencies *domain.CurrencyTable) CartResponse {
	rate := v.Totals.Rate
	items := make([]ItemResponse, len(v.Snapshot.Items))
	for i, item := range v.Snapshot.Items {
		line := item.LineTotal()
		items[i] = ItemResponse{
			ID:               item.ID,
			Name:             item.Name,
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
			LineTotal:        domain.Round2(line),
			DisplayUnitPrice: domain.Round2(item.UnitPrice.Mul(rate)),
			DisplayLineTotal: domain.Round2(line.Mul(rate)),
			Image:            item.Image,
			Category:         item.Category,
		}
	}

	code := v.Totals.Currency
	d := v.Totals.Display
	return CartResponse{
		SessionID: sessionID,
		Items:     items,
		Currency:  v.Snapshot.Currency,
		ItemCount: v.Totals.Reference.ItemCount,
		Totals:    v.Totals,
		Formatted: FormattedTotals{
			Subtotal:   currencies.Format(d.Subtotal, code),
			Tax:        currencies.Format(d.Tax, code),
			Shipping:   currencies.Format(d.Shipping, code),
			GrandTotal: currencies.Format(d.GrandTotal, code),
		},
	}
}
