package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds the contact and delivery details collected at checkout.
type Customer struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required,min=1,max=500"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
}

// OrderLine is a line item as sent to the order API.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderRequest is the finalized cart handed to POST /orders. Items and totals
// are taken from the same snapshot so they always agree.
type OrderRequest struct {
	SessionID     string      `json:"session_id"`
	Items         []OrderLine `json:"items"`
	Currency      string      `json:"currency"`
	Totals        TotalsView  `json:"totals"`
	Customer      Customer    `json:"customer"`
	PaymentMethod string      `json:"payment_method"`
}

// NewOrderRequest builds an order request from a cart snapshot and its totals.
func NewOrderRequest(sessionID string, s Snapshot, totals TotalsView, customer Customer, paymentMethod string) OrderRequest {
	lines := make([]OrderLine, len(s.Items))
	for i, item := range s.Items {
		lines[i] = OrderLine{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: Round2(item.LineTotal()),
		}
	}
	return OrderRequest{
		SessionID:     sessionID,
		Items:         lines,
		Currency:      s.Currency,
		Totals:        totals,
		Customer:      customer,
		PaymentMethod: paymentMethod,
	}
}

// OrderConfirmation is returned by the order API once an order is accepted.
type OrderConfirmation struct {
	OrderID    string          `json:"order_id"`
	Status     string          `json:"status"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Currency   string          `json:"currency"`
	PlacedAt   time.Time       `json:"placed_at"`
}
