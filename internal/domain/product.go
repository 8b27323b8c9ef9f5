package domain

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// DefaultQuantity is used when an add request does not carry a quantity.
const DefaultQuantity = 1

// Product is a catalog descriptor, the input to adding an item to a cart.
// Prices are expressed in the reference currency.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	UnitPrice   decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	// Stock is a simple counter; a negative value means the catalog does not track stock.
	Stock int `json:"stock"`
}

// TracksStock reports whether the stock counter should be enforced.
func (p *Product) TracksStock() bool {
	return p.Stock >= 0
}

// Validate checks that the product can become a line item.
func (p *Product) Validate() error {
	if p.ID == "" {
		return InvalidProduct("product id is required")
	}
	if p.UnitPrice.IsNegative() {
		return InvalidProduct("unit price must not be negative")
	}
	return nil
}

// ParseQuantity converts a JSON number into a quantity. An empty number yields
// DefaultQuantity. Fractional, non-numeric or out-of-range values fail with
// InvalidQuantity; the sign is not checked here because update treats
// non-positive values as removal.
func ParseQuantity(n json.Number) (int, error) {
	if n == "" {
		return DefaultQuantity, nil
	}
	if v, err := n.Int64(); err == nil {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, InvalidQuantity("quantity is out of range")
		}
		return int(v), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, InvalidQuantity("quantity must be an integer")
	}
	if f != math.Trunc(f) {
		return 0, InvalidQuantity("quantity must be an integer")
	}
	// Integral values written with an exponent or trailing ".0".
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, InvalidQuantity("quantity is out of range")
	}
	return int(f), nil
}
