package domain

import (
	"encoding/json"
	"maps"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry in a cart.
type LineItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Image     string
	Category  string
	// Extra holds persisted fields this version does not know about. They are
	// written back unchanged and ignored by every total.
	Extra map[string]json.RawMessage
}

// LineTotal returns unitPrice * quantity, unrounded.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a copy that shares no mutable state with li.
func (li LineItem) Clone() LineItem {
	if li.Extra != nil {
		li.Extra = maps.Clone(li.Extra)
	}
	return li
}

// NewLineItem builds a line item from a catalog product.
func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  quantity,
		Image:     p.Image,
		Category:  p.Category,
	}
}

// Snapshot is the cart contents plus the selected display currency. It is the
// value that gets persisted, emitted to subscribers and sent with an order.
type Snapshot struct {
	Items    []LineItem
	Currency string
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Currency: s.Currency, Items: make([]LineItem, len(s.Items))}
	for i, item := range s.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

// Subtotal returns the sum of unitPrice * quantity over all items, unrounded.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (s Snapshot) ItemCount() int {
	var count int
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the item with the given id, or -1.
func (s Snapshot) FindItemIndex(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart holds no items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
