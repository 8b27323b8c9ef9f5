package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Round2 rounds half-up to two decimal places. Amounts in this package are
// never negative, so half-away-from-zero and half-up agree.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PricingPolicy holds the tax and shipping configuration.
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricingPolicy returns a 10% tax rate, free shipping from 50.00 and a 9.99 fee.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.RequireFromString("50"),
		ShippingFee:           decimal.RequireFromString("9.99"),
	}
}

// Validate rejects negative policy values.
func (p PricingPolicy) Validate() error {
	if p.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	if p.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must not be negative")
	}
	if p.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee must not be negative")
	}
	return nil
}

// Totals are the derived figures of a cart in a single currency.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemCount  int             `json:"item_count"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// TotalsView carries the reference-currency totals and the same figures
// converted to the display currency.
type TotalsView struct {
	ReferenceCurrency string          `json:"reference_currency"`
	Reference         Totals          `json:"reference"`
	Currency          string          `json:"currency"`
	Rate              decimal.Decimal `json:"rate"`
	Display           Totals          `json:"display"`
}

// rawTotals are the unrounded reference figures that both views are derived from.
type rawTotals struct {
	subtotal   decimal.Decimal
	tax        decimal.Decimal
	shipping   decimal.Decimal
	grandTotal decimal.Decimal
}

func (p PricingPolicy) raw(subtotal decimal.Decimal) rawTotals {
	tax := Round2(subtotal.Mul(p.TaxRate))
	shipping := p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return rawTotals{
		subtotal:   subtotal,
		tax:        tax,
		shipping:   shipping,
		grandTotal: subtotal.Add(tax).Add(shipping),
	}
}

// Compute returns the reference-currency totals for a subtotal and item count.
func (p PricingPolicy) Compute(subtotal decimal.Decimal, itemCount int) Totals {
	r := p.raw(subtotal)
	return Totals{
		Subtotal:   Round2(r.subtotal),
		ItemCount:  itemCount,
		Tax:        r.tax,
		Shipping:   Round2(r.shipping),
		GrandTotal: Round2(r.grandTotal),
	}
}

// ComputeTotals derives the totals of a snapshot. It is a pure function: the
// subtotal is summed fresh from the items on every call and every figure is
// rounded exactly once, in reference and display currency independently.
func ComputeTotals(s Snapshot, policy PricingPolicy, currencies *CurrencyTable) TotalsView {
	subtotal := s.Subtotal()
	itemCount := s.ItemCount()
	r := policy.raw(subtotal)

	view := TotalsView{
		ReferenceCurrency: currencies.Reference(),
		Reference:         policy.Compute(subtotal, itemCount),
		Currency:          currencies.Reference(),
		Rate:              decimal.NewFromInt(1),
	}

	c, ok := currencies.Lookup(s.Currency)
	if !ok {
		view.Display = view.Reference
		return view
	}

	view.Currency = c.Code
	view.Rate = c.Rate
	view.Display = Totals{
		Subtotal:   Round2(r.subtotal.Mul(c.Rate)),
		ItemCount:  itemCount,
		Tax:        Round2(r.tax.Mul(c.Rate)),
		Shipping:   Round2(r.shipping.Mul(c.Rate)),
		GrandTotal: Round2(r.grandTotal.Mul(c.Rate)),
	}
	return view
}
