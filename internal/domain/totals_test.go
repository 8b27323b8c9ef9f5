package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func snapshotOf(currency string, items ...LineItem) Snapshot {
	return Snapshot{Items: items, Currency: currency}
}

func item(id, price string, qty int) LineItem {
	return LineItem{ID: id, Name: id, UnitPrice: dec(price), Quantity: qty}
}

func TestComputeTotals_FreeShippingAboveThreshold(t *testing.T) {
	s := snapshotOf("GBP", item("p1", "100.00", 1), item("p2", "49.99", 2))

	view := ComputeTotals(s, DefaultPricingPolicy(), DefaultCurrencies())

	assertMoney(t, "199.98", view.Reference.Subtotal)
	assertMoney(t, "20.00", view.Reference.Tax)
	assertMoney(t, "0", view.Reference.Shipping)
	assertMoney(t, "219.98", view.Reference.GrandTotal)
	assert.Equal(t, 3, view.Reference.ItemCount)
	assert.Equal(t, view.Reference, view.Display)
	assert.Equal(t, "GBP", view.Currency)
}

func TestComputeTotals_ShippingBelowThreshold(t *testing.T) {
	s := snapshotOf("GBP", item("p1", "10.00", 1))

	view := ComputeTotals(s, DefaultPricingPolicy(), DefaultCurrencies())

	assertMoney(t, "10.00", view.Reference.Subtotal)
	assertMoney(t, "1.00", view.Reference.Tax)
	assertMoney(t, "9.99", view.Reference.Shipping)
	assertMoney(t, "20.99", view.Reference.GrandTotal)
}

func TestComputeTotals_ThresholdIsInclusive(t *testing.T) {
	view := ComputeTotals(snapshotOf("GBP", item("p1", "50.00", 1)), DefaultPricingPolicy(), DefaultCurrencies())
	assertMoney(t, "0", view.Reference.Shipping)
	assertMoney(t, "55.00", view.Reference.GrandTotal)
}

func TestComputeTotals_EmptyCart(t *testing.T) {
	view := ComputeTotals(snapshotOf("GBP"), DefaultPricingPolicy(), DefaultCurrencies())

	assertMoney(t, "0", view.Reference.Subtotal)
	assertMoney(t, "0", view.Reference.Tax)
	assertMoney(t, "9.99", view.Reference.Shipping)
	assertMoney(t, "9.99", view.Reference.GrandTotal)
	assert.Equal(t, 0, view.Reference.ItemCount)

	noFee := DefaultPricingPolicy()
	noFee.FreeShippingThreshold = decimal.Zero
	view = ComputeTotals(snapshotOf("GBP"), noFee, DefaultCurrencies())
	assertMoney(t, "0", view.Reference.GrandTotal)
}

func TestComputeTotals_DisplayCurrencyRoundsOncePerFigure(t *testing.T) {
	s := snapshotOf("USD", item("p1", "100.00", 1), item("p2", "49.99", 2))

	view := ComputeTotals(s, DefaultPricingPolicy(), DefaultCurrencies())

	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "GBP", view.ReferenceCurrency)
	assertMoney(t, "1.27", view.Rate)
	// 253.9746, 20.00 * 1.27 and 279.3746 each rounded once.
	assertMoney(t, "253.97", view.Display.Subtotal)
	assertMoney(t, "25.40", view.Display.Tax)
	assertMoney(t, "0", view.Display.Shipping)
	assertMoney(t, "279.37", view.Display.GrandTotal)
	assertMoney(t, "219.98", view.Reference.GrandTotal)
}

func TestComputeTotals_HalfUpRounding(t *testing.T) {
	policy := PricingPolicy{TaxRate: dec("0.10"), FreeShippingThreshold: dec("0"), ShippingFee: dec("0")}

	view := ComputeTotals(snapshotOf("GBP", item("p1", "0.05", 1)), policy, DefaultCurrencies())
	assertMoney(t, "0.01", view.Reference.Tax) // 0.005 rounds up

	view = ComputeTotals(snapshotOf("GBP", item("p1", "0.15", 3)), policy, DefaultCurrencies())
	assertMoney(t, "0.45", view.Reference.Subtotal)
	assertMoney(t, "0.05", view.Reference.Tax) // 0.045 rounds up
}

func TestComputeTotals_UnknownCurrencyFallsBackToReference(t *testing.T) {
	view := ComputeTotals(snapshotOf("XYZ", item("p1", "10", 1)), DefaultPricingPolicy(), DefaultCurrencies())
	assert.Equal(t, "GBP", view.Currency)
	assert.Equal(t, view.Reference, view.Display)
}

func TestComputeTotals_SubtotalMatchesItems(t *testing.T) {
	items := []LineItem{item("a", "0.10", 3), item("b", "0.20", 1), item("c", "1234.56", 7)}
	s := snapshotOf("GBP", items...)

	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	view := ComputeTotals(s, DefaultPricingPolicy(), DefaultCurrencies())
	assert.True(t, Round2(sum).Equal(view.Reference.Subtotal))
	assertMoney(t, "8642.42", view.Reference.Subtotal)
}

func TestPricingPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPricingPolicy().Validate())

	for name, mutate := range map[string]func(*PricingPolicy){
		"tax":       func(p *PricingPolicy) { p.TaxRate = dec("-0.1") },
		"threshold": func(p *PricingPolicy) { p.FreeShippingThreshold = dec("-1") },
		"fee":       func(p *PricingPolicy) { p.ShippingFee = dec("-9.99") },
	} {
		t.Run(name, func(t *testing.T) {
			p := DefaultPricingPolicy()
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
