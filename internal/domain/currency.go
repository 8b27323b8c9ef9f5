package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ReferenceCurrency is the currency every stored price is expressed in.
const ReferenceCurrency = "GBP"

// Currency is one entry of the closed display-currency table. Rate is the
// number of units of this currency per one unit of the reference currency.
type Currency struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"`
}

// CurrencyTable is a closed, read-only set of supported currencies.
type CurrencyTable struct {
	reference string
	byCode    map[string]Currency
	order     []string
}

func mustRate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultCurrencies returns the storefront's static rate table.
func DefaultCurrencies() *CurrencyTable {
	t, err := NewCurrencyTable(ReferenceCurrency, []Currency{
		{Code: "GBP", Name: "British Pound", Symbol: "£", Rate: mustRate("1")},
		{Code: "USD", Name: "US Dollar", Symbol: "$", Rate: mustRate("1.27")},
		{Code: "EUR", Name: "Euro", Symbol: "€", Rate: mustRate("1.17")},
		{Code: "CAD", Name: "Canadian Dollar", Symbol: "CA$", Rate: mustRate("1.71")},
		{Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Rate: mustRate("1.92")},
		{Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Rate: mustRate("186.5")},
		{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥", Rate: mustRate("9.12")},
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹", Rate: mustRate("105.8")},
		{Code: "NGN", Name: "Nigerian Naira", Symbol: "₦", Rate: mustRate("1602.3")},
		{Code: "ZAR", Name: "South African Rand", Symbol: "R", Rate: mustRate("23.8")},
		{Code: "BRL", Name: "Brazilian Real", Symbol: "R$", Rate: mustRate("6.31")},
		{Code: "MXN", Name: "Mexican Peso", Symbol: "$", Rate: mustRate("21.4")},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// NewCurrencyTable builds a table. The reference currency must be present with rate 1
// and every rate must be positive.
func NewCurrencyTable(reference string, currencies []Currency) (*CurrencyTable, error) {
	t := &CurrencyTable{
		reference: reference,
		byCode:    make(map[string]Currency, len(currencies)),
		order:     make([]string, 0, len(currencies)),
	}
	for _, c := range currencies {
		if c.Code == "" {
			return nil, fmt.Errorf("currency code is required")
		}
		if _, dup := t.byCode[c.Code]; dup {
			return nil, fmt.Errorf("duplicate currency %s", c.Code)
		}
		if !c.Rate.IsPositive() {
			return nil, fmt.Errorf("currency %s: rate must be positive", c.Code)
		}
		t.byCode[c.Code] = c
		t.order = append(t.order, c.Code)
	}
	ref, ok := t.byCode[reference]
	if !ok {
		return nil, fmt.Errorf("reference currency %s missing from table", reference)
	}
	if !ref.Rate.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("reference currency %s must have rate 1", reference)
	}
	return t, nil
}

// WithRates returns a copy of the table with the given rates replaced. The table
// stays closed: an override for a code outside it is an error.
func (t *CurrencyTable) WithRates(overrides map[string]decimal.Decimal) (*CurrencyTable, error) {
	currencies := t.All()
	codes := make([]string, 0, len(overrides))
	for code := range overrides {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if _, ok := t.byCode[code]; !ok {
			return nil, fmt.Errorf("rate override for unknown currency %s", code)
		}
	}
	for i := range currencies {
		if rate, ok := overrides[currencies[i].Code]; ok {
			currencies[i].Rate = rate
		}
	}
	return NewCurrencyTable(t.reference, currencies)
}

// Reference returns the reference currency code.
func (t *CurrencyTable) Reference() string {
	return t.reference
}

// Lookup returns the currency for code.
func (t *CurrencyTable) Lookup(code string) (Currency, bool) {
	c, ok := t.byCode[code]
	return c, ok
}

// Supports reports whether code is in the table.
func (t *CurrencyTable) Supports(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

// All returns the table entries in declaration order.
func (t *CurrencyTable) All() []Currency {
	out := make([]Currency, 0, len(t.order))
	for _, code := range t.order {
		out = append(out, t.byCode[code])
	}
	return out
}

// Convert multiplies a reference amount by the rate of code and rounds the
// result once. Unknown codes fail with UnsupportedCurrency.
func (t *CurrencyTable) Convert(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	c, ok := t.byCode[code]
	if !ok {
		return decimal.Zero, UnsupportedCurrency(code)
	}
	return Round2(amount.Mul(c.Rate)), nil
}

// Format renders an amount with the currency symbol and two decimals.
func (t *CurrencyTable) Format(amount decimal.Decimal, code string) string {
	c, ok := t.byCode[code]
	if !ok {
		return amount.StringFixed(2) + " " + t.reference
	}
	s := Round2(amount).StringFixed(2)
	if strings.HasPrefix(s, "-") {
		return "-" + c.Symbol + strings.TrimPrefix(s, "-")
	}
	return c.Symbol + s
}
