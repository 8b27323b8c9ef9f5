// Package static serves a fixed, in-process product catalog.
package static

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"
	"github.com/Davidgwa1996/unidigitalcom/pkg/pagination"

	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// Catalog is an immutable product list.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

var _ catalog.Catalog = (*Catalog)(nil)

// New builds a catalog over products. Later duplicates of an id are ignored.
func New(products []domain.Product) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// NewSeeded returns the storefront's default automotive and electronics range.
func NewSeeded() *Catalog {
	return New(Seed())
}

// List returns one page of the products in f.Category.
func (c *Catalog) List(_ context.Context, f catalog.Filter) (pagination.Result[domain.Product], error) {
	matched := c.products
	if f.Category != "" {
		matched = make([]domain.Product, 0, len(c.products))
		for _, p := range c.products {
			if p.Category == f.Category {
				matched = append(matched, p)
			}
		}
	}

	params := f.Page
	if params.PerPage <= 0 {
		params = pagination.DefaultParams()
	}
	return pagination.Paginate(slices.Clone(matched), params), nil
}

// Get returns the product with id.
func (c *Catalog) Get(_ context.Context, id string) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return c.products[i], nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Seed returns the default product range. Prices are in GBP.
func Seed() []domain.Product {
	return []domain.Product{
		{
			ID: "auto1", Name: "Tesla Model 3 Long Range", Category: "automotive", UnitPrice: price("72899.00"), Stock: 5,
			Description: "Electric, 374 miles range, Full self-driving, Panoramic roof.",
			Image:       "https://images.unsplash.com/photo-1560958089-b8a1929cea89?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "auto2", Name: "BMW 3 Series 320i M Sport", Category: "automotive", UnitPrice: price("18499.00"), Stock: 6,
			Description: "Petrol, Automatic, Low mileage, Full service history.",
			Image:       "https://images.unsplash.com/photo-1555215695-3004980ad54e?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "auto3", Name: "Mercedes-Benz GLE 350d", Category: "automotive", UnitPrice: price("58399.00"), Stock: 6,
			Description: "Diesel, 4MATIC, AMG Line, Premium package.",
			Image:       "https://images.unsplash.com/photo-1563720223485-8d6d5c5c8c5b?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "auto4", Name: "Audi Q5 Premium Plus", Category: "automotive", UnitPrice: price("38999.00"), Stock: 8,
			Description: "Quattro AWD, Virtual Cockpit, B&O Sound.",
			Image:       "https://images.unsplash.com/photo-1553440569-bcc63803a83d?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "elec1", Name: "iPhone 15 Pro Max 256GB", Category: "electronics", UnitPrice: price("1399.00"), Stock: 43,
			Description: "Titanium, Dynamic Island, 5x optical zoom.",
			Image:       "https://images.unsplash.com/photo-1695048133142-6e8d2efc8c9f?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "elec2", Name: `MacBook Pro 16" M3 Pro`, Category: "electronics", UnitPrice: price("3399.00"), Stock: 14,
			Description: "12-core CPU, 36GB RAM, 1TB SSD.",
			Image:       "https://images.unsplash.com/photo-1517336714731-489689fd1ca8?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "elec3", Name: "Sony PlayStation 5 Digital", Category: "electronics", UnitPrice: price("699.00"), Stock: 38,
			Description: "DualSense, 4K/120fps.",
			Image:       "https://images.unsplash.com/photo-1606144042614-b2417e99c4e3?auto=format&fit=crop&w=500&q=80",
		},
		{
			ID: "elec4", Name: `Samsung 55" QLED 4K TV`, Category: "electronics", UnitPrice: price("899.00"), Stock: 22,
			Description: "Quantum HDR, Smart TV, Gaming Mode.",
			Image:       "https://images.unsplash.com/photo-1593359677879-a4bb92f829d1?auto=format&fit=crop&w=500&q=80",
		},
	}
}
