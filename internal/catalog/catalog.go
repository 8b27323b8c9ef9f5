// Package catalog is the storefront's view of the product catalog.
package catalog

import (
	"context"

	"github.com/Davidgwa1996/unidigitalcom/pkg/pagination"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// Filter narrows a product listing. An empty Category lists every product.
type Filter struct {
	Category string
	Page     pagination.Params
}

// Catalog resolves product descriptors. Get fails with an error wrapping
// apperrors.ErrNotFound for unknown ids.
type Catalog interface {
	List(ctx context.Context, f Filter) (pagination.Result[domain.Product], error)
	Get(ctx context.Context, id string) (domain.Product, error)
}
