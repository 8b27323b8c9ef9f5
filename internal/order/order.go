// Package order hands finalized carts to the order API.
package order

import (
	"context"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// Placer submits an order and returns the confirmation of the accepted order.
type Placer interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.OrderConfirmation, error)
}
