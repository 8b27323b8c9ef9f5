// Package service holds the storefront use cases behind the HTTP handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Davidgwa1996/unidigitalcom/pkg/pagination"

	"github.com/Davidgwa1996/unidigitalcom/internal/cartstore"
	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/session"
)

// CartService resolves products through the catalog and applies them to the
// cart store of a session.
type CartService struct {
	sessions *session.Manager
	catalog  catalog.Catalog
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(sessions *session.Manager, cat catalog.Catalog, logger *slog.Logger) *CartService {
	return &CartService{sessions: sessions, catalog: cat, logger: logger}
}

// Products lists one page of the catalog.
func (s *CartService) Products(ctx context.Context, f catalog.Filter) (pagination.Result[domain.Product], error) {
	res, err := s.catalog.List(ctx, f)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return res, nil
}

// Product returns a single catalog product.
func (s *CartService) Product(ctx context.Context, id string) (domain.Product, error) {
	return s.catalog.Get(ctx, id)
}

// Cart returns the session's cart and totals.
func (s *CartService) Cart(ctx context.Context, sessionID string) (cartstore.View, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}
	return store.View(), nil
}

// ItemCount returns the number of units in the session's cart.
func (s *CartService) ItemCount(ctx context.Context, sessionID string) (int, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return store.ItemCount(), nil
}

// QuantityOf returns the quantity of productID in the session's cart.
func (s *CartService) QuantityOf(ctx context.Context, sessionID, productID string) (int, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return store.QuantityOf(productID), nil
}

// AddItem adds quantity units of productID to the session's cart. The store
// checks the product's stock counter in the same step as the increment.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (cartstore.View, error) {
	if quantity < 1 {
		return cartstore.View{}, domain.InvalidQuantity(fmt.Sprintf("quantity must be at least 1, got %d", quantity))
	}

	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return cartstore.View{}, fmt.Errorf("resolve product: %w", err)
	}

	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}
	if err := store.AddItem(ctx, product, quantity); err != nil {
		return cartstore.View{}, err
	}

	s.logger.DebugContext(ctx, "item added to cart",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return store.View(), nil
}

// UpdateQuantity sets the quantity of productID. Quantities below 1 remove
// the line; an increase is checked against stock.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (cartstore.View, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}

	current := store.QuantityOf(productID)
	if quantity > current && current > 0 {
		product, err := s.catalog.Get(ctx, productID)
		if err != nil {
			return cartstore.View{}, fmt.Errorf("resolve product: %w", err)
		}
		if err := checkStock(product, quantity); err != nil {
			return cartstore.View{}, err
		}
	}

	if err := store.UpdateQuantity(ctx, productID, quantity); err != nil {
		return cartstore.View{}, err
	}
	return store.View(), nil
}

// RemoveItem deletes productID from the cart.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (cartstore.View, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}
	store.RemoveItem(ctx, productID)
	return store.View(), nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) (cartstore.View, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}
	store.Clear(ctx)
	return store.View(), nil
}

// SetCurrency changes the display currency.
func (s *CartService) SetCurrency(ctx context.Context, sessionID, code string) (cartstore.View, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return cartstore.View{}, err
	}
	if err := store.SetCurrency(ctx, code); err != nil {
		return cartstore.View{}, err
	}
	return store.View(), nil
}

// checkStock enforces the simple stock counter when the catalog tracks it.
func checkStock(p domain.Product, wanted int) error {
	if p.TracksStock() && wanted > p.Stock {
		return domain.InsufficientStock(p.ID, p.Stock, wanted)
	}
	return nil
}
