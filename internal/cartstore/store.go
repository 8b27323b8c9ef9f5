// Package cartstore holds the cart of one browsing session: its line items,
// the selected display currency, the derived totals and the persistence of
// all of it to session-local storage.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/storage"
)

// DefaultNamespace prefixes the snapshot key when Options.Namespace is empty.
const DefaultNamespace = "unidigital"

const persistTimeout = 3 * time.Second

// Op names the mutation that produced a Change.
type Op string

const (
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
	OpUpdate   Op = "update"
	OpClear    Op = "clear"
	OpCurrency Op = "currency"
	OpCheckout Op = "checkout"
)

// Change is delivered to subscribers after every state-changing mutation.
// Snapshot is a private copy and Totals were computed from it.
type Change struct {
	Op       Op
	Snapshot domain.Snapshot
	Totals   domain.TotalsView
}

// Listener observes cart changes. Listeners of one store are called one
// change at a time, in commit order, and must not mutate that store.
type Listener func(ctx context.Context, c Change)

// View is the cart contents and totals read under one lock.
type View struct {
	Snapshot domain.Snapshot
	Totals   domain.TotalsView
}

// Options configures a Store.
type Options struct {
	Namespace  string
	Policy     domain.PricingPolicy
	Currencies *domain.CurrencyTable
	// MaxQuantityPerItem caps a single line's quantity. 0 disables the cap.
	MaxQuantityPerItem int
	Logger             *slog.Logger
}

// Store is the cart of one session. All methods are safe for concurrent use;
// each mutation, including its storage write, happens under a single lock.
type Store struct {
	mu         sync.Mutex
	state      domain.Snapshot
	storage    storage.Storage
	key        string
	policy     domain.PricingPolicy
	currencies *domain.CurrencyTable
	maxQty     int
	logger     *slog.Logger

	// dmu is taken before mu is released so changes are delivered in commit order.
	dmu       sync.Mutex
	lmu       sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// New creates a store and restores its state from st. A missing snapshot
// yields an empty cart. A malformed one is logged, discarded and also
// yields an empty cart in the reference currency. When st cannot be read New
// fails with a 503 error, so a cart it could not see is never overwritten.
func New(ctx context.Context, st storage.Storage, opts Options) (*Store, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Currencies == nil {
		opts.Currencies = domain.DefaultCurrencies()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		storage:    st,
		key:        domain.SnapshotKey(opts.Namespace),
		policy:     opts.Policy,
		currencies: opts.Currencies,
		maxQty:     opts.MaxQuantityPerItem,
		logger:     opts.Logger,
		listeners:  make(map[int]Listener),
	}
	state, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

func (s *Store) emptySnapshot() domain.Snapshot {
	return domain.Snapshot{Items: []domain.LineItem{}, Currency: s.currencies.Reference()}
}

func (s *Store) restore(ctx context.Context) (domain.Snapshot, error) {
	raw, err := s.storage.GetItem(ctx, s.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			restoresTotal.WithLabelValues(restoreEmpty).Inc()
			return s.emptySnapshot(), nil
		}
		restoresTotal.WithLabelValues(restoreUnavailable).Inc()
		s.logger.WarnContext(ctx, "cart storage unavailable",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return domain.Snapshot{}, storageUnavailable(err)
	}

	snap, err := domain.DecodeSnapshot(raw, s.currencies)
	if err != nil {
		restoresTotal.WithLabelValues(restoreMalformed).Inc()
		s.logger.WarnContext(ctx, "discarding malformed cart snapshot",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		if rmErr := s.storage.RemoveItem(ctx, s.key); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove malformed cart snapshot",
				slog.String("key", s.key),
				slog.String("error", rmErr.Error()),
			)
		}
		return s.emptySnapshot(), nil
	}

	restoresTotal.WithLabelValues(restoreOK).Inc()
	return snap, nil
}

func storageUnavailable(cause error) error {
	e := apperrors.ServiceUnavailable("cart storage is unavailable")
	e.Err = fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, cause)
	return e
}

// AddItem adds quantity units of p. An existing line for p.ID is incremented
// and keeps its name and price; otherwise a new line is appended. When p
// tracks stock, the resulting quantity must not exceed p.Stock.
func (s *Store) AddItem(ctx context.Context, p domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.InvalidQuantity(fmt.Sprintf("quantity must be at least 1, got %d", quantity))
	}
	if err := p.Validate(); err != nil {
		return err
	}

	return s.mutate(ctx, OpAdd, func(next *domain.Snapshot) (bool, error) {
		i := next.FindItemIndex(p.ID)
		if i < 0 {
			if err := checkStock(p, quantity); err != nil {
				return false, err
			}
			if err := s.checkLimit(p.ID, quantity); err != nil {
				return false, err
			}
			next.Items = append(next.Items, domain.NewLineItem(p, quantity))
			return true, nil
		}

		current := next.Items[i].Quantity
		if quantity > math.MaxInt32-current {
			return false, domain.InvalidQuantity("quantity is out of range")
		}
		if err := checkStock(p, current+quantity); err != nil {
			return false, err
		}
		if err := s.checkLimit(p.ID, current+quantity); err != nil {
			return false, err
		}
		next.Items[i].Quantity = current + quantity
		return true, nil
	})
}

// RemoveItem deletes the line for id. An absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	_ = s.mutate(ctx, OpRemove, func(next *domain.Snapshot) (bool, error) {
		i := next.FindItemIndex(id)
		if i < 0 {
			return false, nil
		}
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
		return true, nil
	})
}

// UpdateQuantity sets the quantity of the line for id. A quantity below 1
// removes the line; an absent id or an unchanged quantity is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return s.mutate(ctx, OpUpdate, func(next *domain.Snapshot) (bool, error) {
			i := next.FindItemIndex(id)
			if i < 0 {
				return false, nil
			}
			next.Items = append(next.Items[:i], next.Items[i+1:]...)
			return true, nil
		})
	}

	return s.mutate(ctx, OpUpdate, func(next *domain.Snapshot) (bool, error) {
		i := next.FindItemIndex(id)
		if i < 0 || next.Items[i].Quantity == quantity {
			return false, nil
		}
		if err := s.checkLimit(id, quantity); err != nil {
			return false, err
		}
		next.Items[i].Quantity = quantity
		return true, nil
	})
}

// Clear empties the cart and keeps the selected currency.
func (s *Store) Clear(ctx context.Context) {
	_ = s.mutate(ctx, OpClear, func(next *domain.Snapshot) (bool, error) {
		next.Items = []domain.LineItem{}
		return true, nil
	})
}

// RemoveOrdered takes the ordered lines out of the cart after a checkout.
// Each ordered quantity is subtracted from the line with the same id and
// lines that reach zero are removed, so anything added while the order was
// being placed stays in the cart.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []domain.LineItem) {
	_ = s.mutate(ctx, OpCheckout, func(next *domain.Snapshot) (bool, error) {
		changed := false
		for _, line := range ordered {
			i := next.FindItemIndex(line.ID)
			if i < 0 {
				continue
			}
			changed = true
			if next.Items[i].Quantity > line.Quantity {
				next.Items[i].Quantity -= line.Quantity
				continue
			}
			next.Items = append(next.Items[:i], next.Items[i+1:]...)
		}
		return changed, nil
	})
}

// SetCurrency selects the display currency. Codes outside the currency table
// fail with UnsupportedCurrency and leave the cart unchanged.
func (s *Store) SetCurrency(ctx context.Context, code string) error {
	if !s.currencies.Supports(code) {
		return domain.UnsupportedCurrency(code)
	}
	return s.mutate(ctx, OpCurrency, func(next *domain.Snapshot) (bool, error) {
		if next.Currency == code {
			return false, nil
		}
		next.Currency = code
		return true, nil
	})
}

func checkStock(p domain.Product, quantity int) error {
	if p.TracksStock() && quantity > p.Stock {
		return domain.InsufficientStock(p.ID, p.Stock, quantity)
	}
	return nil
}

func (s *Store) checkLimit(id string, quantity int) error {
	if s.maxQty > 0 && quantity > s.maxQty {
		return domain.InvalidQuantity(fmt.Sprintf("quantity %d for %s exceeds the limit of %d", quantity, id, s.maxQty))
	}
	return nil
}

// mutate applies fn to a copy of the state. When fn reports a change the copy
// becomes the new state, is written to storage and subscribers are notified
// once the state lock is released. Errors from fn leave the state untouched.
func (s *Store) mutate(ctx context.Context, op Op, fn func(next *domain.Snapshot) (bool, error)) error {
	s.mu.Lock()
	next := s.state.Clone()
	changed, err := fn(&next)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.persist(ctx, op, next)
	change := Change{
		Op:       op,
		Snapshot: next.Clone(),
		Totals:   domain.ComputeTotals(next, s.policy, s.currencies),
	}
	s.dmu.Lock()
	s.mu.Unlock()
	defer s.dmu.Unlock()

	mutationsTotal.WithLabelValues(string(op)).Inc()
	s.notify(ctx, change)
	return nil
}

// persist writes the snapshot. Failures are logged and swallowed: the
// in-memory cart stays authoritative until the next successful write.
func (s *Store) persist(ctx context.Context, op Op, snap domain.Snapshot) {
	raw, err := domain.EncodeSnapshot(snap)
	if err != nil {
		persistFailures.Inc()
		s.logger.ErrorContext(ctx, "failed to encode cart snapshot",
			slog.String("op", string(op)),
			slog.String("error", err.Error()),
		)
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.storage.SetItem(wctx, s.key, raw); err != nil {
		persistFailures.Inc()
		s.logger.WarnContext(ctx, "failed to persist cart snapshot",
			slog.String("op", string(op)),
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
	}
}

// Subscribe registers l for every subsequent change and returns a function
// that unregisters it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

func (s *Store) notify(ctx context.Context, c Change) {
	s.lmu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	// Deliver in subscription order.
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.lmu.RUnlock()

	for _, l := range listeners {
		l(ctx, c)
	}
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Totals recomputes the totals from the current items.
func (s *Store) Totals() domain.TotalsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ComputeTotals(s.state, s.policy, s.currencies)
}

// View returns the snapshot and its totals taken atomically.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Snapshot: s.state.Clone(),
		Totals:   domain.ComputeTotals(s.state, s.policy, s.currencies),
	}
}

// ItemCount returns the total number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemCount()
}

// QuantityOf returns the quantity of product id in the cart, or 0.
func (s *Store) QuantityOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.state.FindItemIndex(id); i >= 0 {
		return s.state.Items[i].Quantity
	}
	return 0
}

// Currency returns the selected display currency.
func (s *Store) Currency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Currency
}

// Currencies returns the table the store validates currencies against.
func (s *Store) Currencies() *domain.CurrencyTable {
	return s.currencies
}
