package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Davidgwa1996/unidigitalcom/pkg/validator"

	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/order"
	"github.com/Davidgwa1996/unidigitalcom/internal/session"
)

var checkoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome",
	},
	[]string{"outcome"},
)

// CheckoutInput is the customer-supplied part of an order.
type CheckoutInput struct {
	Customer      domain.Customer `json:"customer"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=card bank digital crypto remittance local"`
}

// OrderEvents publishes order.placed. *event.Producer implements it.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, req domain.OrderRequest, conf domain.OrderConfirmation) error
}

// CheckoutService turns a session's cart into an order.
type CheckoutService struct {
	sessions *session.Manager
	catalog  catalog.Catalog
	placer   order.Placer
	events   OrderEvents
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCheckoutService creates a checkout service. events may be nil.
func NewCheckoutService(sessions *session.Manager, cat catalog.Catalog, placer order.Placer, events OrderEvents, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		catalog:  cat,
		placer:   placer,
		events:   events,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// begin marks sessionID as checking out. It returns false when a checkout of
// the session is already running.
func (s *CheckoutService) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *CheckoutService) end(sessionID string) {
	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.mu.Unlock()
}

// Checkout places an order for the session's cart and, once the order is
// accepted, removes the ordered lines from the cart. Lines added while the
// order was being placed stay. The items and totals sent are read in one
// step so they always agree. Only one checkout per session runs at a time;
// a concurrent one fails with CheckoutInProgress. An empty idempotencyKey is
// replaced by a fresh one.
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string, in CheckoutInput, idempotencyKey string) (domain.OrderConfirmation, error) {
	if err := validator.Validate(in); err != nil {
		checkoutsTotal.WithLabelValues("invalid").Inc()
		return domain.OrderConfirmation{}, err
	}

	if !s.begin(sessionID) {
		checkoutsTotal.WithLabelValues("conflict").Inc()
		return domain.OrderConfirmation{}, domain.CheckoutInProgress()
	}
	defer s.end(sessionID)

	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		return domain.OrderConfirmation{}, err
	}
	view := store.View()
	if view.Snapshot.IsEmpty() {
		checkoutsTotal.WithLabelValues("invalid").Inc()
		return domain.OrderConfirmation{}, domain.CartEmpty()
	}

	for _, item := range view.Snapshot.Items {
		p, err := s.catalog.Get(ctx, item.ID)
		if err != nil {
			checkoutsTotal.WithLabelValues("failed").Inc()
			return domain.OrderConfirmation{}, fmt.Errorf("resolve product %s: %w", item.ID, err)
		}
		if err := checkStock(p, item.Quantity); err != nil {
			checkoutsTotal.WithLabelValues("invalid").Inc()
			return domain.OrderConfirmation{}, err
		}
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	req := domain.NewOrderRequest(sessionID, view.Snapshot, view.Totals, in.Customer, in.PaymentMethod)

	conf, err := s.placer.PlaceOrder(ctx, req, idempotencyKey)
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		return domain.OrderConfirmation{}, fmt.Errorf("place order: %w", err)
	}
	checkoutsTotal.WithLabelValues("placed").Inc()

	store.RemoveOrdered(ctx, view.Snapshot.Items)

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, req, conf); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.placed event",
				slog.String("order_id", conf.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", conf.OrderID),
		slog.String("currency", req.Totals.Currency),
		slog.String("grand_total", req.Totals.Display.GrandTotal.StringFixed(2)),
		slog.Int("item_count", view.Totals.Reference.ItemCount),
	)
	return conf, nil
}
