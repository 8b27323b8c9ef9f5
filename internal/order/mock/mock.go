// Package mock confirms orders in process, for running the storefront
// without an order API.
package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/order"
)

// StatusConfirmed is the status of every order the mock accepts.
const StatusConfirmed = "confirmed"

// Placer accepts every order. Repeating an idempotency key returns the
// original confirmation.
type Placer struct {
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]domain.OrderConfirmation
}

var _ order.Placer = (*Placer)(nil)

// NewPlacer creates a mock placer.
func NewPlacer(logger *slog.Logger) *Placer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Placer{logger: logger, now: time.Now, seen: make(map[string]domain.OrderConfirmation)}
}

// PlaceOrder confirms req with a generated order id.
func (p *Placer) PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.OrderConfirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conf, ok := p.seen[idempotencyKey]; ok && idempotencyKey != "" {
		return conf, nil
	}

	conf := domain.OrderConfirmation{
		OrderID:    "ORD-" + uuid.NewString(),
		Status:     StatusConfirmed,
		GrandTotal: req.Totals.Display.GrandTotal,
		Currency:   req.Totals.Currency,
		PlacedAt:   p.now().UTC(),
	}
	if idempotencyKey != "" {
		p.seen[idempotencyKey] = conf
	}

	p.logger.InfoContext(ctx, "order confirmed by mock placer",
		slog.String("order_id", conf.OrderID),
		slog.String("session_id", req.SessionID),
		slog.Int("lines", len(req.Items)),
	)
	return conf, nil
}
