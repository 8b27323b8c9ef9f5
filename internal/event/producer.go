// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/Davidgwa1996/unidigitalcom/pkg/kafka"

	"github.com/Davidgwa1996/unidigitalcom/internal/cartstore"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// Topics written by the storefront.
var (
	TopicCartUpdated = pkgkafka.Topic("cart", "updated")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
	TopicOrderPlaced = pkgkafka.Topic("order", "placed")
)

const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
	Source             = "storefront"
)

// Publisher is implemented by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, e *pkgkafka.Event) error
}

// CartItemData is a line item inside cart events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// CartUpdatedData is the payload of cart.updated.
type CartUpdatedData struct {
	SessionID         string          `json:"session_id"`
	Op                string          `json:"op"`
	Items             []CartItemData  `json:"items"`
	ItemCount         int             `json:"item_count"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	DisplayGrandTotal decimal.Decimal `json:"display_grand_total"`
}

// CartClearedData is the payload of cart.cleared.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	Currency  string `json:"currency"`
}

// OrderPlacedData is the payload of order.placed.
type OrderPlacedData struct {
	OrderID       string          `json:"order_id"`
	SessionID     string          `json:"session_id"`
	Status        string          `json:"status"`
	ItemCount     int             `json:"item_count"`
	Currency      string          `json:"currency"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentMethod string          `json:"payment_method"`
}

// Producer publishes cart and order events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{pub: pub, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	e, err := pkgkafka.NewEventFromContext(ctx, topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.pub.Publish(ctx, topic, e); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishCartUpdated publishes the cart state after a mutation.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, c cartstore.Change) error {
	items := make([]CartItemData, len(c.Snapshot.Items))
	for i, item := range c.Snapshot.Items {
		items[i] = CartItemData{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	return p.publish(ctx, TopicCartUpdated, sessionID, AggregateTypeCart, CartUpdatedData{
		SessionID:         sessionID,
		Op:                string(c.Op),
		Items:             items,
		ItemCount:         c.Totals.Reference.ItemCount,
		Currency:          c.Totals.Currency,
		Subtotal:          c.Totals.Reference.Subtotal,
		GrandTotal:        c.Totals.Reference.GrandTotal,
		DisplayGrandTotal: c.Totals.Display.GrandTotal,
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, currency string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, AggregateTypeCart, CartClearedData{
		SessionID: sessionID,
		Currency:  currency,
	})
}

// PublishOrderPlaced publishes an order.placed event keyed by order id.
func (p *Producer) PublishOrderPlaced(ctx context.Context, req domain.OrderRequest, conf domain.OrderConfirmation) error {
	count := 0
	for _, line := range req.Items {
		count += line.Quantity
	}
	return p.publish(ctx, TopicOrderPlaced, conf.OrderID, AggregateTypeOrder, OrderPlacedData{
		OrderID:       conf.OrderID,
		SessionID:     req.SessionID,
		Status:        conf.Status,
		ItemCount:     count,
		Currency:      req.Totals.Currency,
		GrandTotal:    req.Totals.Display.GrandTotal,
		PaymentMethod: req.PaymentMethod,
	})
}

// CartListener returns a store listener that mirrors every change of
// sessionID's cart onto Kafka. Publish failures are logged, never returned.
func (p *Producer) CartListener(sessionID string) cartstore.Listener {
	return func(ctx context.Context, c cartstore.Change) {
		ctx = context.WithoutCancel(ctx)

		var err error
		emptied := c.Op == cartstore.OpCheckout && c.Snapshot.IsEmpty()
		if c.Op == cartstore.OpClear || emptied {
			err = p.PublishCartCleared(ctx, sessionID, c.Snapshot.Currency)
		} else {
			err = p.PublishCartUpdated(ctx, sessionID, c)
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to publish cart event",
				slog.String("session_id", sessionID),
				slog.String("op", string(c.Op)),
				slog.String("error", err.Error()),
			)
		}
	}
}
