// Package remote places orders through POST {baseURL}/orders.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Davidgwa1996/unidigitalcom/pkg/httpclient"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	"github.com/Davidgwa1996/unidigitalcom/internal/order"
)

const serviceName = "order"

// Client is an order.Placer backed by the order API.
type Client struct {
	doer    httpclient.Doer
	baseURL string
}

var _ order.Placer = (*Client)(nil)

// NewClient creates an order API client.
func NewClient(doer httpclient.Doer, baseURL string) *Client {
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// PlaceOrder posts req. The idempotency key makes the request safe to retry.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.OrderConfirmation, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set(httpclient.HeaderIdempotencyKey, idempotencyKey)
	}

	var conf domain.OrderConfirmation
	if err := httpclient.PostJSON(ctx, c.doer, c.baseURL+"/orders", serviceName, req, headers, &conf); err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("place order: %w", err)
	}
	if conf.OrderID == "" {
		return domain.OrderConfirmation{}, fmt.Errorf("place order: %s returned no order id", serviceName)
	}
	return conf, nil
}
