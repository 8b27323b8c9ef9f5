// Package remote reads products from the catalog API.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Davidgwa1996/unidigitalcom/pkg/httpclient"
	"github.com/Davidgwa1996/unidigitalcom/pkg/pagination"

	"github.com/Davidgwa1996/unidigitalcom/internal/catalog"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

const serviceName = "catalog"

// Client is a catalog.Catalog backed by GET {baseURL}/products.
type Client struct {
	doer    httpclient.Doer
	baseURL string
}

var _ catalog.Catalog = (*Client)(nil)

// NewClient creates a catalog client. doer is usually a circuit breaker
// wrapping a retrying httpclient.Client.
func NewClient(doer httpclient.Doer, baseURL string) *Client {
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// List fetches one page of products.
func (c *Client) List(ctx context.Context, f catalog.Filter) (pagination.Result[domain.Product], error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	params := f.Page
	if params.PerPage <= 0 {
		params = pagination.DefaultParams()
	}
	params.Encode(q)

	var res pagination.Result[domain.Product]
	if err := httpclient.GetJSON(ctx, c.doer, c.baseURL+"/products?"+q.Encode(), serviceName, &res); err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	if res.Items == nil {
		res.Items = []domain.Product{}
	}
	return res, nil
}

// Get fetches a single product.
func (c *Client) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	if err := httpclient.GetJSON(ctx, c.doer, c.baseURL+"/products/"+url.PathEscape(id), serviceName, &p); err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}
