package cart

import (
	"context"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// RemoteItem is a cart line as the backend reports it.
type RemoteItem struct {
	ID             int    `json:"id"`
	ProductID      int    `json:"product_id"`
	ProductTitle   string `json:"product_title"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	SubtotalCents  int    `json:"subtotal_cents"`
}

// RemoteState is the authoritative cart snapshot returned by the
// backend after every read or full-replace.
type RemoteState struct {
	Items            []RemoteItem `json:"items"`
	TotalItems       int          `json:"total_items"`
	TotalAmountCents int          `json:"total_amount_cents"`
}

// Remote is the remote cart endpoint. Replace sends the complete
// desired item list rather than a delta, which trades payload size for
// immunity to order-of-operations bugs from concurrent partial updates.
type Remote interface {
	Fetch(ctx context.Context) (*RemoteState, error)
	Replace(ctx context.Context, lines []core.CartLineInput) (*RemoteState, error)
	Clear(ctx context.Context) error
}

// Client implements Remote over the gateway with the session's
// one-shot 401 refresh-and-retry.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
}

// NewClient creates a remote cart client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth}
}

func (c *Client) Fetch(ctx context.Context) (*RemoteState, error) {
	var state RemoteState
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/cart",
			AuthToken: token,
		}, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) Replace(ctx context.Context, lines []core.CartLineInput) (*RemoteState, error) {
	if lines == nil {
		lines = []core.CartLineInput{}
	}
	var state RemoteState
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "PUT",
			Path:      "/cart",
			AuthToken: token,
			Body:      lines,
		}, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) Clear(ctx context.Context) error {
	return c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "DELETE",
			Path:      "/cart",
			AuthToken: token,
		}, nil)
	})
}
