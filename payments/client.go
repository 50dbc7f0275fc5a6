// Package payments initiates hosted-payment sessions. The provider
// hosts the checkout page; this client only obtains the redirect URL.
package payments

import (
	"context"

	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// Session is the hosted checkout handle returned by the backend.
type Session struct {
	CheckoutURL      string `json:"checkout_url"`
	PaymentReference string `json:"payment_reference"`
}

type initRequest struct {
	OrderID    int    `json:"order_id"`
	Provider   string `json:"provider"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// Client calls the payment endpoints.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
}

// NewClient creates a payments client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth}
}

// Init creates a hosted-payment session for an order. The caller
// redirects to CheckoutURL; the provider redirects back to the success
// or cancel URL carrying the order id, and a backend webhook settles
// the order status.
func (c *Client) Init(ctx context.Context, orderID int, provider, successURL, cancelURL string) (*Session, error) {
	var s Session
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/payments/init",
			AuthToken: token,
			Body: initRequest{
				OrderID:    orderID,
				Provider:   provider,
				SuccessURL: successURL,
				CancelURL:  cancelURL,
			},
		}, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
