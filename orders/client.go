// Package orders wraps the order endpoints. Orders are created exactly
// once per idempotency key and mutated only by the backend; this client
// creates and reads, never updates.
package orders

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// Wire types.

type orderLineRead struct {
	ID                  int    `json:"id"`
	ProductID           *int   `json:"product_id"`
	ProductTitle        string `json:"product_title"`
	Quantity            int    `json:"quantity"`
	UnitPriceCents      int    `json:"unit_price_cents"`
	ReferencePriceCents *int   `json:"reference_price_cents"`
	SubtotalCents       int    `json:"subtotal_cents"`
	ImpactCO2G          *int   `json:"impact_co2_g"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type orderRead struct {
	ID               int             `json:"id"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
	TotalAmountCents int             `json:"total_amount_cents"`
	TotalItems       int             `json:"total_items"`
	TotalImpactCO2G  int             `json:"total_impact_co2_g"`
	PaymentReference *string         `json:"payment_reference"`
	PaymentProvider  *string         `json:"payment_provider"`
	IdempotencyKey   *string         `json:"idempotency_key"`
	PlacedAt         *string         `json:"placed_at"`
	Notes            *string         `json:"notes"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
	Lines            []orderLineRead `json:"lines"`
}

type orderListResponse struct {
	Items  []orderRead `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type createOrderRequest struct {
	Items []core.CartLineInput `json:"items"`
	Notes string               `json:"notes,omitempty"`
}

// List is a page of orders.
type List struct {
	Items  []core.Order
	Total  int
	Limit  int
	Offset int
}

// Client calls the order endpoints.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
}

// NewClient creates an orders client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth}
}

// Create persists an order from cart lines. Lines carry product id and
// quantity only: prices are resolved server-side at order time so a
// tampered client cannot set them. The same idempotency key never
// produces two distinct orders; a retried request with an already-used
// key returns the original order.
func (c *Client) Create(ctx context.Context, lines []core.CartLineInput, idempotencyKey string) (*core.Order, error) {
	if len(lines) == 0 {
		return nil, core.ErrEmptyCart
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key required: %w", core.ErrInvalidConfiguration)
	}

	var resp orderRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/orders",
			AuthToken: token,
			Body:      createOrderRequest{Items: lines},
			Header:    http.Header{"Idempotency-Key": []string{idempotencyKey}},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	order := mapOrder(resp)
	return &order, nil
}

// ListMine fetches the current user's orders.
func (c *Client) ListMine(ctx context.Context, limit, offset int) (*List, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp orderListResponse
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/orders",
			AuthToken: token,
			Params: map[string]string{
				"limit":  strconv.Itoa(limit),
				"offset": strconv.Itoa(offset),
			},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	items := make([]core.Order, 0, len(resp.Items))
	for _, o := range resp.Items {
		items = append(items, mapOrder(o))
	}
	return &List{Items: items, Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset}, nil
}

// Get fetches one order. Status changes arrive via backend webhooks;
// observing them means refetching here.
func (c *Client) Get(ctx context.Context, orderID int) (*core.Order, error) {
	var resp orderRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      fmt.Sprintf("/orders/%d", orderID),
			AuthToken: token,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	order := mapOrder(resp)
	return &order, nil
}

func mapOrder(o orderRead) core.Order {
	lines := make([]core.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, core.OrderLine{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			ProductTitle:        l.ProductTitle,
			Quantity:            l.Quantity,
			UnitPriceCents:      l.UnitPriceCents,
			ReferencePriceCents: l.ReferencePriceCents,
			SubtotalCents:       l.SubtotalCents,
			ImpactCO2G:          l.ImpactCO2G,
			CreatedAt:           parseTime(l.CreatedAt),
			UpdatedAt:           parseTime(l.UpdatedAt),
		})
	}
	return core.Order{
		ID:               o.ID,
		Status:           o.Status,
		Currency:         o.Currency,
		TotalAmountCents: o.TotalAmountCents,
		TotalItems:       o.TotalItems,
		TotalImpactCO2G:  o.TotalImpactCO2G,
		PaymentReference: deref(o.PaymentReference),
		PaymentProvider:  deref(o.PaymentProvider),
		IdempotencyKey:   deref(o.IdempotencyKey),
		PlacedAt:         parseTimePtr(o.PlacedAt),
		Notes:            deref(o.Notes),
		CreatedAt:        parseTime(o.CreatedAt),
		UpdatedAt:        parseTime(o.UpdatedAt),
		Lines:            lines,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
