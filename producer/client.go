// Package producer wraps the producer back-office endpoints: the
// producer's own listings, incoming orders, and sales insights. Every
// call requires a producer (or admin) session; the backend enforces the
// role and answers 403 otherwise.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/greencart/storefront/catalogue"
	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// Insights aggregates the producer's sales figures.
type Insights struct {
	TotalOrders            int
	TotalRevenueCents      int
	TotalItemsSold         int
	AverageOrderValueCents int
	TotalImpactCO2G        int
	TopProducts            []TopProduct
}

// TopProduct is one entry of the best-sellers ranking.
type TopProduct struct {
	ProductID     int
	Title         string
	RevenueCents  int
	UnitsSold     int
	AverageRating *float64
}

// OrderLine is one of the producer's lines inside a customer order.
type OrderLine struct {
	ID                  int
	OrderID             int
	ProductID           *int
	ProductTitle        string
	Quantity            int
	UnitPriceCents      int
	ReferencePriceCents *int
	SubtotalCents       int
	CreatedAt           time.Time
}

// Order is a customer order restricted to the producer's own lines.
type Order struct {
	OrderID          int
	Status           string
	CustomerID       int
	CustomerEmail    string
	CreatedAt        time.Time
	TotalAmountCents int
	Lines            []OrderLine
}

// OrderList is a page of producer orders.
type OrderList struct {
	Items  []Order
	Total  int
	Limit  int
	Offset int
}

// ProductList is a page of the producer's own listings, including
// unpublished ones.
type ProductList struct {
	Items  []core.Product
	Total  int
	Limit  int
	Offset int
}

// ProductInput is the create/update payload for a listing. Pointer
// fields distinguish "leave unchanged" from "clear" on update; Create
// requires Title, PriceCents and Stock.
type ProductInput struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Region      *string       `json:"region,omitempty"`
	Origin      *string       `json:"origin,omitempty"`
	DLCDate     *string       `json:"dlc_date,omitempty"`
	ImpactCO2G  *int          `json:"impact_co2_g,omitempty"`
	PriceCents  *int          `json:"price_cents,omitempty"`
	PromoCents  *int          `json:"promo_price_cents,omitempty"`
	Stock       *int          `json:"stock,omitempty"`
	Status      *string       `json:"status,omitempty"`
	IsPublished *bool         `json:"is_published,omitempty"`
	Images      []ImageInput  `json:"images,omitempty"`
}

// ImageInput is one product image in a create/update payload.
type ImageInput struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

type insightsRead struct {
	TotalOrders            int `json:"total_orders"`
	TotalRevenueCents      int `json:"total_revenue_cents"`
	TotalItemsSold         int `json:"total_items_sold"`
	AverageOrderValueCents int `json:"average_order_value_cents"`
	TotalImpactCO2G        int `json:"total_impact_co2_g"`
	TopProducts            []struct {
		ProductID     int      `json:"product_id"`
		Title         string   `json:"title"`
		RevenueCents  int      `json:"revenue_cents"`
		UnitsSold     int      `json:"units_sold"`
		AverageRating *float64 `json:"average_rating"`
	} `json:"top_products"`
}

type orderLineRead struct {
	ID                  int    `json:"id"`
	OrderID             int    `json:"order_id"`
	ProductID           *int   `json:"product_id"`
	ProductTitle        string `json:"product_title"`
	Quantity            int    `json:"quantity"`
	UnitPriceCents      int    `json:"unit_price_cents"`
	ReferencePriceCents *int   `json:"reference_price_cents"`
	SubtotalCents       int    `json:"subtotal_cents"`
	CreatedAt           string `json:"created_at"`
}

type orderRead struct {
	OrderID          int             `json:"order_id"`
	Status           string          `json:"status"`
	CustomerID       int             `json:"customer_id"`
	CustomerEmail    string          `json:"customer_email"`
	CreatedAt        string          `json:"created_at"`
	TotalAmountCents int             `json:"total_amount_cents"`
	Lines            []orderLineRead `json:"lines"`
}

type orderListResponse struct {
	Items  []orderRead `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// rawListResponse defers product decoding to the catalogue mapper.
type rawListResponse struct {
	Items  []json.RawMessage `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// Client calls the producer endpoints.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
	now  func() time.Time
}

// NewClient creates a producer client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth, now: time.Now}
}

// Insights fetches the producer's aggregated sales figures.
func (c *Client) Insights(ctx context.Context) (*Insights, error) {
	var resp insightsRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/producer/insights",
			AuthToken: token,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	top := make([]TopProduct, 0, len(resp.TopProducts))
	for _, p := range resp.TopProducts {
		top = append(top, TopProduct{
			ProductID:     p.ProductID,
			Title:         p.Title,
			RevenueCents:  p.RevenueCents,
			UnitsSold:     p.UnitsSold,
			AverageRating: p.AverageRating,
		})
	}
	return &Insights{
		TotalOrders:            resp.TotalOrders,
		TotalRevenueCents:      resp.TotalRevenueCents,
		TotalItemsSold:         resp.TotalItemsSold,
		AverageOrderValueCents: resp.AverageOrderValueCents,
		TotalImpactCO2G:        resp.TotalImpactCO2G,
		TopProducts:            top,
	}, nil
}

// ListProducts fetches the producer's own listings, published or not.
func (c *Client) ListProducts(ctx context.Context, limit, offset int) (*ProductList, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp rawListResponse
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/producer/products",
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

	now := c.now()
	items := make([]core.Product, 0, len(resp.Items))
	for _, raw := range resp.Items {
		product, err := catalogue.DecodeProduct(raw, now)
		if err != nil {
			return nil, err
		}
		items = append(items, product)
	}
	return &ProductList{Items: items, Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset}, nil
}

// CreateProduct creates a new listing. New listings start unpublished
// unless IsPublished is set.
func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*core.Product, error) {
	if input.Title == nil || input.PriceCents == nil || input.Stock == nil {
		return nil, fmt.Errorf("title, price and stock required: %w", core.ErrValidation)
	}
	return c.writeProduct(ctx, "POST", "/products", input)
}

// UpdateProduct partially updates one of the producer's listings.
func (c *Client) UpdateProduct(ctx context.Context, productID int, input ProductInput) (*core.Product, error) {
	return c.writeProduct(ctx, "PUT", fmt.Sprintf("/producer/products/%d", productID), input)
}

// DeleteProduct removes one of the producer's listings.
func (c *Client) DeleteProduct(ctx context.Context, productID int) error {
	return c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "DELETE",
			Path:      fmt.Sprintf("/producer/products/%d", productID),
			AuthToken: token,
		}, nil)
	})
}

// ListOrders fetches customer orders containing the producer's
// products, restricted to the producer's own lines.
func (c *Client) ListOrders(ctx context.Context, limit, offset int) (*OrderList, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp orderListResponse
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/producer/orders",
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

	items := make([]Order, 0, len(resp.Items))
	for _, o := range resp.Items {
		items = append(items, mapOrder(o))
	}
	return &OrderList{Items: items, Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset}, nil
}

func (c *Client) writeProduct(ctx context.Context, method, path string, input ProductInput) (*core.Product, error) {
	var raw json.RawMessage
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    method,
			Path:      path,
			AuthToken: token,
			Body:      input,
		}, &raw)
	})
	if err != nil {
		return nil, err
	}
	product, err := catalogue.DecodeProduct(raw, c.now())
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func mapOrder(o orderRead) Order {
	lines := make([]OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLine{
			ID:                  l.ID,
			OrderID:             l.OrderID,
			ProductID:           l.ProductID,
			ProductTitle:        l.ProductTitle,
			Quantity:            l.Quantity,
			UnitPriceCents:      l.UnitPriceCents,
			ReferencePriceCents: l.ReferencePriceCents,
			SubtotalCents:       l.SubtotalCents,
			CreatedAt:           parseTime(l.CreatedAt),
		})
	}
	return Order{
		OrderID:          o.OrderID,
		Status:           o.Status,
		CustomerID:       o.CustomerID,
		CustomerEmail:    o.CustomerEmail,
		CreatedAt:        parseTime(o.CreatedAt),
		TotalAmountCents: o.TotalAmountCents,
		Lines:            lines,
	}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
