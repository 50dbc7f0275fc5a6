package admin

import (
	"context"

	"github.com/greencart/storefront/gateway"
)

// AnalyticsSummary aggregates marketplace sales for the dashboard.
type AnalyticsSummary struct {
	PeriodStart            string
	PeriodEnd              string
	TotalOrders            int
	TotalRevenueCents      int
	TotalItemsSold         int
	AverageOrderValueCents int
	TopProducts            []SummaryProduct
}

// SummaryProduct is one best-seller entry. ProductID is nil for lines
// whose product was deleted since.
type SummaryProduct struct {
	ProductID    *int
	ProductTitle string
	Units        int
	RevenueCents int
}

// EmbedToken grants temporary access to the external analytics
// dashboard.
type EmbedToken struct {
	EmbedURL  string
	Token     string
	ExpiresAt string
}

// EmbedFilter scopes an embed token to a data slice. Zero values are
// omitted. Dates are YYYY-MM-DD.
type EmbedFilter struct {
	Region     string
	ProducerID int
	DateStart  string
	DateEnd    string
}

// Dataset describes one published open-data export.
type Dataset struct {
	Name      string
	Path      string
	Exists    bool
	SizeBytes int64
	UpdatedAt *int64 // unix seconds, nil when never generated
	Count     int
	Sample    []map[string]interface{}
}

type summaryAnalyticsRead struct {
	PeriodStart            string `json:"period_start"`
	PeriodEnd              string `json:"period_end"`
	TotalOrders            int    `json:"total_orders"`
	TotalRevenueCents      int    `json:"total_revenue_cents"`
	TotalItemsSold         int    `json:"total_items_sold"`
	AverageOrderValueCents int    `json:"average_order_value_cents"`
	TopProducts            []struct {
		ProductID    *int    `json:"product_id"`
		ProductTitle *string `json:"product_title"`
		Units        int     `json:"units"`
		RevenueCents int     `json:"revenue_cents"`
	} `json:"top_products"`
}

type embedTokenRequest struct {
	Region     string `json:"region,omitempty"`
	ProducerID *int   `json:"producer_id,omitempty"`
	DateStart  string `json:"date_start,omitempty"`
	DateEnd    string `json:"date_end,omitempty"`
}

type embedTokenRead struct {
	EmbedURL  string `json:"embed_url"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type datasetRead struct {
	Dataset   string                   `json:"dataset"`
	Path      string                   `json:"path"`
	Exists    bool                     `json:"exists"`
	SizeBytes int64                    `json:"size_bytes"`
	UpdatedAt *int64                   `json:"updated_at"`
	Count     int                      `json:"count"`
	Sample    []map[string]interface{} `json:"sample"`
}

// AnalyticsSummary fetches aggregated marketplace figures. The endpoint
// is public on the backend; the response is never cached.
func (c *Client) AnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	var resp summaryAnalyticsRead
	err := c.api.Do(ctx, gateway.Request{
		Path:    "/analytics/summary",
		NoCache: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	top := make([]SummaryProduct, 0, len(resp.TopProducts))
	for _, p := range resp.TopProducts {
		entry := SummaryProduct{
			ProductID:    p.ProductID,
			Units:        p.Units,
			RevenueCents: p.RevenueCents,
		}
		if p.ProductTitle != nil {
			entry.ProductTitle = *p.ProductTitle
		}
		top = append(top, entry)
	}
	return &AnalyticsSummary{
		PeriodStart:            resp.PeriodStart,
		PeriodEnd:              resp.PeriodEnd,
		TotalOrders:            resp.TotalOrders,
		TotalRevenueCents:      resp.TotalRevenueCents,
		TotalItemsSold:         resp.TotalItemsSold,
		AverageOrderValueCents: resp.AverageOrderValueCents,
		TopProducts:            top,
	}, nil
}

// AnalyticsEmbedToken mints a scoped token for embedding the external
// analytics dashboard.
func (c *Client) AnalyticsEmbedToken(ctx context.Context, filter EmbedFilter) (*EmbedToken, error) {
	body := embedTokenRequest{
		Region:    filter.Region,
		DateStart: filter.DateStart,
		DateEnd:   filter.DateEnd,
	}
	if filter.ProducerID != 0 {
		id := filter.ProducerID
		body.ProducerID = &id
	}

	var resp embedTokenRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/analytics/embed-token",
			AuthToken: token,
			Body:      body,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &EmbedToken{EmbedURL: resp.EmbedURL, Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

// Datasets lists the published open-data exports with a content sample.
func (c *Client) Datasets(ctx context.Context) ([]Dataset, error) {
	var resp struct {
		Items []datasetRead `json:"items"`
	}
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/admin/public-data",
			AuthToken: token,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	datasets := make([]Dataset, 0, len(resp.Items))
	for _, d := range resp.Items {
		datasets = append(datasets, Dataset{
			Name:      d.Dataset,
			Path:      d.Path,
			Exists:    d.Exists,
			SizeBytes: d.SizeBytes,
			UpdatedAt: d.UpdatedAt,
			Count:     d.Count,
			Sample:    d.Sample,
		})
	}
	return datasets, nil
}
