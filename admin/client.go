// Package admin wraps the back-office endpoints for user management
// and sales reporting. The backend enforces the admin role on every
// route and answers 403 otherwise.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// UserList is a page of accounts.
type UserList struct {
	Items  []core.User
	Total  int
	Limit  int
	Offset int
}

// ReportSummary aggregates sales over a reporting period.
type ReportSummary struct {
	PeriodStart            string
	PeriodEnd              string
	TotalOrders            int
	TotalRevenueCents      int
	TotalItemsSold         int
	AverageOrderValueCents int
}

// ReportFile is a generated report available for download. URL is a
// path on the backend host.
type ReportFile struct {
	Name      string
	Format    string
	SizeBytes int64
	URL       string
}

type userRead struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Region    *string `json:"region"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

type userListResponse struct {
	Items  []userRead `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type summaryRead struct {
	PeriodStart            string `json:"period_start"`
	PeriodEnd              string `json:"period_end"`
	TotalOrders            int    `json:"total_orders"`
	TotalRevenueCents      int    `json:"total_revenue_cents"`
	TotalItemsSold         int    `json:"total_items_sold"`
	AverageOrderValueCents int    `json:"average_order_value_cents"`
}

type reportFileRead struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// Client calls the admin endpoints.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
}

// NewClient creates an admin client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth}
}

// ListUsers fetches a page of accounts.
func (c *Client) ListUsers(ctx context.Context, limit, offset int) (*UserList, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp userListResponse
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/admin/users",
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

	items := make([]core.User, 0, len(resp.Items))
	for _, u := range resp.Items {
		items = append(items, mapUser(u))
	}
	return &UserList{Items: items, Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset}, nil
}

// CreateUser creates an account with an explicit role.
func (c *Client) CreateUser(ctx context.Context, email, password string, role core.Role) (*core.User, error) {
	var resp userRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/admin/users",
			AuthToken: token,
			Body: map[string]string{
				"email":    email,
				"password": password,
				"role":     string(role),
			},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	user := mapUser(resp)
	return &user, nil
}

// SetUserRole changes an account's role.
func (c *Client) SetUserRole(ctx context.Context, userID int, role core.Role) (*core.User, error) {
	var resp userRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "PATCH",
			Path:      fmt.Sprintf("/admin/users/%d/role", userID),
			AuthToken: token,
			Body:      map[string]string{"role": string(role)},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	user := mapUser(resp)
	return &user, nil
}

// SetUserActive enables or disables an account. A disabled account
// keeps its data but can no longer authenticate.
func (c *Client) SetUserActive(ctx context.Context, userID int, active bool) (*core.User, error) {
	var resp userRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "PATCH",
			Path:      fmt.Sprintf("/admin/users/%d/status", userID),
			AuthToken: token,
			Body:      map[string]bool{"is_active": active},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	user := mapUser(resp)
	return &user, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID int) error {
	return c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "DELETE",
			Path:      fmt.Sprintf("/admin/users/%d", userID),
			AuthToken: token,
		}, nil)
	})
}

// ReportSummary fetches aggregated sales for a period. Empty bounds
// let the backend pick its default reporting window. Dates are
// YYYY-MM-DD.
func (c *Client) ReportSummary(ctx context.Context, periodStart, periodEnd string) (*ReportSummary, error) {
	var resp summaryRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/admin/reports/summary",
			AuthToken: token,
			Params: map[string]string{
				"period_start": periodStart,
				"period_end":   periodEnd,
			},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &ReportSummary{
		PeriodStart:            resp.PeriodStart,
		PeriodEnd:              resp.PeriodEnd,
		TotalOrders:            resp.TotalOrders,
		TotalRevenueCents:      resp.TotalRevenueCents,
		TotalItemsSold:         resp.TotalItemsSold,
		AverageOrderValueCents: resp.AverageOrderValueCents,
	}, nil
}

// GenerateReport asks the backend to render a downloadable report for
// the period, then appear under ReportFiles.
func (c *Client) GenerateReport(ctx context.Context, periodStart, periodEnd string) error {
	return c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/admin/reports/generate",
			AuthToken: token,
			Params: map[string]string{
				"period_start": periodStart,
				"period_end":   periodEnd,
			},
		}, nil)
	})
}

// ReportFiles lists the generated report files.
func (c *Client) ReportFiles(ctx context.Context) ([]ReportFile, error) {
	var resp struct {
		Items []reportFileRead `json:"items"`
	}
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/admin/reports/files",
			AuthToken: token,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	files := make([]ReportFile, 0, len(resp.Items))
	for _, f := range resp.Items {
		files = append(files, ReportFile{
			Name:      f.Name,
			Format:    f.Format,
			SizeBytes: f.SizeBytes,
			URL:       f.URL,
		})
	}
	return files, nil
}

func mapUser(u userRead) core.User {
	user := core.User{
		ID:       u.ID,
		Email:    u.Email,
		Role:     core.ParseRole(u.Role),
		IsActive: u.IsActive,
	}
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Region != nil {
		user.Region = *u.Region
	}
	if t, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
		user.CreatedAt = t
	}
	return user
}
