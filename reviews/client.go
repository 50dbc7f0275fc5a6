// Package reviews wraps the product review endpoints. Reviews go
// through moderation on the backend: a freshly created review is
// pending until a moderator publishes it.
package reviews

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/greencart/storefront/gateway"
	"github.com/greencart/storefront/session"
)

// Review is a product review as exposed to its author. Published
// reviews are the only ones other users see.
type Review struct {
	ID              int
	ProductID       int
	UserID          int
	Rating          int
	Comment         string
	Status          string
	CreatedAt       time.Time
	PublishedAt     *time.Time
	ModerationNotes string
}

// List is a page of reviews.
type List struct {
	Items  []Review
	Total  int
	Limit  int
	Offset int
}

// Input is the review payload for create and update. OrderID links the
// review to a purchase when the author provides one.
type Input struct {
	ProductID int
	Rating    int
	Comment   string
	OrderID   *int
}

type reviewRead struct {
	ID              int     `json:"id"`
	ProductID       int     `json:"product_id"`
	UserID          int     `json:"user_id"`
	Rating          int     `json:"rating"`
	Comment         *string `json:"comment"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	PublishedAt     *string `json:"published_at"`
	ModerationNotes *string `json:"moderation_notes"`
}

type reviewListResponse struct {
	Items  []reviewRead `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type reviewWrite struct {
	ProductID int     `json:"product_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
	OrderID   *int    `json:"order_id"`
}

// Client calls the review endpoints.
type Client struct {
	api  *gateway.Client
	auth *session.AuthClient
}

// NewClient creates a reviews client.
func NewClient(api *gateway.Client, auth *session.AuthClient) *Client {
	return &Client{api: api, auth: auth}
}

// ListForProduct fetches published reviews for a product. This is a
// public read and needs no session.
func (c *Client) ListForProduct(ctx context.Context, productID, limit, offset int) (*List, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp reviewListResponse
	err := c.api.Do(ctx, gateway.Request{
		Path: fmt.Sprintf("/reviews/product/%d", productID),
		Params: map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return mapList(resp), nil
}

// ListMine fetches the current user's reviews in every moderation
// state.
func (c *Client) ListMine(ctx context.Context, limit, offset int) (*List, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp reviewListResponse
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Path:      "/reviews/me",
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
	return mapList(resp), nil
}

// Create submits a new review.
func (c *Client) Create(ctx context.Context, input Input) (*Review, error) {
	var resp reviewRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "POST",
			Path:      "/reviews",
			AuthToken: token,
			Body:      writePayload(input),
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	review := mapReview(resp)
	return &review, nil
}

// Update rewrites an existing review; the backend resets it to pending
// moderation.
func (c *Client) Update(ctx context.Context, reviewID int, input Input) (*Review, error) {
	var resp reviewRead
	err := c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "PATCH",
			Path:      fmt.Sprintf("/reviews/%d", reviewID),
			AuthToken: token,
			Body:      writePayload(input),
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	review := mapReview(resp)
	return &review, nil
}

// Delete removes one of the current user's reviews.
func (c *Client) Delete(ctx context.Context, reviewID int) error {
	return c.auth.WithAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.Do(ctx, gateway.Request{
			Method:    "DELETE",
			Path:      fmt.Sprintf("/reviews/%d", reviewID),
			AuthToken: token,
		}, nil)
	})
}

func writePayload(input Input) reviewWrite {
	w := reviewWrite{
		ProductID: input.ProductID,
		Rating:    input.Rating,
		OrderID:   input.OrderID,
	}
	if input.Comment != "" {
		comment := input.Comment
		w.Comment = &comment
	}
	return w
}

func mapList(resp reviewListResponse) *List {
	items := make([]Review, 0, len(resp.Items))
	for _, r := range resp.Items {
		items = append(items, mapReview(r))
	}
	return &List{Items: items, Total: resp.Total, Limit: resp.Limit, Offset: resp.Offset}
}

func mapReview(r reviewRead) Review {
	review := Review{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Status:    r.Status,
		CreatedAt: parseTime(r.CreatedAt),
	}
	if r.Comment != nil {
		review.Comment = *r.Comment
	}
	if r.ModerationNotes != nil {
		review.ModerationNotes = *r.ModerationNotes
	}
	if r.PublishedAt != nil && *r.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, *r.PublishedAt); err == nil {
			review.PublishedAt = &t
		}
	}
	return review
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
