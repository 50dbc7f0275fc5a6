package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

type eventRequest struct {
	EventID    string                 `json:"event_id"`
	EventName  string                 `json:"event_name"`
	Source     string                 `json:"source"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Tracker emits usage events when consent is granted. Every emission is
// best effort: failures are logged at debug level and otherwise
// swallowed, so a broken analytics endpoint never degrades the
// storefront.
type Tracker struct {
	api     *gateway.Client
	consent *ConsentStore
	source  string
	logger  core.Logger
}

// NewTracker creates a tracker. The source tags every event with the
// emitting surface (config AnalyticsSource).
func NewTracker(api *gateway.Client, consent *ConsentStore, source string, logger core.Logger) *Tracker {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Tracker{api: api, consent: consent, source: source, logger: logger}
}

// Track emits one named event. A missing or denied consent drops the
// event silently.
func (t *Tracker) Track(ctx context.Context, name string, properties map[string]interface{}) {
	if t.consent.Get(ctx) != ConsentGranted {
		return
	}
	err := t.api.Do(ctx, gateway.Request{
		Method:  "POST",
		Path:    "/analytics/events",
		NoCache: true,
		Body: eventRequest{
			EventID:    uuid.NewString(),
			EventName:  name,
			Source:     t.source,
			Properties: properties,
		},
	}, nil)
	if err != nil {
		t.logger.Debug("Analytics event dropped", map[string]interface{}{
			"operation": "track_event",
			"event":     name,
			"error":     err,
		})
	}
}

// TrackViewProduct emits a view_product event.
func (t *Tracker) TrackViewProduct(ctx context.Context, product core.Product) {
	t.Track(ctx, "view_product", map[string]interface{}{
		"product_id":  product.ID,
		"name":        product.Name,
		"price_cents": product.PriceCents,
		"category":    product.Category,
		"region":      product.Region,
	})
}

// TrackAddToCart emits an add_to_cart event.
func (t *Tracker) TrackAddToCart(ctx context.Context, product core.Product, quantity int) {
	t.Track(ctx, "add_to_cart", map[string]interface{}{
		"product_id":  product.ID,
		"name":        product.Name,
		"quantity":    quantity,
		"price_cents": product.PriceCents,
	})
}

// TrackBeginCheckout emits a begin_checkout event for the current cart.
func (t *Tracker) TrackBeginCheckout(ctx context.Context, totalCents int, lines []core.CartLineInput) {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	t.Track(ctx, "begin_checkout", map[string]interface{}{
		"total_cents": totalCents,
		"item_count":  count,
		"items":       lines,
	})
}

// TrackPurchase emits a purchase event for a confirmed order.
func (t *Tracker) TrackPurchase(ctx context.Context, orderID int, currency string, totalCents int) {
	t.Track(ctx, "purchase", map[string]interface{}{
		"order_id":    orderID,
		"currency":    currency,
		"value_cents": totalCents,
	})
}
