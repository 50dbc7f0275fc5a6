// Package checkout turns the current cart into a persisted order and
// hands off to hosted payment, falling back to immediate confirmation
// when payment initiation is unavailable.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/greencart/storefront/cart"
	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/orders"
	"github.com/greencart/storefront/payments"
	"github.com/greencart/storefront/session"
)

// PurchaseTracker receives the best-effort purchase event on the
// confirmed fallback path. analytics.Tracker satisfies it.
type PurchaseTracker interface {
	TrackPurchase(ctx context.Context, orderID int, currency string, totalCents int)
}

// Outcome is the result of a checkout attempt.
type Outcome struct {
	Order *core.Order
	// RedirectURL is the hosted checkout page when payment init
	// succeeded; the caller redirects there and the flow stops (a
	// backend webhook settles the order later).
	RedirectURL string
	// Confirmed is true when the fallback path ran: the order is
	// treated as immediately confirmed and the cart was cleared.
	Confirmed bool
}

// Orchestrator runs the checkout flow.
type Orchestrator struct {
	cart     *cart.Synchronizer
	orders   *orders.Client
	payments *payments.Client
	auth     *session.AuthClient
	metrics  *Metrics
	tracker  PurchaseTracker
	logger   core.Logger

	provider   string
	successURL string
	cancelURL  string

	// newKey mints one idempotency key per user-initiated attempt.
	// A transport-level retry inside the attempt reuses it; a second
	// user-initiated attempt deliberately gets a fresh key (and thus,
	// on success, a new order).
	newKey func() string
}

// Options configures an Orchestrator.
type Options struct {
	Cart     *cart.Synchronizer
	Orders   *orders.Client
	Payments *payments.Client
	Auth     *session.AuthClient
	Metrics  *Metrics
	Tracker  PurchaseTracker // optional
	Logger   core.Logger
	Config   *core.Config
	NewKey   func() string // test hook; defaults to uuid.NewString
}

// NewOrchestrator creates a checkout orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("checkout config: %w", core.ErrMissingConfiguration)
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	newKey := opts.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Orchestrator{
		cart:       opts.Cart,
		orders:     opts.Orders,
		payments:   opts.Payments,
		auth:       opts.Auth,
		metrics:    metrics,
		tracker:    opts.Tracker,
		logger:     logger,
		provider:   opts.Config.PaymentProvider,
		successURL: opts.Config.SuccessURL,
		cancelURL:  opts.Config.CancelURL,
		newKey:     newKey,
	}, nil
}

// Metrics exposes the dashboard counters.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// Checkout converts the current cart into an order.
//
// Preconditions: non-empty cart and an authenticated session; a missing
// session returns ErrLoginRequired so the caller can raise its login
// prompt. Order creation failure is terminal for the attempt: the cart
// is left untouched and no metrics advance.
func (o *Orchestrator) Checkout(ctx context.Context) (*Outcome, error) {
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, core.ErrEmptyCart
	}
	if !o.auth.IsAuthenticated() {
		return nil, core.ErrLoginRequired
	}

	key := o.newKey()
	order, err := o.orders.Create(ctx, lines, key)
	if err != nil {
		o.logger.Error("Order creation failed", map[string]interface{}{
			"operation":       "checkout",
			"idempotency_key": key,
			"error":           err,
		})
		return nil, core.NewStoreError("checkout.Checkout", "checkout", err)
	}

	o.logger.Info("Order created", map[string]interface{}{
		"operation":       "checkout",
		"order_id":        order.ID,
		"idempotency_key": key,
		"total_cents":     order.TotalAmountCents,
	})

	paymentSession, payErr := o.payments.Init(ctx, order.ID, o.provider, o.successURL, o.cancelURL)
	if payErr == nil {
		// Hosted payment takes over; order confirmation arrives via
		// the provider's callback pages and a backend webhook.
		return &Outcome{Order: order, RedirectURL: paymentSession.CheckoutURL}, nil
	}

	o.logger.Warn("Payment init failed, falling back to immediate confirmation", map[string]interface{}{
		"operation": "checkout",
		"order_id":  order.ID,
		"provider":  o.provider,
		"error":     payErr,
	})

	o.cart.Empty(ctx)
	o.metrics.RecordOrder(order)
	if o.tracker != nil {
		o.tracker.TrackPurchase(ctx, order.ID, order.Currency, order.TotalAmountCents)
	}

	return &Outcome{Order: order, Confirmed: true}, nil
}
