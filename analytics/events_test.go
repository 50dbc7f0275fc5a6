package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []eventRequest
	status int
}

func (r *eventRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var ev eventRequest
	json.NewDecoder(req.Body).Decode(&ev)
	r.mu.Lock()
	r.events = append(r.events, ev)
	status := r.status
	r.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTrackerFixture(t *testing.T, consent Consent) (*Tracker, *ConsentStore, *eventRecorder, func()) {
	t.Helper()
	recorder := &eventRecorder{}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/analytics/events", recorder)
	server := httptest.NewServer(mux)

	cfg, err := core.NewConfig(
		core.WithAPIBaseURL(server.URL),
		core.WithRetryPolicy(1, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	api, err := gateway.NewClient(gateway.ClientOptions{Config: cfg})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	store := NewConsentStore(core.NewMemoryStore(), nil)
	if consent != ConsentUnset {
		if err := store.Set(context.Background(), consent); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return NewTracker(api, store, "web", nil), store, recorder, server.Close
}

func TestTrackEmitsWhenGranted(t *testing.T) {
	tracker, _, recorder, done := newTrackerFixture(t, ConsentGranted)
	defer done()

	tracker.Track(context.Background(), "view_product", map[string]interface{}{"product_id": 12})

	if recorder.count() != 1 {
		t.Fatalf("events = %d", recorder.count())
	}
	ev := recorder.events[0]
	if ev.EventName != "view_product" || ev.Source != "web" {
		t.Errorf("event = %+v", ev)
	}
	if ev.EventID == "" {
		t.Error("every event must carry a fresh id")
	}
	if ev.Properties["product_id"] != float64(12) {
		t.Errorf("properties = %v", ev.Properties)
	}
}

func TestTrackDropsWithoutConsent(t *testing.T) {
	for _, consent := range []Consent{ConsentUnset, ConsentDenied} {
		t.Run(consent.String(), func(t *testing.T) {
			tracker, _, recorder, done := newTrackerFixture(t, consent)
			defer done()

			tracker.Track(context.Background(), "view_product", nil)
			if recorder.count() != 0 {
				t.Errorf("events = %d, tracking must stay off", recorder.count())
			}
		})
	}
}

func TestTrackFollowsConsentChanges(t *testing.T) {
	tracker, store, recorder, done := newTrackerFixture(t, ConsentGranted)
	defer done()
	ctx := context.Background()

	tracker.Track(ctx, "view_product", nil)
	store.Set(ctx, ConsentDenied)
	tracker.Track(ctx, "view_product", nil)

	if recorder.count() != 1 {
		t.Errorf("events = %d, revoked consent must stop emission", recorder.count())
	}
}

func TestTrackSwallowsBackendFailure(t *testing.T) {
	tracker, _, recorder, done := newTrackerFixture(t, ConsentGranted)
	defer done()

	recorder.status = http.StatusInternalServerError
	tracker.Track(context.Background(), "purchase", nil)
	// No panic, no error surfaced; the attempt still reached the wire.
	if recorder.count() != 1 {
		t.Errorf("events = %d", recorder.count())
	}
}

func TestTrackHelpers(t *testing.T) {
	tracker, _, recorder, done := newTrackerFixture(t, ConsentGranted)
	defer done()
	ctx := context.Background()

	product := core.Product{ID: 12, Name: "Paniers de saison", PriceCents: 650, Category: "Autres", Region: "France"}
	tracker.TrackViewProduct(ctx, product)
	tracker.TrackAddToCart(ctx, product, 2)
	tracker.TrackBeginCheckout(ctx, 1300, []core.CartLineInput{{ProductID: 12, Quantity: 2}})
	tracker.TrackPurchase(ctx, 77, "EUR", 1290)

	if recorder.count() != 4 {
		t.Fatalf("events = %d", recorder.count())
	}
	names := []string{"view_product", "add_to_cart", "begin_checkout", "purchase"}
	for i, want := range names {
		if recorder.events[i].EventName != want {
			t.Errorf("event %d = %q, want %q", i, recorder.events[i].EventName, want)
		}
	}
	add := recorder.events[1]
	if add.Properties["product_id"] != float64(12) || add.Properties["quantity"] != float64(2) {
		t.Errorf("add_to_cart = %+v", add.Properties)
	}
	begin := recorder.events[2]
	if begin.Properties["item_count"] != float64(2) || begin.Properties["total_cents"] != float64(1300) {
		t.Errorf("begin_checkout = %+v", begin.Properties)
	}
	if recorder.events[3].Properties["value_cents"] != float64(1290) {
		t.Errorf("purchase = %+v", recorder.events[3].Properties)
	}
}
