package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

// fakeRemote scripts the remote cart. Each Replace/Fetch/Clear consults
// the assignable hooks; nil hooks echo the request back as the server
// would for a backend with unlimited stock.
type fakeRemote struct {
	mu           sync.Mutex
	replaceCalls [][]core.CartLineInput
	clearCalls   int

	onReplace func(call int, lines []core.CartLineInput) (*RemoteState, error)
	onFetch   func() (*RemoteState, error)
	onClear   func() error
}

func echoState(lines []core.CartLineInput) *RemoteState {
	state := &RemoteState{}
	for _, line := range lines {
		state.Items = append(state.Items, RemoteItem{
			ProductID:      line.ProductID,
			ProductTitle:   "Produit",
			Quantity:       line.Quantity,
			UnitPriceCents: 100 * line.ProductID,
			SubtotalCents:  100 * line.ProductID * line.Quantity,
		})
		state.TotalItems += line.Quantity
		state.TotalAmountCents += 100 * line.ProductID * line.Quantity
	}
	return state
}

func (f *fakeRemote) Replace(ctx context.Context, lines []core.CartLineInput) (*RemoteState, error) {
	f.mu.Lock()
	f.replaceCalls = append(f.replaceCalls, lines)
	call := len(f.replaceCalls)
	hook := f.onReplace
	f.mu.Unlock()

	if hook != nil {
		return hook(call, lines)
	}
	return echoState(lines), nil
}

func (f *fakeRemote) Fetch(ctx context.Context) (*RemoteState, error) {
	f.mu.Lock()
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return &RemoteState{}, nil
}

func (f *fakeRemote) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.clearCalls++
	hook := f.onClear
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return nil
}

func (f *fakeRemote) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaceCalls)
}

// fakeResolver serves product snapshots from a fixed map.
type fakeResolver struct {
	products map[int]core.Product
}

func (f *fakeResolver) GetByID(ctx context.Context, id int) (*core.Product, error) {
	if p, ok := f.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func testProduct(id int, price, co2 float64) core.Product {
	return core.Product{
		ID:       id,
		Name:     "Produit",
		Price:    price,
		CO2Saved: co2,
	}
}

func TestLocalMutationsWhileUnauthenticated(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Authenticated: func() bool { return false },
	})

	bread := testProduct(4, 2.0, 1.2)
	s.Add(ctx, bread)
	s.Add(ctx, bread)

	snap := s.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("unauthenticated mutations must settle to idle, got %v", snap.State)
	}
	if snap.Count() != 2 {
		t.Errorf("Count = %d", snap.Count())
	}
	if snap.Totals.TotalPrice != 4.0 {
		t.Errorf("TotalPrice = %v", snap.Totals.TotalPrice)
	}
	if snap.Totals.TotalCO2 != 2.4 {
		t.Errorf("TotalCO2 = %v", snap.Totals.TotalCO2)
	}
	if remote.replaceCount() != 0 {
		t.Error("no remote calls while unauthenticated")
	}
}

func TestDecreaseToZeroRemovesItem(t *testing.T) {
	ctx := context.Background()
	s := NewSynchronizer(Options{Remote: &fakeRemote{}})

	p := testProduct(1, 6.5, 2.1)
	s.Add(ctx, p)
	s.Decrease(ctx, 1)

	snap := s.Snapshot()
	if len(snap.Items) != 0 {
		t.Errorf("quantity 0 must delete the entry, got %+v", snap.Items)
	}
	if snap.Totals.TotalPrice != 0 {
		t.Errorf("TotalPrice = %v", snap.Totals.TotalPrice)
	}
}

func TestMutationsOnUnknownIDsAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := NewSynchronizer(Options{Remote: &fakeRemote{}})

	s.Add(ctx, testProduct(1, 6.5, 2.1))
	s.Increase(ctx, 99)
	s.Decrease(ctx, 99)
	s.Remove(ctx, 99)

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 1 {
		t.Errorf("unknown ids must change nothing, got %+v", snap.Items)
	}
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSynchronizer(Options{Remote: &fakeRemote{}})

	s.Add(ctx, testProduct(5, 4.9, 0.8))
	s.Add(ctx, testProduct(2, 7.9, 2.9))
	s.Add(ctx, testProduct(5, 4.9, 0.8))

	lines := s.Lines()
	want := []core.CartLineInput{{ProductID: 5, Quantity: 2}, {ProductID: 2, Quantity: 1}}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("Lines = %+v, want %+v", lines, want)
	}
}

func TestAuthenticatedMutationSyncsAndAppliesServerTotals(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	resolver := &fakeResolver{products: map[int]core.Product{4: testProduct(4, 2.0, 1.2)}}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Resolver:      resolver,
		Authenticated: func() bool { return true },
	})

	s.Add(ctx, testProduct(4, 2.0, 1.2))
	s.Wait()

	snap := s.Snapshot()
	if snap.State != StateSynced {
		t.Fatalf("State = %v, err = %v", snap.State, snap.Err)
	}
	// Server cents are authoritative for price; CO2 stays client-computed.
	if snap.Totals.TotalPrice != 4.0 {
		t.Errorf("TotalPrice = %v, want the server's total", snap.Totals.TotalPrice)
	}
	if snap.Totals.TotalCO2 != 1.2 {
		t.Errorf("TotalCO2 = %v", snap.Totals.TotalCO2)
	}
	if got := remote.replaceCount(); got != 1 {
		t.Errorf("replace calls = %d", got)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	staleGate := make(chan struct{})
	remote := &fakeRemote{}
	remote.onReplace = func(call int, lines []core.CartLineInput) (*RemoteState, error) {
		// Hold the superseded single-unit request until the newer
		// two-unit response has landed.
		if len(lines) == 1 && lines[0].Quantity == 1 {
			<-staleGate
		}
		return echoState(lines), nil
	}

	resolver := &fakeResolver{products: map[int]core.Product{1: testProduct(1, 1.0, 0.5)}}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Resolver:      resolver,
		Authenticated: func() bool { return true },
	})

	p := testProduct(1, 1.0, 0.5)
	s.Add(ctx, p) // request 1: 1 unit, delayed
	s.Add(ctx, p) // request 2: 2 units, completes first

	// Let request 2 settle, then release the stale response.
	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot().State != StateSynced {
		if time.Now().After(deadline) {
			t.Fatal("newer sync never settled")
		}
		time.Sleep(time.Millisecond)
	}
	close(staleGate)
	s.Wait()

	snap := s.Snapshot()
	if snap.State != StateSynced {
		t.Fatalf("State = %v", snap.State)
	}
	if snap.Count() != 2 {
		t.Errorf("Count = %d, stale single-unit response must not win", snap.Count())
	}
	if snap.Totals.TotalPrice != 2.0 {
		t.Errorf("TotalPrice = %v, want the newest server total", snap.Totals.TotalPrice)
	}
}

func TestSyncFailureKeepsOptimisticState(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	remote.onReplace = func(call int, lines []core.CartLineInput) (*RemoteState, error) {
		return nil, &gateway.APIError{
			Status:  400,
			Payload: map[string]interface{}{"detail": "Stock insuffisant"},
		}
	}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Authenticated: func() bool { return true },
	})

	s.Add(ctx, testProduct(1, 6.5, 2.1))
	s.Wait()

	snap := s.Snapshot()
	if snap.State != StateSyncFailed {
		t.Fatalf("State = %v", snap.State)
	}
	if len(snap.Items) != 1 {
		t.Error("optimistic items must survive a failed sync")
	}
	if snap.Err == nil || !errors.Is(snap.Err, core.ErrValidation) {
		t.Errorf("Err = %v, must stay recoverable", snap.Err)
	}

	// The failure is recoverable: the next mutation retries the sync.
	remote.mu.Lock()
	remote.onReplace = nil
	remote.mu.Unlock()
	s.Increase(ctx, 1)
	s.Wait()
	if got := s.Snapshot().State; got != StateSynced {
		t.Errorf("State after retry = %v", got)
	}
}

func TestEmptyClearsRemotely(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Authenticated: func() bool { return true },
	})

	s.Add(ctx, testProduct(1, 6.5, 2.1))
	s.Empty(ctx)
	s.Wait()

	snap := s.Snapshot()
	if len(snap.Items) != 0 || snap.Totals.TotalPrice != 0 {
		t.Errorf("snapshot after Empty = %+v", snap)
	}
	remote.mu.Lock()
	clears := remote.clearCalls
	remote.mu.Unlock()
	if clears != 1 {
		t.Errorf("clear calls = %d", clears)
	}
}

func TestSyncFromRemoteReconcilesAfterLogin(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	remote.onFetch = func() (*RemoteState, error) {
		return &RemoteState{
			Items: []RemoteItem{
				{ProductID: 4, ProductTitle: "Pains de la veille (x4)", Quantity: 2, UnitPriceCents: 200},
			},
			TotalItems:       2,
			TotalAmountCents: 400,
		}, nil
	}
	resolver := &fakeResolver{products: map[int]core.Product{4: testProduct(4, 2.0, 1.2)}}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Resolver:      resolver,
		Authenticated: func() bool { return true },
	})

	s.SyncFromRemote(ctx)
	s.Wait()

	snap := s.Snapshot()
	if snap.State != StateSynced {
		t.Fatalf("State = %v, err = %v", snap.State, snap.Err)
	}
	if snap.Count() != 2 {
		t.Errorf("Count = %d", snap.Count())
	}
	if snap.Totals.TotalPrice != 4.0 {
		t.Errorf("TotalPrice = %v", snap.Totals.TotalPrice)
	}
	if snap.Totals.TotalCO2 != 2.4 {
		t.Errorf("TotalCO2 = %v", snap.Totals.TotalCO2)
	}
}

func TestResolverMissReconcilesWithPlaceholder(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	remote.onFetch = func() (*RemoteState, error) {
		return &RemoteState{
			Items:            []RemoteItem{{ProductID: 77, ProductTitle: "Produit retire", Quantity: 1, UnitPriceCents: 350}},
			TotalItems:       1,
			TotalAmountCents: 350,
		}, nil
	}
	s := NewSynchronizer(Options{
		Remote:        remote,
		Resolver:      &fakeResolver{},
		Authenticated: func() bool { return true },
	})

	s.SyncFromRemote(ctx)
	s.Wait()

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("Items = %+v", snap.Items)
	}
	item := snap.Items[0]
	if item.Name != "Produit retire" {
		t.Errorf("Name = %q", item.Name)
	}
	if item.Price != 3.5 {
		t.Errorf("Price = %v, server unit price must win", item.Price)
	}
}

func TestSubscribersSeeStateTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewSynchronizer(Options{
		Remote:        &fakeRemote{},
		Authenticated: func() bool { return true },
	})

	var mu sync.Mutex
	var states []State
	cancel := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	})
	defer cancel()

	s.Add(ctx, testProduct(1, 1.0, 0.1))
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateSyncing || states[len(states)-1] != StateSynced {
		t.Errorf("states = %v", states)
	}
}
