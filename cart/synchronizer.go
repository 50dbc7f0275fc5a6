// Package cart implements the client-side shopping cart: an optimistic
// local state mirrored to the remote cart when authenticated, with
// server-reported totals taken as authoritative once a sync completes.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

// State is the synchronizer's position in the current mutation cycle.
type State int

const (
	// StateIdle means local state is settled and no sync is pending
	// (always the case while unauthenticated).
	StateIdle State = iota
	// StateOptimistic means a local change was applied and a sync has
	// not been issued (unauthenticated mutations end here before
	// settling back to idle).
	StateOptimistic
	// StateSyncing means a full-replace sync is in flight.
	StateSyncing
	// StateSynced means the server's authoritative response was applied.
	StateSynced
	// StateSyncFailed means the last sync failed; local optimistic
	// state is preserved and Err carries the recoverable error.
	StateSyncFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateSyncFailed:
		return "sync-failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the cart for rendering.
type Snapshot struct {
	Items  []core.CartItem
	Totals core.CartTotals
	State  State
	Err    error
}

// Count returns the total unit count across items.
func (s Snapshot) Count() int {
	count := 0
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

// ProductResolver looks up product snapshots when reconciling remote
// cart lines. catalogue.Reader satisfies it.
type ProductResolver interface {
	GetByID(ctx context.Context, id int) (*core.Product, error)
}

// Synchronizer holds local cart state and mirrors it to the remote
// cart. Every mutation applies locally and recomputes totals
// synchronously, so callers never wait on the network to see their
// intent; the remote sync then reconciles in the background.
//
// A monotonically increasing sequence number guards against
// out-of-order responses: a response is applied only if its request is
// still the most recent one issued. An older sync response must never
// overwrite a newer optimistic or synced state.
type Synchronizer struct {
	remote        Remote
	resolver      ProductResolver
	authenticated func() bool
	logger        core.Logger

	mu      sync.Mutex
	items   []core.CartItem
	totals  core.CartTotals
	state   State
	syncErr error
	seq     uint64

	subsMu sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int

	wg sync.WaitGroup
}

// Options configures a Synchronizer.
type Options struct {
	Remote   Remote
	Resolver ProductResolver
	// Authenticated reports whether a session exists; when it returns
	// false no remote sync is attempted and totals are purely local.
	Authenticated func() bool
	Logger        core.Logger
}

// NewSynchronizer creates an empty cart.
func NewSynchronizer(opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	authenticated := opts.Authenticated
	if authenticated == nil {
		authenticated = func() bool { return false }
	}
	return &Synchronizer{
		remote:        opts.Remote,
		resolver:      opts.Resolver,
		authenticated: authenticated,
		logger:        logger,
		state:         StateIdle,
		subs:          make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current cart state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	items := make([]core.CartItem, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:  items,
		Totals: s.totals,
		State:  s.state,
		Err:    s.syncErr,
	}
}

// Subscribe registers a callback invoked after every state change.
// Callbacks must not block.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Synchronizer) notify(snap Snapshot) {
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Lines returns the full-replace payload for the current items.
func (s *Synchronizer) Lines() []core.CartLineInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return linesOf(s.items)
}

func linesOf(items []core.CartItem) []core.CartLineInput {
	lines := make([]core.CartLineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, core.CartLineInput{ProductID: item.ID, Quantity: item.Quantity})
	}
	return lines
}

// Add inserts one unit of product, appending a new entry on first add
// (insertion order is preserved).
func (s *Synchronizer) Add(ctx context.Context, product core.Product) {
	s.apply(ctx, false, func(items []core.CartItem) []core.CartItem {
		for i := range items {
			if items[i].ID == product.ID {
				items[i].Quantity++
				return items
			}
		}
		return append(items, core.CartItem{Product: product, Quantity: 1})
	})
}

// Increase adds one unit to an existing item; unknown ids are a no-op.
func (s *Synchronizer) Increase(ctx context.Context, id int) {
	s.apply(ctx, false, func(items []core.CartItem) []core.CartItem {
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity++
				break
			}
		}
		return items
	})
}

// Decrease removes one unit; an item reaching quantity 0 is deleted.
func (s *Synchronizer) Decrease(ctx context.Context, id int) {
	s.apply(ctx, false, func(items []core.CartItem) []core.CartItem {
		out := items[:0]
		for _, item := range items {
			if item.ID == id {
				item.Quantity--
			}
			if item.Quantity > 0 {
				out = append(out, item)
			}
		}
		return out
	})
}

// Remove deletes an item entirely; unknown ids are a no-op.
func (s *Synchronizer) Remove(ctx context.Context, id int) {
	s.apply(ctx, false, func(items []core.CartItem) []core.CartItem {
		out := items[:0]
		for _, item := range items {
			if item.ID != id {
				out = append(out, item)
			}
		}
		return out
	})
}

// Empty discards every item, locally and (when authenticated) remotely.
func (s *Synchronizer) Empty(ctx context.Context) {
	s.apply(ctx, true, func(items []core.CartItem) []core.CartItem {
		return nil
	})
}

// apply runs a mutation: synchronous local apply and total recompute,
// then an asynchronous full-replace sync when authenticated.
func (s *Synchronizer) apply(ctx context.Context, clear bool, mutate func([]core.CartItem) []core.CartItem) {
	s.mu.Lock()

	next := mutate(s.copyItemsLocked())
	s.items = next
	s.totals = core.ComputeCartTotals(next)

	if !s.authenticated() {
		// Local-only mode: the mutation settles immediately.
		s.state = StateIdle
		s.syncErr = nil
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	s.seq++
	seq := s.seq
	s.state = StateSyncing
	s.syncErr = nil
	lines := linesOf(next)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if clear {
			s.runClear(ctx, seq)
			return
		}
		s.runReplace(ctx, seq, lines)
	}()
}

// SyncFromRemote pulls the authoritative remote cart, typically after
// login, replacing local state when the response is still current.
func (s *Synchronizer) SyncFromRemote(ctx context.Context) {
	if !s.authenticated() {
		s.mu.Lock()
		s.totals = core.ComputeCartTotals(s.items)
		s.state = StateIdle
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = StateSyncing
	s.syncErr = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		state, err := s.remote.Fetch(ctx)
		if err != nil {
			s.applyFailure(seq, err)
			return
		}
		s.applyRemote(ctx, seq, state)
	}()
}

// Wait blocks until every issued sync has settled. Test hook.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) runReplace(ctx context.Context, seq uint64, lines []core.CartLineInput) {
	state, err := s.remote.Replace(ctx, lines)
	if err != nil {
		s.applyFailure(seq, err)
		return
	}
	s.applyRemote(ctx, seq, state)
}

func (s *Synchronizer) runClear(ctx context.Context, seq uint64) {
	if err := s.remote.Clear(ctx); err != nil {
		s.applyFailure(seq, err)
		return
	}
	s.applyRemote(ctx, seq, &RemoteState{})
}

// applyRemote installs the server's authoritative state, unless a newer
// request has been issued in the meantime.
func (s *Synchronizer) applyRemote(ctx context.Context, seq uint64, state *RemoteState) {
	if s.stale(seq) {
		return
	}

	// Resolve product snapshots outside the lock; network I/O here
	// must not block concurrent mutations.
	items := make([]core.CartItem, 0, len(state.Items))
	for _, line := range state.Items {
		items = append(items, s.resolveItem(ctx, line))
	}
	co2 := core.ComputeCartTotals(items).TotalCO2

	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale cart sync response", map[string]interface{}{
			"operation": "cart_sync",
			"seq":       seq,
		})
		return
	}
	s.items = items
	// Server-computed amounts win (price drift, stock caps); CO2 is a
	// client-side estimate the backend does not report per cart.
	s.totals = core.CartTotals{
		TotalPrice: float64(state.TotalAmountCents) / 100,
		TotalCO2:   co2,
	}
	s.state = StateSynced
	s.syncErr = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// applyFailure records a sync failure, keeping the optimistic local
// state so the user never loses their cart while they adjust.
func (s *Synchronizer) applyFailure(seq uint64, err error) {
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		return
	}
	s.state = StateSyncFailed
	if detail := gateway.DetailOf(err); detail != "" {
		s.syncErr = fmt.Errorf("%s: %w", detail, err)
	} else {
		s.syncErr = core.NewStoreError("cart.Sync", "cart", err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Warn("Cart sync failed, keeping local state", map[string]interface{}{
		"operation": "cart_sync",
		"error":     err,
	})
	s.notify(snap)
}

// stale checks the guard without mutating anything.
func (s *Synchronizer) stale(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq != seq
}

// resolveItem builds a CartItem from a remote line, preferring the full
// catalogue snapshot and degrading to a minimal one when lookup fails.
// The server's unit price always wins.
func (s *Synchronizer) resolveItem(ctx context.Context, line RemoteItem) core.CartItem {
	var product *core.Product
	if s.resolver != nil {
		fetched, err := s.resolver.GetByID(ctx, line.ProductID)
		if err != nil {
			s.logger.Debug("Product lookup failed while reconciling cart", map[string]interface{}{
				"operation":  "cart_resolve",
				"product_id": line.ProductID,
				"error":      err,
			})
		}
		product = fetched
	}
	if product == nil {
		product = &core.Product{
			ID:           line.ProductID,
			Slug:         fmt.Sprintf("%d", line.ProductID),
			Name:         line.ProductTitle,
			Region:       "France",
			Category:     "Produit",
			Availability: core.AvailabilityNormal,
			Unit:         "Unite",
		}
	}

	item := core.CartItem{Product: *product, Quantity: line.Quantity}
	item.Price = float64(line.UnitPriceCents) / 100
	item.PriceCents = line.UnitPriceCents
	return item
}

// copyItemsLocked returns a mutable copy of items. Callers hold s.mu.
func (s *Synchronizer) copyItemsLocked() []core.CartItem {
	items := make([]core.CartItem, len(s.items))
	copy(items, s.items)
	return items
}
