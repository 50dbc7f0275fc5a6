// Package analytics records consent for behavioural tracking and, when
// granted, emits best-effort usage events. Nothing in this package ever
// fails a user-facing operation.
package analytics

import (
	"context"
	"sync"

	"github.com/greencart/storefront/core"
)

// Consent is the recorded analytics preference.
type Consent int

const (
	// ConsentUnset means the user has not decided yet; tracking stays
	// off and the caller should keep showing its consent prompt.
	ConsentUnset Consent = iota
	ConsentGranted
	ConsentDenied
)

func (c Consent) String() string {
	switch c {
	case ConsentGranted:
		return "granted"
	case ConsentDenied:
		return "denied"
	default:
		return "unset"
	}
}

// consentKey is shared by every Memory backend so a store swap keeps
// the recorded preference readable.
const consentKey = "greencart_consent_analytics"

// ConsentStore persists the analytics preference in a Memory backend
// and broadcasts changes to subscribers.
type ConsentStore struct {
	mem    core.Memory
	logger core.Logger

	mu   sync.Mutex
	next int
	fns  map[int]func(Consent)
}

// NewConsentStore creates a consent store over the given backend.
func NewConsentStore(mem core.Memory, logger core.Logger) *ConsentStore {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &ConsentStore{mem: mem, logger: logger}
}

// Get reads the recorded preference. Read errors and unknown stored
// values report ConsentUnset.
func (s *ConsentStore) Get(ctx context.Context) Consent {
	value, err := s.mem.Get(ctx, consentKey)
	if err != nil {
		s.logger.Warn("Consent read failed, treating as unset", map[string]interface{}{
			"operation": "consent_get",
			"error":     err,
		})
		return ConsentUnset
	}
	switch value {
	case "granted":
		return ConsentGranted
	case "denied":
		return ConsentDenied
	default:
		return ConsentUnset
	}
}

// Set records the preference and notifies subscribers. ConsentUnset
// removes the stored value.
func (s *ConsentStore) Set(ctx context.Context, consent Consent) error {
	var err error
	if consent == ConsentUnset {
		err = s.mem.Delete(ctx, consentKey)
	} else {
		err = s.mem.Set(ctx, consentKey, consent.String(), 0)
	}
	if err != nil {
		return core.NewStoreError("analytics.SetConsent", "analytics", err)
	}
	s.broadcast(consent)
	return nil
}

// Subscribe registers fn for consent changes and returns a cancel
// function. Trackers use this to start or stop emitting immediately.
func (s *ConsentStore) Subscribe(fn func(Consent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Consent))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *ConsentStore) broadcast(consent Consent) {
	s.mu.Lock()
	fns := make([]func(Consent), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(consent)
	}
}
