package session

import (
	"context"
	"testing"

	"github.com/greencart/storefront/core"
)

func TestAllowed(t *testing.T) {
	consumer := &core.User{ID: 1, Role: core.RoleConsumer}
	producer := &core.User{ID: 2, Role: core.RoleProducer}
	admin := &core.User{ID: 3, Role: core.RoleAdmin}

	tests := []struct {
		name     string
		user     *core.User
		required []core.Role
		want     bool
	}{
		{"no requirement, no user", nil, nil, true},
		{"no requirement, any user", consumer, nil, true},
		{"requirement, no user", nil, []core.Role{core.RoleConsumer}, false},
		{"matching role", producer, []core.Role{core.RoleProducer}, true},
		{"non-matching role", consumer, []core.Role{core.RoleAdmin}, false},
		{"one of several roles", admin, []core.Role{core.RoleProducer, core.RoleAdmin}, true},
		{"admin is not implicitly producer", admin, []core.Role{core.RoleProducer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.user, tt.required...); got != tt.want {
				t.Errorf("Allowed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGatePendingDuringBootstrap(t *testing.T) {
	auth, _, _, done := newAuthFixture(t)
	defer done()

	gate := NewGate(auth, nil, nil)
	if got := gate.Check(core.RoleConsumer); got != AccessPending {
		t.Errorf("expected pending before bootstrap, got %v", got)
	}

	// Unrestricted views never wait on bootstrap.
	if got := gate.Check(); got != AccessGranted {
		t.Errorf("expected granted for unrestricted view, got %v", got)
	}
}

func TestGateDeniesAndSignals(t *testing.T) {
	auth, _, _, done := newAuthFixture(t)
	defer done()
	ctx := context.Background()

	if _, err := auth.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	prompted := 0
	gate := NewGate(auth, func() { prompted++ }, nil)

	if got := gate.Check(core.RoleConsumer); got != AccessDenied {
		t.Fatalf("expected denied without session, got %v", got)
	}
	if prompted != 1 {
		t.Errorf("denial must invoke onDenied, got %d", prompted)
	}
}

func TestGateGrantsAfterLogin(t *testing.T) {
	auth, _, _, done := newAuthFixture(t)
	defer done()
	ctx := context.Background()

	if _, err := auth.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if _, err := auth.Login(ctx, "claire@example.test", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	gate := NewGate(auth, nil, nil)
	if got := gate.Check(core.RoleConsumer); got != AccessGranted {
		t.Errorf("expected granted for consumer, got %v", got)
	}
	if got := gate.Check(core.RoleAdmin); got != AccessDenied {
		t.Errorf("expected denied for admin view, got %v", got)
	}
}
