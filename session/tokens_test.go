package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/greencart/storefront/core"
)

var testTokens = core.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}

func TestMemoryTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	loaded, err := store.Load(ctx)
	if err != nil || loaded != nil {
		t.Fatalf("empty store: %v, %v", loaded, err)
	}

	if err := store.Store(ctx, testTokens); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || *loaded != testTokens {
		t.Errorf("Load = %+v", loaded)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	loaded, _ = store.Load(ctx)
	if loaded != nil {
		t.Error("Load after Clear must be nil")
	}
}

func TestMemoryTokenStoreRejectsPartialPair(t *testing.T) {
	store := NewMemoryTokenStore()
	err := store.Store(context.Background(), core.Tokens{AccessToken: "only-half"})
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestTokenStoreSubscription(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	var events []*core.Tokens
	cancel := store.Subscribe(func(tokens *core.Tokens) {
		events = append(events, tokens)
	})

	store.Store(ctx, testTokens)
	store.Clear(ctx)
	cancel()
	store.Store(ctx, testTokens)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0] == nil || events[0].AccessToken != "access-1" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1] != nil {
		t.Errorf("clear must broadcast nil, got %+v", events[1])
	}
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileTokenStore(path, nil)

	if err := store.Store(ctx, testTokens); err != nil {
		t.Fatalf("Store: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("session file mode = %v", info.Mode().Perm())
	}

	// A fresh store over the same path sees the session.
	reopened := NewFileTokenStore(path, nil)
	loaded, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || *loaded != testTokens {
		t.Errorf("Load = %+v", loaded)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("Clear must remove the session file")
	}
}

func TestFileTokenStoreMissingFileReadsAsLoggedOut(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "absent.json"), nil)
	loaded, err := store.Load(context.Background())
	if err != nil || loaded != nil {
		t.Errorf("missing file: %+v, %v", loaded, err)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Errorf("Clear on missing file: %v", err)
	}
}

func TestFileTokenStoreCorruptFileReadsAsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewFileTokenStore(path, nil)
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt file must not error: %v", err)
	}
	if loaded != nil {
		t.Errorf("corrupt file must read as logged out, got %+v", loaded)
	}
}

func TestRedisTokenStorePartialPairReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	mem := core.NewMemoryStore()
	store := NewRedisTokenStore(mem)

	// One half present only: treated as no session.
	if err := mem.Set(ctx, "greencart_access_token", "orphan", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("partial pair must read as absent, got %+v", loaded)
	}

	if err := store.Store(ctx, testTokens); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil || loaded == nil || *loaded != testTokens {
		t.Errorf("Load = %+v, %v", loaded, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	loaded, _ = store.Load(ctx)
	if loaded != nil {
		t.Error("Load after Clear must be nil")
	}
}
