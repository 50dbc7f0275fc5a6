// Package session owns the authentication session: the persisted
// access/refresh token pair, the auth client that mutates it, and the
// role gate that consumes it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/greencart/storefront/core"
)

// Fixed storage keys, shared by every backend so a store swap keeps
// existing sessions readable.
const (
	accessTokenKey  = "greencart_access_token"
	refreshTokenKey = "greencart_refresh_token"
)

// notifier implements the TokenStore subscription mechanism.
type notifier struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(*core.Tokens)
}

func (n *notifier) subscribe(fn func(*core.Tokens)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fns == nil {
		n.fns = make(map[int]func(*core.Tokens))
	}
	id := n.next
	n.next++
	n.fns[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.fns, id)
	}
}

func (n *notifier) broadcast(tokens *core.Tokens) {
	n.mu.Lock()
	fns := make([]func(*core.Tokens), 0, len(n.fns))
	for _, fn := range n.fns {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(tokens)
	}
}

// MemoryTokenStore keeps the token pair in process memory. Sessions do
// not survive a restart; useful for tests and short-lived tools.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens *core.Tokens
	notify notifier
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Store(ctx context.Context, tokens core.Tokens) error {
	if !tokens.Valid() {
		return fmt.Errorf("store tokens: %w", core.ErrInvalidConfiguration)
	}
	s.mu.Lock()
	copied := tokens
	s.tokens = &copied
	s.mu.Unlock()
	s.notify.broadcast(&copied)
	return nil
}

func (s *MemoryTokenStore) Load(ctx context.Context) (*core.Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil || !s.tokens.Valid() {
		return nil, nil
	}
	copied := *s.tokens
	return &copied, nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = nil
	s.mu.Unlock()
	s.notify.broadcast(nil)
	return nil
}

func (s *MemoryTokenStore) Subscribe(fn func(*core.Tokens)) func() {
	return s.notify.subscribe(fn)
}

// FileTokenStore persists the token pair as a mode-0600 JSON file, the
// closest server-side analogue to browser local storage: scoped to one
// machine profile, surviving restarts.
type FileTokenStore struct {
	mu     sync.Mutex
	path   string
	notify notifier
	logger core.Logger
}

// NewFileTokenStore creates a store writing to the given path.
func NewFileTokenStore(path string, logger core.Logger) *FileTokenStore {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &FileTokenStore{path: path, logger: logger}
}

func (s *FileTokenStore) Store(ctx context.Context, tokens core.Tokens) error {
	if !tokens.Valid() {
		return fmt.Errorf("store tokens: %w", core.ErrInvalidConfiguration)
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return core.NewStoreError("session.Store", "session", err)
	}

	s.mu.Lock()
	err = os.WriteFile(s.path, data, 0o600)
	s.mu.Unlock()
	if err != nil {
		return core.NewStoreError("session.Store", "session", err)
	}
	s.notify.broadcast(&tokens)
	return nil
}

func (s *FileTokenStore) Load(ctx context.Context) (*core.Tokens, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStoreError("session.Load", "session", err)
	}

	var tokens core.Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		// A corrupt session file reads as logged-out rather than
		// wedging every authenticated call.
		s.logger.Warn("Discarding unreadable session file", map[string]interface{}{
			"operation": "session_load",
			"path":      s.path,
			"error":     err,
		})
		return nil, nil
	}
	if !tokens.Valid() {
		return nil, nil
	}
	return &tokens, nil
}

func (s *FileTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := os.Remove(s.path)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return core.NewStoreError("session.Clear", "session", err)
	}
	s.notify.broadcast(nil)
	return nil
}

func (s *FileTokenStore) Subscribe(fn func(*core.Tokens)) func() {
	return s.notify.subscribe(fn)
}

// RedisTokenStore keeps the token pair in a shared Memory backend
// (typically core.RedisClient) so several storefront processes serving
// the same device session agree on it.
type RedisTokenStore struct {
	mem    core.Memory
	notify notifier
}

// NewRedisTokenStore creates a store over the given Memory backend.
func NewRedisTokenStore(mem core.Memory) *RedisTokenStore {
	return &RedisTokenStore{mem: mem}
}

func (s *RedisTokenStore) Store(ctx context.Context, tokens core.Tokens) error {
	if !tokens.Valid() {
		return fmt.Errorf("store tokens: %w", core.ErrInvalidConfiguration)
	}
	if err := s.mem.Set(ctx, accessTokenKey, tokens.AccessToken, 0); err != nil {
		return err
	}
	if err := s.mem.Set(ctx, refreshTokenKey, tokens.RefreshToken, 0); err != nil {
		return err
	}
	s.notify.broadcast(&tokens)
	return nil
}

func (s *RedisTokenStore) Load(ctx context.Context) (*core.Tokens, error) {
	access, err := s.mem.Get(ctx, accessTokenKey)
	if err != nil {
		return nil, err
	}
	refresh, err := s.mem.Get(ctx, refreshTokenKey)
	if err != nil {
		return nil, err
	}
	tokens := core.Tokens{AccessToken: access, RefreshToken: refresh}
	// Partial state is treated as absent.
	if !tokens.Valid() {
		return nil, nil
	}
	return &tokens, nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.mem.Delete(ctx, accessTokenKey); err != nil {
		return err
	}
	if err := s.mem.Delete(ctx, refreshTokenKey); err != nil {
		return err
	}
	s.notify.broadcast(nil)
	return nil
}

func (s *RedisTokenStore) Subscribe(fn func(*core.Tokens)) func() {
	return s.notify.subscribe(fn)
}
