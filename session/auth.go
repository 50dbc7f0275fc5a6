package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

// Wire types for the auth endpoints.

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type apiUser struct {
	ID                int     `json:"id"`
	Email             string  `json:"email"`
	Role              string  `json:"role"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Region            *string `json:"region"`
	IsActive          bool    `json:"is_active"`
	EmailVerifiedAt   *string `json:"email_verified_at"`
	LastLoginAt       *string `json:"last_login_at"`
	ConsentNewsletter bool    `json:"consent_newsletter"`
	ConsentAnalytics  bool    `json:"consent_analytics"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func mapUser(u apiUser) *core.User {
	return &core.User{
		ID:                u.ID,
		Email:             u.Email,
		Role:              core.ParseRole(u.Role),
		FirstName:         deref(u.FirstName),
		LastName:          deref(u.LastName),
		Region:            deref(u.Region),
		IsActive:          u.IsActive,
		EmailVerifiedAt:   parseTimePtr(u.EmailVerifiedAt),
		LastLoginAt:       parseTimePtr(u.LastLoginAt),
		ConsentNewsletter: u.ConsentNewsletter,
		ConsentAnalytics:  u.ConsentAnalytics,
		CreatedAt:         parseTime(u.CreatedAt),
		UpdatedAt:         parseTime(u.UpdatedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

// RegisterInput is the account-creation payload.
type RegisterInput struct {
	Email             string
	Password          string
	Role              core.Role
	FirstName         string
	LastName          string
	Region            string
	ConsentNewsletter bool
	ConsentAnalytics  bool
}

// refreshCall coalesces concurrent refresh attempts into one call.
type refreshCall struct {
	done   chan struct{}
	tokens *core.Tokens
	err    error
}

// AuthClient owns login, registration, token refresh and the cached
// user profile. The profile lives in memory only and is re-fetched by
// Bootstrap after a restart.
type AuthClient struct {
	api    *gateway.Client
	store  core.TokenStore
	logger core.Logger

	mu            sync.RWMutex
	user          *core.User
	bootstrapping bool

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// NewAuthClient creates an auth client over the gateway and token store.
func NewAuthClient(api *gateway.Client, store core.TokenStore, logger core.Logger) *AuthClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &AuthClient{
		api:    api,
		store:  store,
		logger: logger,
		// The gate must report pending until Bootstrap has run once,
		// so a stored session is never mistaken for logged-out.
		bootstrapping: true,
	}
}

// Store exposes the underlying token store for subscription wiring.
func (a *AuthClient) Store() core.TokenStore {
	return a.store
}

// CurrentUser returns the cached profile, nil when logged out.
func (a *AuthClient) CurrentUser() *core.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

// IsAuthenticated reports whether a user profile is loaded.
func (a *AuthClient) IsAuthenticated() bool {
	return a.CurrentUser() != nil
}

// Bootstrapping reports whether the initial session validation is
// still in flight.
func (a *AuthClient) Bootstrapping() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bootstrapping
}

// Bootstrap validates a stored session at startup: try /auth/me with
// the stored access token, fall back to one refresh, and clear the
// session entirely when both fail. Returns the user, or nil when no
// session exists.
func (a *AuthClient) Bootstrap(ctx context.Context) (*core.User, error) {
	defer func() {
		a.mu.Lock()
		a.bootstrapping = false
		a.mu.Unlock()
	}()

	tokens, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, nil
	}

	user, err := a.fetchUser(ctx, tokens.AccessToken)
	if err != nil {
		refreshed, rerr := a.Refresh(ctx)
		if rerr != nil {
			a.logger.Info("Stored session invalid, logging out", map[string]interface{}{
				"operation": "auth_bootstrap",
				"error":     rerr,
			})
			a.clearSession(ctx)
			return nil, nil
		}
		user, err = a.fetchUser(ctx, refreshed.AccessToken)
		if err != nil {
			a.clearSession(ctx)
			return nil, nil
		}
	}

	a.setUser(user)
	return user, nil
}

// Login exchanges credentials for a token pair, stores it, and loads
// the user profile.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*core.User, error) {
	var resp tokenResponse
	err := a.api.Do(ctx, gateway.Request{
		Method: "POST",
		Path:   "/auth/login",
		Body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	tokens := core.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := a.store.Store(ctx, tokens); err != nil {
		return nil, err
	}

	user, err := a.fetchUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	a.setUser(user)

	a.logger.Info("User logged in", map[string]interface{}{
		"operation": "auth_login",
		"user_id":   user.ID,
		"role":      string(user.Role),
	})
	return user, nil
}

// Register creates an account then logs it in.
func (a *AuthClient) Register(ctx context.Context, input RegisterInput) (*core.User, error) {
	role := input.Role
	if role == "" {
		role = core.RoleConsumer
	}
	body := map[string]interface{}{
		"email":              input.Email,
		"password":           input.Password,
		"role":               string(role),
		"consent_newsletter": input.ConsentNewsletter,
		"consent_analytics":  input.ConsentAnalytics,
	}
	if input.FirstName != "" {
		body["first_name"] = input.FirstName
	}
	if input.LastName != "" {
		body["last_name"] = input.LastName
	}
	if input.Region != "" {
		body["region"] = input.Region
	}

	var created apiUser
	if err := a.api.Do(ctx, gateway.Request{
		Method: "POST",
		Path:   "/auth/register",
		Body:   body,
	}, &created); err != nil {
		return nil, err
	}

	return a.Login(ctx, input.Email, input.Password)
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers are coalesced into a single in-flight request; everyone gets
// the same result.
func (a *AuthClient) Refresh(ctx context.Context) (*core.Tokens, error) {
	a.refreshMu.Lock()
	if call := a.inflight; call != nil {
		a.refreshMu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-call.done:
			return call.tokens, call.err
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	a.inflight = call
	a.refreshMu.Unlock()

	tokens, err := a.doRefresh(ctx)
	call.tokens, call.err = tokens, err
	close(call.done)

	a.refreshMu.Lock()
	a.inflight = nil
	a.refreshMu.Unlock()

	return tokens, err
}

func (a *AuthClient) doRefresh(ctx context.Context) (*core.Tokens, error) {
	stored, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, core.ErrLoginRequired
	}

	var resp tokenResponse
	err = a.api.Do(ctx, gateway.Request{
		Method: "POST",
		Path:   "/auth/refresh",
		Body:   map[string]string{"refresh_token": stored.RefreshToken},
	}, &resp)
	if err != nil {
		if core.IsAuthError(err) || core.IsValidationError(err) {
			// Irrecoverable: the refresh token itself was rejected.
			a.clearSession(ctx)
			return nil, fmt.Errorf("refresh rejected: %w", core.ErrSessionExpired)
		}
		return nil, err
	}

	tokens := core.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := a.store.Store(ctx, tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Logout clears the stored session and cached profile.
func (a *AuthClient) Logout(ctx context.Context) {
	a.clearSession(ctx)
	a.logger.Info("User logged out", map[string]interface{}{
		"operation": "auth_logout",
	})
}

// AccessToken returns the stored access token, or ErrLoginRequired.
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	tokens, err := a.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if tokens == nil {
		return "", core.ErrLoginRequired
	}
	return tokens.AccessToken, nil
}

// WithAuth runs fn with the current access token and performs the
// one-shot refresh-and-retry on a 401. A second 401, or a failed
// refresh, surfaces as ErrLoginRequired after the session is cleared.
func (a *AuthClient) WithAuth(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, token)
	if err == nil || !errors.Is(err, core.ErrUnauthorized) {
		return err
	}

	refreshed, rerr := a.Refresh(ctx)
	if rerr != nil {
		if core.IsAuthError(rerr) {
			return fmt.Errorf("session expired: %w", core.ErrLoginRequired)
		}
		return rerr
	}
	return fn(ctx, refreshed.AccessToken)
}

func (a *AuthClient) fetchUser(ctx context.Context, token string) (*core.User, error) {
	var u apiUser
	err := a.api.Do(ctx, gateway.Request{
		Path:      "/auth/me",
		AuthToken: token,
	}, &u)
	if err != nil {
		return nil, err
	}
	return mapUser(u), nil
}

func (a *AuthClient) setUser(user *core.User) {
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
}

func (a *AuthClient) clearSession(ctx context.Context) {
	if err := a.store.Clear(ctx); err != nil {
		a.logger.Warn("Failed to clear token store", map[string]interface{}{
			"operation": "auth_clear",
			"error":     err,
		})
	}
	a.setUser(nil)
}
