package session

import "github.com/greencart/storefront/core"

// Access is the role gate's verdict for a view.
type Access int

const (
	// AccessPending means the auth bootstrap is still in flight; the
	// caller should render a neutral loading state, never a premature
	// login prompt.
	AccessPending Access = iota
	// AccessGranted allows the view.
	AccessGranted
	// AccessDenied blocks the view and signals the login prompt.
	AccessDenied
)

// String returns the string representation of the verdict
func (a Access) String() string {
	switch a {
	case AccessPending:
		return "pending"
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Allowed reports whether user may view a page requiring one of the
// given roles. No requirement always allows; a requirement with no
// user always denies.
func Allowed(user *core.User, required ...core.Role) bool {
	if len(required) == 0 {
		return true
	}
	if user == nil {
		return false
	}
	for _, role := range required {
		if user.Role == role {
			return true
		}
	}
	return false
}

// Gate composes the auth client's state into per-view access checks.
type Gate struct {
	auth     *AuthClient
	onDenied func()
	logger   core.Logger
}

// NewGate creates a gate. onDenied, when non-nil, is invoked on every
// denial so the embedding app can raise its login prompt.
func NewGate(auth *AuthClient, onDenied func(), logger core.Logger) *Gate {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Gate{auth: auth, onDenied: onDenied, logger: logger}
}

// Check evaluates access for the given role requirement.
func (g *Gate) Check(required ...core.Role) Access {
	if len(required) > 0 && g.auth.Bootstrapping() {
		return AccessPending
	}
	user := g.auth.CurrentUser()
	if Allowed(user, required...) {
		return AccessGranted
	}

	g.logger.Debug("Access denied", map[string]interface{}{
		"operation":     "gate_check",
		"authenticated": user != nil,
	})
	if g.onDenied != nil {
		g.onDenied()
	}
	return AccessDenied
}
