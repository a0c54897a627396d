package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/marketlist/internal/clock"
	"github.com/dmitrijs2005/marketlist/internal/logging"
)

// Route names a screen of the client.
type Route string

const (
	RouteLogin Route = "login"
	RouteList  Route = "list"
)

// TokenStore is the part of the credential store the guard needs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Guard answers "who is logged in" and "where may the user go". It holds no
// session state of its own; every call re-reads the store.
type Guard struct {
	store  TokenStore
	clock  clock.Clock
	logger logging.Logger
}

func NewGuard(store TokenStore, clk clock.Clock, logger logging.Logger) *Guard {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Guard{store: store, clock: clk, logger: logger.With("component", "session")}
}

// Session loads and decodes the stored token. The returned Session is
// active only when err is nil. An expired token is cleared from the store.
func (g *Guard) Session(ctx context.Context) (Session, error) {
	token, err := g.store.Load(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return Session{State: StateNone}, ErrNoToken
	}

	id, err := Decode(token)
	if err != nil {
		g.logger.Debug(ctx, "stored token rejected", "error", err)
		return Session{State: StateNone}, err
	}

	if !id.ExpiresAt.After(g.clock.Now()) {
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Warn(ctx, "failed to evict expired token", "error", err)
		} else {
			g.logger.Info(ctx, "expired token evicted", "user_id", id.SubjectID, "expired_at", id.ExpiresAt)
		}
		return Session{State: StateExpired}, ErrTokenExpired
	}

	return Session{Token: token, Identity: id, State: StateActive}, nil
}

// CurrentIdentity is Session reduced to the decoded identity.
func (g *Guard) CurrentIdentity(ctx context.Context) (Identity, error) {
	s, err := g.Session(ctx)
	if err != nil {
		return Identity{}, err
	}
	return s.Identity, nil
}

// Allowed resolves a navigation request: RouteLogin when there is no valid
// identity, RouteList otherwise. It must run on every navigation, including
// going back to a screen that was shown before.
func (g *Guard) Allowed(ctx context.Context, requested Route) Route {
	if sess, err := g.Session(ctx); err != nil || !sess.Active() {
		if requested != RouteLogin {
			g.logger.Debug(ctx, "navigation redirected", "requested", requested, "reason", err)
		}
		return RouteLogin
	}
	return RouteList
}
