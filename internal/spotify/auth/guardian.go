package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// User-facing messages surfaced through LastError.
const (
	MsgSessionExpired    = "Spotify session expired. Please log in again."
	MsgRefreshFailed     = "Spotify refresh failed. Retrying..."
	MsgInsufficientScope = "Spotify needs additional permissions for this feature. Please log in again."
)

// DefaultRefreshBuffer is how long before expiry a token is refreshed.
const DefaultRefreshBuffer = 5 * time.Minute

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenResult, error)
}

// Guardian owns the credential session and hands out fresh access tokens.
// Concurrent callers that find the token stale share one refresh.
type Guardian struct {
	mu       sync.Mutex
	session  *Session
	stale    bool
	lastErr  string
	onLogout []func(reason string)

	storage   *SessionStorage
	refresher Refresher
	buffer    time.Duration
	now       func() time.Time
	group     singleflight.Group
	logger    *zap.Logger
}

// GuardianOption configures a Guardian.
type GuardianOption func(*Guardian)

// WithRefreshBuffer sets how early before expiry tokens are refreshed.
func WithRefreshBuffer(d time.Duration) GuardianOption {
	return func(g *Guardian) {
		if d > 0 {
			g.buffer = d
		}
	}
}

// WithNow replaces the guardian's clock.
func WithNow(now func() time.Time) GuardianOption {
	return func(g *Guardian) {
		g.now = now
	}
}

// WithGuardianLogger sets the guardian logger.
func WithGuardianLogger(l *zap.Logger) GuardianOption {
	return func(g *Guardian) {
		g.logger = l
	}
}

// NewGuardian creates a guardian seeded from storage.
func NewGuardian(storage *SessionStorage, refresher Refresher, opts ...GuardianOption) (*Guardian, error) {
	g := &Guardian{
		storage:   storage,
		refresher: refresher,
		buffer:    DefaultRefreshBuffer,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// EnsureFreshToken returns a usable access token, refreshing it when it is
// within the refresh buffer. It returns "" when logged out.
func (g *Guardian) EnsureFreshToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	session := g.session
	stale := g.stale
	now := g.now()
	g.mu.Unlock()

	if session == nil {
		return "", nil
	}
	if !stale && !session.ExpiresWithin(g.buffer, now) {
		return session.AccessToken, nil
	}
	if session.RefreshToken == "" {
		if !session.Expired(now) {
			// Degraded: nothing to refresh with yet.
			return session.AccessToken, nil
		}
		g.Logout(MsgSessionExpired)
		return "", nil
	}

	// The refresh outlives any single caller's cancellation.
	ch := g.group.DoChan("refresh", func() (interface{}, error) {
		return g.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Guardian) refresh(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.session == nil {
		g.mu.Unlock()
		return "", nil
	}
	current := *g.session
	if !g.stale && !current.ExpiresWithin(g.buffer, g.now()) {
		// An earlier refresh finished after this caller read the session.
		g.mu.Unlock()
		return current.AccessToken, nil
	}
	g.mu.Unlock()

	g.logger.Debug("refreshing access token", zap.Time("expires_at", current.ExpiresAt))

	result, err := g.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if IsRevoked(err) || current.Expired(g.now()) {
			g.logger.Warn("token refresh failed, logging out", zap.Error(err))
			g.Logout(MsgSessionExpired)
			return "", nil
		}

		g.logger.Warn("token refresh failed, keeping current token", zap.Error(err))
		g.mu.Lock()
		g.lastErr = MsgRefreshFailed
		g.mu.Unlock()
		return current.AccessToken, nil
	}

	updated := &Session{
		AccessToken:  result.AccessToken,
		RefreshToken: current.RefreshToken,
		ExpiresAt:    g.now().Add(result.ExpiresIn),
	}
	if result.RefreshToken != nil {
		updated.RefreshToken = *result.RefreshToken
	}

	g.mu.Lock()
	if g.session == nil {
		// Logged out while the refresh was in flight.
		g.mu.Unlock()
		return "", nil
	}
	g.session = updated
	g.stale = false
	g.lastErr = ""
	g.mu.Unlock()

	if err := g.storage.Save(updated); err != nil {
		g.logger.Warn("failed to persist refreshed session", zap.Error(err))
	}
	return updated.AccessToken, nil
}

// Invalidate marks the current token as rejected so the next
// EnsureFreshToken refreshes it regardless of its expiry.
func (g *Guardian) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session != nil {
		g.stale = true
	}
}

// ForceReauth clears the session because the granted scopes are not
// enough, surfacing msg instead of the generic expiry message.
func (g *Guardian) ForceReauth(msg string) {
	if msg == "" {
		msg = MsgInsufficientScope
	}
	g.Logout(msg)
}

// Logout clears credentials, deletes the stored session and notifies
// logout handlers with reason.
func (g *Guardian) Logout(reason string) {
	g.mu.Lock()
	g.session = nil
	g.stale = false
	g.lastErr = reason
	handlers := append([]func(string){}, g.onLogout...)
	g.mu.Unlock()

	if err := g.storage.Delete(); err != nil {
		g.logger.Warn("failed to delete session", zap.Error(err))
	}
	for _, fn := range handlers {
		fn(reason)
	}
}

// OnLogout registers fn to run after every logout.
func (g *Guardian) OnLogout(fn func(reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLogout = append(g.onLogout, fn)
}

// SetSession installs and persists a new session, e.g. after login.
func (g *Guardian) SetSession(s *Session) error {
	if err := g.storage.Save(s); err != nil {
		return err
	}
	cp := *s
	g.mu.Lock()
	g.session = &cp
	g.stale = false
	g.lastErr = ""
	g.mu.Unlock()
	return nil
}

// Reload re-reads the session from storage.
func (g *Guardian) Reload() error {
	s, err := g.storage.Load()
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.session = s
	g.stale = false
	g.mu.Unlock()
	return nil
}

// Session returns a copy of the current session, or nil when logged out.
func (g *Guardian) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	cp := *g.session
	return &cp
}

// LastError returns the most recent user-facing auth message.
func (g *Guardian) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Storage returns the backing session storage.
func (g *Guardian) Storage() *SessionStorage {
	return g.storage
}
