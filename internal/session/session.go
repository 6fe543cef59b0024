// Package session owns the authentication lifecycle: token custody and
// validation, expiry-driven auto-logout, and the derived current identity.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"faceconsole/internal/api"
	"faceconsole/internal/dto"
	"faceconsole/internal/logger"
	"faceconsole/internal/store"
)

// State is the session resolution state.
type State int

const (
	// StateResolving means restoration has not finished; nothing protected
	// may render yet.
	StateResolving State = iota
	// StateAuthenticated means a usable token and identity are present.
	StateAuthenticated
	// StateAnonymous means resolution finished with no identity.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Role is the binary role derived from the superuser claim.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Identity is the in-memory representation of the logged-in user: the
// synchronous token-only projection plus the lazily merged profile.
type Identity struct {
	ID      string
	Role    Role
	Profile *dto.User // nil until enrichment resolves
}

// Manager is the single source of truth for who is logged in.
type Manager struct {
	store *store.Store
	api   *api.Client
	log   *logger.Logger
	now   func() time.Time

	// onSignOut is the navigation seam: invoked after every transition to
	// StateAnonymous, explicit logout included.
	onSignOut func()

	mu          sync.Mutex
	state       State
	identity    *Identity
	token       string
	lastErr     error
	expiryTimer *time.Timer
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSignOutHook sets the callback fired on expiry-driven logout.
func WithSignOutHook(fn func()) Option {
	return func(m *Manager) { m.onSignOut = fn }
}

// NewManager wires the manager and registers it as the API token source.
func NewManager(st *store.Store, client *api.Client, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		api:       client,
		log:       log,
		now:       time.Now,
		onSignOut: func() {},
		state:     StateResolving,
	}
	for _, opt := range opts {
		opt(m)
	}
	client.SetTokenSource(m.Token)
	return m
}

// State returns the current resolution state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the current identity, or nil when anonymous/resolving.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Token returns the current bearer token, empty when not authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// LastError returns the retained diagnostic error from the last failed login.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// IsTokenValid reports whether the token decodes, its expiry is strictly in
// the future, and it carries both subject and issued-at claims.
func (m *Manager) IsTokenValid(token string) bool {
	claims, err := DecodeToken(token)
	if err != nil {
		return false
	}
	return claims.validAt(m.now())
}

// Login submits credentials to the token endpoint. On success the token is
// persisted, the identity set from its claims, and the enriched profile
// merged if the fetch resolves. Never returns an error to the caller; a
// false result means the login failed and LastError holds the cause.
func (m *Manager) Login(ctx context.Context, username, password string) bool {
	resp, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.log.Warning("login failed: %v", err)
		m.setError(err)
		return false
	}

	claims, err := DecodeToken(resp.AccessToken)
	if err != nil || !claims.validAt(m.now()) {
		if err == nil {
			err = ErrTokenExpired
		}
		m.log.Warning("login returned unusable token: %v", err)
		m.setError(err)
		return false
	}

	if err := m.store.SaveToken(resp.AccessToken); err != nil {
		m.log.Error("persist token: %v", err)
		m.setError(err)
		return false
	}

	m.establish(resp.AccessToken, claims)

	// Enrichment is best-effort: the token-derived identity stands on its own.
	m.enrich(ctx)
	return true
}

// Logout best-effort notifies the backend, unconditionally purges the local
// token, clears the identity and fires the sign-out hook. Safe to call when
// no token exists, and idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	hadToken := m.token != ""
	m.mu.Unlock()

	if hadToken {
		if err := m.api.Logout(ctx); err != nil {
			m.log.Warning("logout request failed: %v", err)
		}
	}

	if err := m.store.ClearToken(); err != nil {
		m.log.Error("clear token: %v", err)
	}

	m.mu.Lock()
	m.cancelTimerLocked()
	m.token = ""
	m.identity = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	m.onSignOut()
}

// Restore rehydrates the session from the persisted token. It resolves the
// state (Authenticated or Anonymous) before returning; only the profile
// enrichment continues asynchronously.
func (m *Manager) Restore(ctx context.Context) {
	rec, err := m.store.LoadToken()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Error("read persisted token: %v", err)
		}
		m.resolveAnonymous()
		return
	}

	claims, err := DecodeToken(rec.Token)
	if err != nil || !claims.validAt(m.now()) {
		m.log.Info("persisted token unusable, purging")
		if err := m.store.ClearToken(); err != nil {
			m.log.Error("clear token: %v", err)
		}
		m.resolveAnonymous()
		return
	}

	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		m.Logout(ctx)
		return
	}

	m.establish(rec.Token, claims)
	go m.enrich(ctx)
}

// establish sets the token-derived identity, marks the session
// authenticated and arms the expiry timer for the remaining TTL.
func (m *Manager) establish(token string, claims *Claims) {
	ttl := claims.ExpiresAt.Sub(m.now())

	m.mu.Lock()
	m.cancelTimerLocked()
	m.token = token
	m.identity = &Identity{ID: claims.Subject, Role: claims.Role()}
	m.state = StateAuthenticated
	m.lastErr = nil
	m.expiryTimer = time.AfterFunc(ttl, m.expire)
	m.mu.Unlock()

	m.log.Info("session established for %q (role %s), expires in %s",
		claims.Subject, claims.Role(), ttl.Round(time.Second))
}

// expire is the timer callback: forced logout at token expiry. Explicit
// logout cancels the timer, so whichever fires first wins and the loser is
// a no-op.
func (m *Manager) expire() {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.log.Info("session token expired, signing out")
	m.Logout(context.Background())
}

// enrich fetches the profile and merges it into the identity. Failure is
// non-fatal: the token-derived identity remains, the role never downgrades.
func (m *Manager) enrich(ctx context.Context) {
	profile, err := m.api.Me(ctx)
	if err != nil {
		m.log.Warning("profile fetch failed, keeping token-derived identity: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.identity == nil {
		return // logged out while the fetch was in flight
	}
	m.identity = &Identity{
		ID:      m.identity.ID,
		Role:    m.identity.Role,
		Profile: profile,
	}
}

func (m *Manager) resolveAnonymous() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.identity = nil
	m.state = StateAnonymous
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// cancelTimerLocked stops any armed expiry timer. Caller holds m.mu.
func (m *Manager) cancelTimerLocked() {
	if m.expiryTimer != nil {
		m.expiryTimer.Stop()
		m.expiryTimer = nil
	}
}
