// Package session orchestrates the client side of a login session: it loads
// credentials from the vault at startup, hands out access tokens for
// outgoing requests, refreshes expired tokens, and tears everything down on
// logout. One Manager exists per device; there is no ambient global — the
// host application constructs a Manager and passes it to whatever needs it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shopmanager/internal/auth"
	"shopmanager/internal/client/api"
	"shopmanager/internal/client/vault"
	"shopmanager/internal/model"
)

// State is the session lifecycle state.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateResuming        State = "RESUMING"
	StateAuthenticated   State = "AUTHENTICATED"
	StateRefreshing      State = "REFRESHING"
	StateExpired         State = "EXPIRED"
)

var (
	// ErrNotAuthenticated: no session exists; the caller must log in.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired: the session could not be kept alive (refresh
	// rejected, or a retried request still unauthorized). The vault has
	// been cleared; the caller must log in again.
	ErrSessionExpired = errors.New("session expired")
)

// expiryLeeway keeps us from presenting a token that will expire in transit.
const expiryLeeway = 30 * time.Second

// Manager holds the in-memory session and serializes its transitions.
// Concurrent callers that hit an expired access token share one refresh via
// the singleflight group instead of each spending the single-use refresh
// token.
type Manager struct {
	api   *api.Client
	vault vault.Vault

	mu       sync.Mutex
	state    State
	identity model.Identity
	pair     vault.TokenPair
	gen      uint64 // bumped on login/logout; a refresh from an older generation is discarded

	sf singleflight.Group
}

// NewManager creates a manager over the given API client and vault.
func NewManager(apiClient *api.Client, v vault.Vault) *Manager {
	return &Manager{api: apiClient, vault: v, state: StateUnauthenticated}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the session's identity; zero when unauthenticated.
func (m *Manager) Identity() model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// IsAuthenticated reports whether a live session exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated || m.state == StateRefreshing
}

// Resume restores the session from the vault at application start. An
// absent or unusable credential is not an error: the state simply ends at
// Unauthenticated and the caller routes to the login screen. A non-nil
// error means the server was reachable for neither validation nor refresh.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	m.state = StateResuming
	m.mu.Unlock()

	pair, err := m.vault.Load(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	if time.Until(pair.AccessExpiry) > expiryLeeway {
		// The embedded identity is decoded without verification: the
		// client only displays it, the server re-verifies every request.
		if ident, _, err := auth.DecodeIdentity(pair.AccessToken); err == nil {
			m.mu.Lock()
			m.identity = ident
			m.state = StateAuthenticated
			m.mu.Unlock()
			return nil
		}
	}

	// Access token expired or unreadable; fall back to the refresh token.
	if _, err := m.refresh(ctx, pair.AccessToken); err != nil {
		m.mu.Lock()
		if m.state == StateResuming || m.state == StateRefreshing {
			m.state = StateUnauthenticated
		}
		m.mu.Unlock()
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated) {
			return nil
		}
		return err
	}
	return nil
}

// Login establishes a fresh session. An api.ErrInvalidCredentials passes
// through untouched for the login screen to display.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	pair := vault.TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExpiry: res.AccessExpiry,
	}
	m.mu.Lock()
	m.gen++
	m.pair = pair
	m.identity = res.User
	m.state = StateAuthenticated
	m.mu.Unlock()

	// Vault failure degrades to a session that will not survive restart.
	_ = m.vault.Save(ctx, pair)
	return nil
}

// Token returns an access token valid for at least the expiry leeway,
// refreshing first when necessary.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.pair.AccessToken != "" && time.Until(m.pair.AccessExpiry) > expiryLeeway {
		tok := m.pair.AccessToken
		m.mu.Unlock()
		return tok, nil
	}
	stale := m.pair.AccessToken
	m.mu.Unlock()
	return m.refresh(ctx, stale)
}

// retryToken is called after a request bounced with 401 despite carrying
// stale. The server's verdict beats the local clock, so the token is
// refreshed even if its expiry still looks fine from here.
func (m *Manager) retryToken(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	if m.pair.AccessToken != "" && m.pair.AccessToken != stale {
		// Someone already refreshed behind our back.
		tok := m.pair.AccessToken
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()
	return m.refresh(ctx, stale)
}

// Logout ends the session. Server-side revocation is best-effort — a dead
// network never blocks local logout — and the generation bump makes any
// refresh still in flight discard its result, so the end state is always
// Unauthenticated.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	access, refreshToken := m.pair.AccessToken, m.pair.RefreshToken
	m.gen++
	m.identity = model.Identity{}
	m.pair = vault.TokenPair{}
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if access != "" {
		_ = m.api.Logout(ctx, access, refreshToken)
	}
	_ = m.vault.Clear(ctx)
	return nil
}

// refresh obtains a new token pair using the stored refresh token.
// Concurrent callers coalesce on the singleflight key; the first one runs
// the exchange and the rest share its outcome.
func (m *Manager) refresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	if m.pair.RefreshToken == "" {
		m.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		m.mu.Lock()
		// A refresh that finished while we queued already replaced the pair.
		if m.pair.AccessToken != "" && m.pair.AccessToken != stale && time.Until(m.pair.AccessExpiry) > expiryLeeway {
			tok := m.pair.AccessToken
			m.mu.Unlock()
			return tok, nil
		}
		gen := m.gen
		refreshToken := m.pair.RefreshToken
		if m.state == StateAuthenticated {
			m.state = StateRefreshing
		}
		m.mu.Unlock()

		if refreshToken == "" {
			return "", ErrNotAuthenticated
		}

		res, err := m.api.Refresh(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, api.ErrRefreshRejected) {
				m.expire(ctx)
				return "", ErrSessionExpired
			}
			// Transient failure: the session is not dead, just stuck.
			m.mu.Lock()
			if m.state == StateRefreshing {
				m.state = StateAuthenticated
			}
			m.mu.Unlock()
			return "", err
		}

		pair := vault.TokenPair{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			AccessExpiry: res.AccessExpiry,
		}

		m.mu.Lock()
		if m.gen != gen {
			// Logout won the race; the new pair is discarded unused.
			m.mu.Unlock()
			return "", ErrSessionExpired
		}
		m.pair = pair
		m.identity = res.User
		m.state = StateAuthenticated
		m.mu.Unlock()

		_ = m.vault.Save(ctx, pair)
		return res.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// expire performs the forced local logout after the server rejected the
// session for good: vault cleared, identity dropped, state Unauthenticated.
func (m *Manager) expire(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.identity = model.Identity{}
	m.pair = vault.TokenPair{}
	m.state = StateExpired
	m.mu.Unlock()

	_ = m.vault.Clear(ctx)

	m.mu.Lock()
	if m.state == StateExpired {
		m.state = StateUnauthenticated
	}
	m.mu.Unlock()
}
