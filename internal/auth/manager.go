package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
	"github.com/tradebridge/saxogw/internal/metrics"
)

var managerLog = logrus.WithField("component", "token_manager")

// Store is the durable half of the credential lifecycle. The badger-backed
// implementation lives in pkg/credstore; tests substitute an in-memory one.
type Store interface {
	LoadToken() (*domain.TokenRecord, bool, error)
	SaveToken(*domain.TokenRecord) error
}

// TokenSource issues refresh grants. Satisfied by *Provider.
type TokenSource interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenReply, error)
}

// Manager owns the in-process token cache and decides when a cached token is
// usable. The cache is best-effort; the Store is the cross-process source of
// truth. One Manager call performs at most one refresh exchange.
type Manager struct {
	mu       sync.Mutex
	store    Store
	provider TokenSource

	margin        time.Duration
	defaultExpiry time.Duration

	// seedRefreshToken is the configuration fallback when the store has no
	// record yet (first run before token-init or the callback flow).
	seedRefreshToken string

	cached *domain.TokenRecord

	// forceRefresh is set when a caller reports the current token rejected.
	// The record's expiry says nothing once the token is revoked, so the
	// next Token call must perform a real refresh exchange.
	forceRefresh bool

	now func() time.Time
}

// Options configures a Manager. Zero durations fall back to 60s margin and a
// 20min token lifetime.
type Options struct {
	SafetyMargin     time.Duration
	DefaultExpiry    time.Duration
	SeedRefreshToken string
}

func NewManager(store Store, provider TokenSource, opts Options) *Manager {
	if opts.SafetyMargin <= 0 {
		opts.SafetyMargin = 60 * time.Second
	}
	if opts.DefaultExpiry <= 0 {
		opts.DefaultExpiry = 20 * time.Minute
	}
	return &Manager{
		store:            store,
		provider:         provider,
		margin:           opts.SafetyMargin,
		defaultExpiry:    opts.DefaultExpiry,
		seedRefreshToken: opts.SeedRefreshToken,
		now:              time.Now,
	}
}

// Token returns a usable access token, refreshing and persisting a new pair
// when the cached or stored one is stale. Fails with *domain.CredentialError
// when no token can be produced.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.forceRefresh && m.cached.Usable(now, m.margin) {
		return m.cached.AccessToken, nil
	}

	// Cache miss or stale: consult the durable store before refreshing.
	// Another process may have refreshed already. On a forced refresh the
	// store is read only for its refresh token; apparent freshness does not
	// resurrect a rejected access token.
	rec, found, err := m.store.LoadToken()
	if err != nil {
		managerLog.WithError(err).Warn("credential store read failed, falling through to refresh")
	} else if found {
		m.cached = rec
		if !m.forceRefresh && rec.Usable(now, m.margin) {
			return rec.AccessToken, nil
		}
	}

	return m.refreshLocked(ctx)
}

// Invalidate marks the current token rejected so the next Token call
// performs a refresh exchange regardless of the record's expiry. The
// coordinator calls this after a broker 401 before its single retry.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	m.forceRefresh = true
}

// ForceRefresh performs a refresh exchange regardless of cache freshness.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		if rec, found, err := m.store.LoadToken(); err == nil && found {
			m.cached = rec
		}
	}
	return m.refreshLocked(ctx)
}

// Adopt installs a token reply obtained out of band (the authorization-code
// callback) as the current record and persists it.
func (m *Manager) Adopt(reply *TokenReply) *domain.TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recordFromReply(reply, "")
	m.persistLocked(rec)
	m.cached = rec
	m.forceRefresh = false
	return rec
}

// refreshLocked drives one refresh-token grant. Caller holds the lock.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	refreshToken := m.seedRefreshToken
	if m.cached != nil && m.cached.RefreshToken != "" {
		refreshToken = m.cached.RefreshToken
	}
	if refreshToken == "" {
		metrics.RefreshFailures.Add(1)
		return "", &domain.CredentialError{Cause: errors.New("no refresh token available")}
	}

	reply, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.RefreshFailures.Add(1)
		var ce *domain.CredentialError
		if errors.As(err, &ce) {
			return "", err
		}
		return "", &domain.CredentialError{Cause: err}
	}

	rec := m.recordFromReply(reply, refreshToken)
	m.persistLocked(rec)
	m.cached = rec
	m.forceRefresh = false
	metrics.TokenRefreshes.Add(1)
	managerLog.WithField("expires_at", rec.ExpiresAt.Format(time.RFC3339)).Info("access token refreshed")
	return rec.AccessToken, nil
}

// recordFromReply builds a fresh record. When the provider omits a rotated
// refresh token the previous one is retained; it stays valid until consumed.
func (m *Manager) recordFromReply(reply *TokenReply, prevRefresh string) *domain.TokenRecord {
	refresh := reply.RefreshToken
	if refresh == "" {
		refresh = prevRefresh
	}
	lifetime := m.defaultExpiry
	if reply.ExpiresIn > 0 {
		lifetime = time.Duration(reply.ExpiresIn) * time.Second
	}
	return &domain.TokenRecord{
		AccessToken:  reply.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    m.now().Add(lifetime - m.margin),
	}
}

// persistLocked writes the record through to the store. A write failure is
// logged, not fatal: the in-process token is still valid and the next
// refresh will try again.
func (m *Manager) persistLocked(rec *domain.TokenRecord) {
	if err := m.store.SaveToken(rec); err != nil {
		managerLog.WithError(err).Error("failed to persist refreshed token")
	}
}
