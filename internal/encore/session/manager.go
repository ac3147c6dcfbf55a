// Package session owns the OAuth 2.0 PKCE lifecycle against the music
// provider: login redirect, code exchange, proactive token refresh, the
// anonymous client-credentials fallback, and logout. Every API call in the
// rest of the service obtains its bearer token through Manager.Token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/internal/encore/store"
	"github.com/encoreparty/encore/pkg/cryptox"
	"golang.org/x/sync/singleflight"
)

const (
	// expirySkew refreshes tokens this long before they actually expire so
	// in-flight API calls never race the deadline.
	expirySkew = 5 * time.Minute

	refreshBackoffBase = time.Second
	maxRefreshAttempts = 3
)

// Config wires a Manager. Slots, Sealer and Provider.ClientID are required;
// the rest default sensibly.
type Config struct {
	Provider ProviderConfig
	Slots    store.Store
	Sealer   *cryptox.Sealer
	Logger   *slog.Logger

	// HTTPClient overrides the provider transport, mainly for tests.
	HTTPClient *http.Client

	// Now and Sleep are injectable for tests; they default to the wall
	// clock and a context-aware sleep.
	Now   func() time.Time
	Sleep func(context.Context, time.Duration) error
}

// Manager produces and maintains a valid bearer token, transparently
// choosing between user-authenticated and anonymous modes.
type Manager struct {
	provider *providerClient
	slots    store.Store
	sealer   *cryptox.Sealer
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error

	// acquireGroup collapses concurrent token acquisitions into one
	// provider round trip so a rotated refresh token is never spent twice.
	acquireGroup singleflight.Group

	mu  sync.Mutex
	tok *domain.TokenRecord
	// epoch is bumped by Logout; an acquisition started under an older
	// epoch discards its result instead of reinstating cleared credentials.
	epoch uint64
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Manager{
		provider: &providerClient{cfg: cfg.Provider, httpc: httpc},
		slots:    cfg.Slots,
		sealer:   cfg.Sealer,
		logger:   logger,
		now:      now,
		sleep:    sleep,
	}
}

// BeginLogin generates a PKCE challenge, persists the verifier in its
// single-use slot and returns the provider authorization URL the browser
// should be sent to.
func (m *Manager) BeginLogin(ctx context.Context) (string, error) {
	challenge, err := newPKCEChallenge()
	if err != nil {
		return "", err
	}

	if err := m.slots.Put(ctx, store.SlotPKCEVerifier, []byte(challenge.Verifier)); err != nil {
		return "", fmt.Errorf("failed to persist code verifier: %w", err)
	}

	return m.provider.authorizeURL(challenge.Challenge), nil
}

// CompleteLogin finishes the PKCE flow from the provider callback
// parameters. The stored verifier is consumed exactly once, whether the
// exchange succeeds or fails, so a replayed callback fails cleanly with
// ErrMissingVerifier.
func (m *Manager) CompleteLogin(ctx context.Context, params url.Values) error {
	if errCode := params.Get("error"); errCode != "" {
		_ = m.slots.Delete(ctx, store.SlotPKCEVerifier)
		return fmt.Errorf("%w: %s", ErrAuthorizationDenied, errCode)
	}

	code := params.Get("code")
	if code == "" {
		return fmt.Errorf("%w: callback carried no authorization code", ErrAuthorizationDenied)
	}

	verifier, err := m.slots.Get(ctx, store.SlotPKCEVerifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMissingVerifier
		}
		return err
	}
	if err := m.slots.Delete(ctx, store.SlotPKCEVerifier); err != nil {
		return err
	}

	tr, err := m.provider.exchangeCode(ctx, code, string(verifier))
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return fmt.Errorf("%w: %s", ErrTokenExchangeFailed, providerDetail(pe))
		}
		return err
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	_, err = m.install(ctx, epoch, tr, "")
	if err == nil {
		m.logger.Info("login completed",
			"refresh_fp", cryptox.Fingerprint(tr.RefreshToken))
	}
	return err
}

// Token returns a valid access token, refreshing or re-acquiring as needed.
// Concurrent callers observing an expiring token share one in-flight
// acquisition.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()

	if tok != nil && !tok.ExpiringWithin(m.now(), expirySkew) {
		return tok.AccessToken, nil
	}

	v, err, _ := m.acquireGroup.Do("acquire", func() (any, error) {
		return m.acquire(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Logout clears the in-memory token and all durable credentials. It never
// fails and performs no network call; an in-flight refresh that resolves
// afterwards discards its result.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.tok = nil
	m.epoch++
	m.mu.Unlock()

	if err := m.slots.Delete(ctx, store.SlotRefreshToken); err != nil {
		m.logger.Warn("failed to clear stored refresh token", "err", err)
	}
	if err := m.slots.Delete(ctx, store.SlotPKCEVerifier); err != nil {
		m.logger.Warn("failed to clear pending verifier", "err", err)
	}
}

// LoggedIn is an optimistic routing check: it reports whether credentials
// exist, not whether they are still valid.
func (m *Manager) LoggedIn(ctx context.Context) bool {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()
	if tok != nil {
		return true
	}

	_, err := m.slots.Get(ctx, store.SlotRefreshToken)
	return err == nil
}

// acquire decides how to obtain a token for the current state: refresh in
// user mode, re-acquire in anonymous mode, bootstrap from the durable
// refresh token, or fall back to client credentials.
func (m *Manager) acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	epoch := m.epoch
	tok := m.tok
	m.mu.Unlock()

	// Another caller may have finished an acquisition while this one waited
	// on the singleflight group.
	if tok != nil && !tok.ExpiringWithin(m.now(), expirySkew) {
		return tok.AccessToken, nil
	}

	refreshToken := ""
	switch {
	case tok != nil && !tok.Anonymous():
		refreshToken = tok.RefreshToken
	case tok == nil:
		stored, err := m.loadRefreshToken(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		refreshToken = stored
	}

	if refreshToken != "" {
		return m.refreshWithRetry(ctx, epoch, refreshToken)
	}
	return m.acquireAnonymous(ctx, epoch)
}

// refreshWithRetry performs the refresh grant. Client errors kill the
// session and clear credentials; server errors are retried with exponential
// backoff since the existing token may still be valid; transport errors
// surface immediately for the caller to decide.
func (m *Manager) refreshWithRetry(ctx context.Context, epoch uint64, refreshToken string) (string, error) {
	backoff := refreshBackoffBase
	var lastErr error

	for attempt := 1; attempt <= maxRefreshAttempts; attempt++ {
		tr, err := m.provider.refresh(ctx, refreshToken)
		if err == nil {
			return m.install(ctx, epoch, tr, refreshToken)
		}

		var pe *ProviderError
		if !errors.As(err, &pe) {
			return "", err
		}
		if !pe.Temporary() {
			m.logger.Warn("refresh rejected by provider", "code", pe.Code, "status", pe.Status)
			m.Logout(ctx)
			return "", fmt.Errorf("%w: %s", ErrSessionExpired, providerDetail(pe))
		}

		lastErr = err
		if attempt < maxRefreshAttempts {
			m.logger.Warn("provider refresh failed upstream, backing off",
				"attempt", attempt, "backoff", backoff.String())
			if err := m.sleep(ctx, backoff); err != nil {
				return "", err
			}
			backoff *= 2
		}
	}

	return "", fmt.Errorf("token refresh failed after %d attempts: %w", maxRefreshAttempts, lastErr)
}

func (m *Manager) acquireAnonymous(ctx context.Context, epoch uint64) (string, error) {
	if m.provider.cfg.ClientSecret == "" {
		return "", ErrAnonymousUnavailable
	}

	tr, err := m.provider.clientCredentials(ctx)
	if err != nil {
		return "", err
	}

	m.logger.Info("acquired anonymous app token")
	return m.install(ctx, epoch, tr, "")
}

// install publishes a token response as the current record and persists the
// (possibly rotated) refresh token. A stale epoch means Logout raced the
// acquisition: the result is dropped and storage scrubbed again.
func (m *Manager) install(ctx context.Context, epoch uint64, tr *tokenResponse, priorRefresh string) (string, error) {
	refresh := tr.RefreshToken
	if refresh == "" {
		refresh = priorRefresh
	}

	record := domain.TokenRecord{
		AccessToken:  tr.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    m.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	if refresh != "" {
		if err := m.storeRefreshToken(ctx, refresh); err != nil {
			m.logger.Warn("failed to persist refresh token", "err", err)
		}
	}

	m.mu.Lock()
	stale := m.epoch != epoch
	if !stale {
		m.tok = &record
	}
	m.mu.Unlock()

	if stale {
		_ = m.slots.Delete(ctx, store.SlotRefreshToken)
		return "", ErrSessionExpired
	}

	return record.AccessToken, nil
}

func (m *Manager) loadRefreshToken(ctx context.Context) (string, error) {
	sealed, err := m.slots.Get(ctx, store.SlotRefreshToken)
	if err != nil {
		return "", err
	}

	plain, err := m.sealer.Open(sealed)
	if err != nil {
		// Master key changed or the database was tampered with. Drop the
		// slot and behave as if no credentials were stored.
		m.logger.Warn("stored refresh token failed to unseal, discarding")
		_ = m.slots.Delete(ctx, store.SlotRefreshToken)
		return "", store.ErrNotFound
	}

	return string(plain), nil
}

func (m *Manager) storeRefreshToken(ctx context.Context, refreshToken string) error {
	sealed, err := m.sealer.Seal([]byte(refreshToken))
	if err != nil {
		return err
	}
	return m.slots.Put(ctx, store.SlotRefreshToken, sealed)
}

func providerDetail(pe *ProviderError) string {
	if pe.Description != "" {
		return pe.Description
	}
	return pe.Code
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
