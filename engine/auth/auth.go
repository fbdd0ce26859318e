// Package auth acquires and refreshes OAuth bearer tokens for the Project
// Online surface via the device-code flow, persisting them per tenant and
// client so repeated runs stay non-interactive.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// DeviceCodeDisplay surfaces the user code and verification URL to whoever
// drives the tool. The CLI renders it; tests capture it.
type DeviceCodeDisplay interface {
	ShowDeviceCode(userCode, verificationURL string, expiresIn time.Duration)
}

// flow abstracts the three OAuth exchanges so tests can stub the wire.
type flow interface {
	DeviceAuth(ctx context.Context) (*oauth2.DeviceAuthResponse, error)
	DeviceAccessToken(ctx context.Context, da *oauth2.DeviceAuthResponse) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type oauthFlow struct {
	cfg *oauth2.Config
}

func (f *oauthFlow) DeviceAuth(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	return f.cfg.DeviceAuth(ctx)
}

func (f *oauthFlow) DeviceAccessToken(ctx context.Context, da *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	return f.cfg.DeviceAccessToken(ctx, da)
}

func (f *oauthFlow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// Options configures a Manager.
type Options struct {
	TenantID    string
	ClientID    string
	TenantRoot  string // scheme+host of the source URL, drives the scopes
	CacheDir    string
	Timeout     time.Duration // total device-code budget
	ForceDevice bool          // skip refresh, always prompt when no valid token
	Fs          afero.Fs
	Display     DeviceCodeDisplay
}

// Option overrides internals, used by tests.
type Option func(*Manager)

func withFlow(f flow) Option {
	return func(m *Manager) { m.flow = f }
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager hands out valid bearer tokens, trying memory, the persisted
// cache, the refresh token, and finally an interactive device-code prompt,
// in that order. It satisfies source.TokenProvider.
type Manager struct {
	tenantID    string
	clientID    string
	scopes      []string
	timeout     time.Duration
	forceDevice bool
	display     DeviceCodeDisplay
	cache       *tokenCache
	flow        flow
	now         func() time.Time

	mu  sync.Mutex
	mem *cachedToken
}

func NewManager(opts Options, overrides ...Option) (*Manager, error) {
	if opts.TenantID == "" || opts.ClientID == "" {
		return nil, core.NewConfigurationError("auth requires TENANT_ID and CLIENT_ID")
	}
	if opts.TenantRoot == "" {
		return nil, core.NewConfigurationError("auth requires the source tenant root URL")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	scopes := []string{
		opts.TenantRoot + "/AllSites.Read",
		opts.TenantRoot + "/AllSites.Write",
		"offline_access",
	}
	m := &Manager{
		tenantID:    opts.TenantID,
		clientID:    opts.ClientID,
		scopes:      scopes,
		timeout:     opts.Timeout,
		forceDevice: opts.ForceDevice,
		display:     opts.Display,
		cache: &tokenCache{
			fs:       fs,
			dir:      opts.CacheDir,
			tenantID: opts.TenantID,
			clientID: opts.ClientID,
		},
		flow: &oauthFlow{cfg: &oauth2.Config{
			ClientID: opts.ClientID,
			Endpoint: microsoft.AzureADEndpoint(opts.TenantID),
			Scopes:   scopes,
		}},
		now: time.Now,
	}
	for _, o := range overrides {
		o(m)
	}
	return m, nil
}

// AccessToken returns a valid bearer, acquiring one if needed.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := logger.FromContext(ctx)
	now := m.now()

	if m.mem.validAt(now) {
		return m.mem.AccessToken, nil
	}
	if tok := m.cache.load(); tok != nil {
		if tok.validAt(now) {
			log.Debug("using persisted token", "expires", tok.ExpiresOn)
			m.mem = tok
			return tok.AccessToken, nil
		}
		if tok.RefreshToken != "" && !m.forceDevice {
			refreshed, err := m.refresh(ctx, tok.RefreshToken)
			if err == nil {
				m.mem = refreshed
				return refreshed.AccessToken, nil
			}
			// Refresh failures purge the cache and fall back to a
			// fresh interactive prompt.
			log.Warn("token refresh failed, clearing cache", "error", err)
			if cerr := m.cache.clear(); cerr != nil {
				log.Warn("cannot clear token cache", "error", cerr)
			}
		}
	}
	tok, err := m.deviceCodeLogin(ctx)
	if err != nil {
		return "", err
	}
	m.mem = tok
	return tok.AccessToken, nil
}

// TestAuthentication runs the full acquisition chain and reports success.
func (m *Manager) TestAuthentication(ctx context.Context) bool {
	_, err := m.AccessToken(ctx)
	return err == nil
}

// ClearCache removes the persisted token for this tenant and client.
func (m *Manager) ClearCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem = nil
	return m.cache.clear()
}

// ClearAllCaches removes every persisted token in the cache directory.
func (m *Manager) ClearAllCaches() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem = nil
	return m.cache.clearAll()
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*cachedToken, error) {
	tok, err := m.flow.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, core.NewAuthError(core.AuthRefresh, "refresh token exchange failed", err)
	}
	cached := m.toCached(tok, refreshToken)
	if err := m.cache.save(cached); err != nil {
		return nil, err
	}
	return cached, nil
}

func (m *Manager) deviceCodeLogin(ctx context.Context) (*cachedToken, error) {
	log := logger.FromContext(ctx)
	da, err := m.flow.DeviceAuth(ctx)
	if err != nil {
		return nil, core.NewAuthError(core.AuthInvalidCode, "device code request failed", err)
	}
	if m.display != nil {
		m.display.ShowDeviceCode(da.UserCode, da.VerificationURI, time.Until(da.Expiry))
	}
	log.Info("waiting for device code confirmation", "url", da.VerificationURI)

	pollCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	tok, err := m.flow.DeviceAccessToken(pollCtx, da)
	if err != nil {
		return nil, mapDeviceError(err)
	}
	cached := m.toCached(tok, tok.RefreshToken)
	if err := m.cache.save(cached); err != nil {
		return nil, err
	}
	log.Info("device code authentication complete", "expires", cached.ExpiresOn)
	return cached, nil
}

func (m *Manager) toCached(tok *oauth2.Token, refreshToken string) *cachedToken {
	if tok.RefreshToken != "" {
		refreshToken = tok.RefreshToken
	}
	return &cachedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresOn:    tok.Expiry,
		Scopes:       m.scopes,
	}
}

// mapDeviceError folds the device-poll outcomes onto the auth taxonomy.
func mapDeviceError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewAuthError(core.AuthPendingTimeout,
			"device code confirmation timed out", err)
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "authorization_declined", "access_denied":
			return core.NewAuthError(core.AuthDeclined, "authorization was declined", err)
		case "expired_token":
			return core.NewAuthError(core.AuthExpired, "device code expired before confirmation", err)
		case "bad_verification_code":
			return core.NewAuthError(core.AuthInvalidCode, "device code was not recognized", err)
		}
	}
	return core.NewAuthError(core.AuthInvalidCode,
		fmt.Sprintf("device code polling failed: %v", err), err)
}
