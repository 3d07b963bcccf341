// ABOUTME: Credential manager owning the one cached bearer token for the process.
// ABOUTME: Refreshes are single-flight and failures are remembered for a cooldown window.

package credential

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/hcp-gateway/internal/apierr"
)

const (
	DefaultSafetyMargin    = 60 * time.Second
	DefaultFailureCooldown = 5 * time.Second
	DefaultExchangeTimeout = 15 * time.Second
)

// State is the lifecycle position of the cached credential.
type State int

const (
	StateUnset State = iota
	StateValid
	StateExpired
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unset"
	}
}

// Status is a point-in-time snapshot for health reporting.
type Status struct {
	State      State     `json:"-"`
	StateName  string    `json:"state"`
	Configured bool      `json:"configured"`
	Audience   string    `json:"audience,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
}

// Config configures a Manager. Zero durations take the package defaults.
// Exchanger defaults to a ClientCredentialsExchanger against TokenURL.
type Config struct {
	ClientID        string
	ClientSecret    string
	Audience        string
	TokenURL        string
	HTTPClient      *http.Client
	Exchanger       Exchanger
	Now             func() time.Time
	SafetyMargin    time.Duration
	FailureCooldown time.Duration
	ExchangeTimeout time.Duration
	Logger          *slog.Logger
}

// Manager hands out a usable credential, refreshing it at most once at a time.
type Manager struct {
	exchanger Exchanger
	audience  string
	now       func() time.Time
	margin    time.Duration
	cooldown  time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	flight singleflight.Group

	mu           sync.RWMutex
	clientID     string
	clientSecret string
	current      *Credential
	refreshing   bool
	failure      error
	failedAt     time.Time
	generation   uint64
}

// NewManager creates a Manager. Missing client credentials are not an error
// here; Ensure fails fast until SetClientCredentials supplies them.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		exchanger:    cfg.Exchanger,
		audience:     cfg.Audience,
		now:          cfg.Now,
		margin:       cfg.SafetyMargin,
		cooldown:     cfg.FailureCooldown,
		timeout:      cfg.ExchangeTimeout,
		logger:       cfg.Logger,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	if m.exchanger == nil {
		m.exchanger = &ClientCredentialsExchanger{
			TokenURL:   cfg.TokenURL,
			Audience:   cfg.Audience,
			HTTPClient: cfg.HTTPClient,
		}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.margin <= 0 {
		m.margin = DefaultSafetyMargin
	}
	if m.cooldown < 0 {
		m.cooldown = 0
	} else if m.cooldown == 0 {
		m.cooldown = DefaultFailureCooldown
	}
	if m.timeout <= 0 {
		m.timeout = DefaultExchangeTimeout
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Ensure returns a usable credential or an authentication error. Concurrent
// callers that find no usable credential share one exchange.
func (m *Manager) Ensure(ctx context.Context) (*Credential, error) {
	if cred, done, err := m.cached(); done {
		return cred, err
	}

	// Callers that arrive after SetClientCredentials must not join a flight
	// still running with the replaced secret.
	m.mu.RLock()
	key := "credential:" + strconv.FormatUint(m.generation, 10)
	m.mu.RUnlock()

	ch := m.flight.DoChan(key, func() (any, error) {
		return m.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Credential), nil
	case <-ctx.Done():
		return nil, apierr.Transient("gave up waiting for credential", 0, ctx.Err())
	}
}

// cached answers from memory when it can. done=false means an exchange is needed.
func (m *Manager) cached() (*Credential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.clientID == "" || m.clientSecret == "" {
		return nil, true, apierr.Authentication("client credentials are not configured", nil)
	}
	now := m.now()
	if m.current.Usable(now, m.margin) {
		return m.current, true, nil
	}
	if m.failure != nil && now.Before(m.failedAt.Add(m.cooldown)) {
		return nil, true, m.failure
	}
	return nil, false, nil
}

func (m *Manager) refresh(ctx context.Context) (*Credential, error) {
	// Another flight may have finished between cached() and DoChan.
	if cred, done, err := m.cached(); done {
		return cred, err
	}

	m.mu.Lock()
	clientID, clientSecret := m.clientID, m.clientSecret
	generation := m.generation
	m.refreshing = true
	m.mu.Unlock()

	exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	started := m.now()
	tok, err := m.exchanger.Exchange(exchangeCtx, clientID, clientSecret)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false

	if err != nil {
		if !apierr.Is(err, apierr.KindAuthentication) {
			err = apierr.Authentication("token exchange failed", err)
		}
		if generation == m.generation {
			m.failure = err
			m.failedAt = m.now()
		}
		m.logger.Warn("credential exchange failed", "error", apierr.Message(err))
		return nil, err
	}

	cred := newCredential(tok, m.audience, started)
	if generation == m.generation {
		m.current = cred
		m.failure = nil
		m.failedAt = time.Time{}
	}
	m.logger.Debug("credential refreshed", "expires_at", cred.ExpiresAt, "audience", cred.Audience)
	return cred, nil
}

// Invalidate drops the cached credential if it still holds token. Callers
// use it after the platform rejects a token that looked unexpired.
func (m *Manager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Token == token {
		m.current = nil
	}
}

// SetClientCredentials replaces the client id and secret, discarding the
// cached credential and any remembered failure. Passing the current pair only
// clears the failure, so the next call retries the exchange.
func (m *Manager) SetClientCredentials(clientID, clientSecret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = nil
	m.failedAt = time.Time{}
	if clientID == m.clientID && clientSecret == m.clientSecret {
		return
	}
	m.clientID = clientID
	m.clientSecret = clientSecret
	m.current = nil
	m.generation++
}

// Status reports the manager state without triggering an exchange.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Configured: m.clientID != "" && m.clientSecret != "",
		Audience:   m.audience,
	}
	switch {
	case m.refreshing:
		st.State = StateRefreshing
	case m.current.Usable(m.now(), m.margin):
		st.State = StateValid
	case m.failure != nil:
		st.State = StateFailed
		st.LastError = apierr.Message(m.failure)
	case m.current != nil:
		st.State = StateExpired
	default:
		st.State = StateUnset
	}
	if m.current != nil {
		st.ExpiresAt = m.current.ExpiresAt
		if m.current.Audience != "" {
			st.Audience = m.current.Audience
		}
	}
	st.StateName = st.State.String()
	return st
}
