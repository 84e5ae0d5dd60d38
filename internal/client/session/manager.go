package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lumiere/salon/internal/security"
)

const defaultRefreshAhead = 60 * time.Second

// State is the published auth snapshot. Loading is true only between
// construction and the first Start.
type State struct {
	User            *security.Claims
	Loading         bool
	IsAuthenticated bool
}

// Manager orchestrates login, logout, and silent refresh, and fans the
// resulting auth state out to subscribers. Construct one per application
// instance and hand it to consumers explicitly.
type Manager struct {
	store   TokenStore
	baseURL string
	client  *http.Client
	ahead   time.Duration
	log     zerolog.Logger

	mu        sync.Mutex
	tokens    Tokens
	claims    *security.Claims
	loading   bool
	gen       uint64
	inflight  chan struct{}
	flightErr error

	notifyMu sync.Mutex
	subs     map[int]func(State)
	nextSub  int
}

type Options struct {
	BaseURL      string
	Store        TokenStore
	HTTPClient   *http.Client
	RefreshAhead time.Duration
	Logger       zerolog.Logger
}

func NewManager(opts Options) *Manager {
	client := opts.HTTPClient
	if client == nil {
		// A hung exchange must surface as a failure, not a frozen UI.
		client = &http.Client{Timeout: 15 * time.Second}
	}
	ahead := opts.RefreshAhead
	if ahead <= 0 {
		ahead = defaultRefreshAhead
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}

	return &Manager{
		store:   store,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		client:  client,
		ahead:   ahead,
		log:     opts.Logger,
		loading: true,
		subs:    map[int]func(State){},
	}
}

// Start restores a persisted session. The access token is decoded locally,
// without a network round trip, so a previously logged-in user is visible
// immediately; an undecodable token clears the session instead of surfacing
// partial claims.
func (m *Manager) Start() {
	tokens, err := m.store.Load()
	if err != nil {
		m.log.Warn().Err(err).Msg("load persisted session failed")
		tokens = Tokens{}
	}

	m.mu.Lock()
	m.loading = false
	if !tokens.Empty() {
		claims, err := security.DecodeClaimsUnverified(tokens.AccessToken)
		if err != nil {
			m.log.Warn().Err(err).Msg("persisted access token undecodable, clearing session")
			_ = m.store.Clear()
		} else {
			m.tokens = tokens
			m.claims = claims
		}
	}
	m.mu.Unlock()

	m.publish()
}

// Login exchanges credentials for a token pair. A 401 maps to
// ErrInvalidCredentials and leaves any existing session untouched.
func (m *Manager) Login(ctx context.Context, email string, password string) (Tokens, error) {
	payload := map[string]string{"email": email, "password": password}
	tokens, status, err := m.postTokens(ctx, "/auth/login", payload)
	if err != nil {
		if status == http.StatusUnauthorized {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}

	if err := m.adopt(tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// RegisterInput mirrors the registration form.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Street    string `json:"street,omitempty"`
	Suburb    string `json:"suburb,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (m *Manager) Register(ctx context.Context, input RegisterInput) (Tokens, error) {
	tokens, _, err := m.postTokens(ctx, "/auth/register", input)
	if err != nil {
		return Tokens{}, err
	}

	if err := m.adopt(tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// Logout clears the session. Tokens are stateless so no server call is made;
// calling it while already logged out is a no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	wasAuthenticated := m.claims != nil
	m.tokens = Tokens{}
	m.claims = nil
	m.gen++
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("clear persisted session failed")
	}

	if wasAuthenticated {
		m.publish()
	}
}

// ValidAccessToken returns an access token good for at least the refresh-ahead
// window, exchanging the refresh token first when the current one is close to
// expiry. Concurrent callers share a single in-flight exchange; every waiter
// gets the token that exchange produced.
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.tokens.AccessToken == "" {
		m.mu.Unlock()
		return "", ErrLoggedOut
	}

	if !m.nearExpiryLocked() {
		token := m.tokens.AccessToken
		m.mu.Unlock()
		return token, nil
	}

	if m.inflight != nil {
		done := m.inflight
		m.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return "", ctx.Err()
		}

		m.mu.Lock()
		err := m.flightErr
		token := m.tokens.AccessToken
		m.mu.Unlock()
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", ErrLoggedOut
		}
		return token, nil
	}

	done := make(chan struct{})
	m.inflight = done
	gen := m.gen
	refreshToken := m.tokens.RefreshToken
	m.mu.Unlock()

	tokens, err := m.exchange(ctx, refreshToken)

	m.mu.Lock()
	// A logout or fresh login while the exchange was in flight wins; the
	// late result must not clobber it.
	stale := m.gen != gen
	if stale {
		m.flightErr = nil
	} else if err != nil {
		m.flightErr = ErrRefreshFailed
		m.tokens = Tokens{}
		m.claims = nil
	} else {
		m.flightErr = nil
		m.tokens = tokens
		if claims, decodeErr := security.DecodeClaimsUnverified(tokens.AccessToken); decodeErr == nil {
			m.claims = claims
		}
	}
	m.inflight = nil
	token := m.tokens.AccessToken
	m.mu.Unlock()
	close(done)

	if stale {
		if token == "" {
			return "", ErrLoggedOut
		}
		return token, nil
	}

	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.log.Warn().Err(clearErr).Msg("clear persisted session failed")
		}
		m.publish()
		return "", ErrRefreshFailed
	}

	if saveErr := m.store.Save(tokens); saveErr != nil {
		m.log.Warn().Err(saveErr).Msg("persist refreshed tokens failed")
	}
	m.publish()
	return token, nil
}

// Subscribe registers a listener for state transitions and returns its
// unsubscribe func. Listeners observe only settled states, in order.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.notifyMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.notifyMu.Unlock()

	return func() {
		m.notifyMu.Lock()
		delete(m.subs, id)
		m.notifyMu.Unlock()
	}
}

// SetUserFromProfileEdit patches the published display fields after a profile
// save so the UI updates without waiting for the next token refresh. The
// token itself is untouched; authorization flags cannot be changed this way.
func (m *Manager) SetUserFromProfileEdit(firstName string, lastName string) {
	m.mu.Lock()
	if m.claims == nil {
		m.mu.Unlock()
		return
	}
	patched := *m.claims
	patched.FirstName = firstName
	patched.LastName = lastName
	m.claims = &patched
	m.mu.Unlock()

	m.publish()
}

// State returns the current published snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// IsAuthenticated is a pure read; it never triggers a refresh.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticatedLocked()
}

func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticatedLocked() && m.claims.IsAdmin
}

func (m *Manager) authenticatedLocked() bool {
	if m.claims == nil || m.tokens.AccessToken == "" {
		return false
	}
	if m.claims.ExpiresAt == nil {
		return false
	}
	return m.claims.ExpiresAt.After(time.Now())
}

func (m *Manager) nearExpiryLocked() bool {
	if m.claims == nil || m.claims.ExpiresAt == nil {
		return true
	}
	return time.Until(m.claims.ExpiresAt.Time) < m.ahead
}

func (m *Manager) stateLocked() State {
	return State{
		User:            m.claims,
		Loading:         m.loading,
		IsAuthenticated: m.authenticatedLocked(),
	}
}

// adopt persists and publishes a freshly issued pair.
func (m *Manager) adopt(tokens Tokens) error {
	claims, err := security.DecodeClaimsUnverified(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("decode access token: %w", err)
	}

	if err := m.store.Save(tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = tokens
	m.claims = claims
	m.gen++
	m.mu.Unlock()

	m.publish()
	return nil
}

// publish pushes the latest settled state to every subscriber. notifyMu
// serializes rounds so a slow listener cannot observe transitions out of
// order.
func (m *Manager) publish() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	state := m.stateLocked()
	listeners := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (m *Manager) exchange(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, ErrRefreshFailed
	}
	tokens, _, err := m.postTokens(ctx, "/auth/refresh-token", map[string]string{"refreshToken": refreshToken})
	return tokens, err
}

type apiError struct {
	Error string `json:"error"`
}

func (m *Manager) postTokens(ctx context.Context, path string, payload any) (Tokens, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Tokens{}, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Tokens{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Tokens{}, 0, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return Tokens{}, resp.StatusCode, fmt.Errorf("%s: %s", path, apiErr.Error)
	}

	var tokens Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return Tokens{}, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if tokens.Empty() {
		return Tokens{}, resp.StatusCode, fmt.Errorf("%s: empty token pair", path)
	}
	return tokens, resp.StatusCode, nil
}
