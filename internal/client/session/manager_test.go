package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiere/salon/internal/security"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

// fakeAuthServer mimics the auth endpoints with real signed tokens so the
// manager's local decoding sees genuine claims.
type fakeAuthServer struct {
	*httptest.Server
	refreshCalls  atomic.Int64
	refreshDelay  time.Duration
	rejectRefresh atomic.Bool
	accessTTL     time.Duration
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	f := &fakeAuthServer{accessTTL: 15 * time.Minute}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if body.Email != "jane@example.com" || body.Password != "secret6" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid email or password"})
			return
		}
		f.writePair(w, body.Email, false)
	})
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		f.writePair(w, body.Email, false)
	})
	mux.HandleFunc("/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		if f.rejectRefresh.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid refresh token"})
			return
		}

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		claims, err := security.ParseToken(body.RefreshToken, testRefreshSecret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid refresh token"})
			return
		}
		f.writePair(w, claims.Email, claims.IsAdmin)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAuthServer) writePair(w http.ResponseWriter, email string, admin bool) {
	_ = json.NewEncoder(w).Encode(mintPair(email, admin, f.accessTTL))
}

// mintPair panics on signing errors; it also runs inside handler goroutines
// where t.FailNow is off limits.
func mintPair(email string, admin bool, accessTTL time.Duration) Tokens {
	claims := security.Claims{
		Email:     email,
		FirstName: "Jane",
		LastName:  "Doe",
		IsAdmin:   admin,
		IsActive:  true,
	}
	access, err := security.IssueToken(claims, testAccessSecret, accessTTL)
	if err != nil {
		panic(err)
	}
	refresh, err := security.IssueToken(claims, testRefreshSecret, 7*24*time.Hour)
	if err != nil {
		panic(err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}
}

func newTestManager(t *testing.T, server *fakeAuthServer, store TokenStore) *Manager {
	t.Helper()
	m := NewManager(Options{
		BaseURL: server.URL,
		Store:   store,
		Logger:  zerolog.Nop(),
	})
	m.Start()
	return m
}

func TestStartRestoresPersistedSession(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", true, 15*time.Minute)))

	m := newTestManager(t, server, store)

	state := m.State()
	assert.False(t, state.Loading)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "jane@example.com", state.User.Email)
	assert.True(t, m.IsAdmin())
	assert.Zero(t, server.refreshCalls.Load(), "restore must not hit the network")
}

func TestStartClearsUndecodableTokens(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(Tokens{AccessToken: "garbage", RefreshToken: "garbage"}))

	m := newTestManager(t, server, store)

	assert.False(t, m.IsAuthenticated())
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.True(t, persisted.Empty())
}

func TestLogin(t *testing.T) {
	server := newFakeAuthServer(t)
	m := newTestManager(t, server, NewMemoryStore())

	_, err := m.Login(context.Background(), "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())

	tokens, err := m.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)
	assert.False(t, tokens.Empty())
	assert.True(t, m.IsAuthenticated())
	assert.False(t, m.IsAdmin())
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", false, 15*time.Minute)))
	m := newTestManager(t, server, store)

	_, err := m.Login(context.Background(), "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, m.IsAuthenticated(), "a failed re-login must not evict the current session")
}

func TestValidAccessTokenFreshTokenSkipsNetwork(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	pair := mintPair("jane@example.com", false, 15*time.Minute)
	require.NoError(t, store.Save(pair))
	m := newTestManager(t, server, store)

	token, err := m.ValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, token)
	assert.Zero(t, server.refreshCalls.Load())
}

func TestValidAccessTokenLoggedOut(t *testing.T) {
	server := newFakeAuthServer(t)
	m := newTestManager(t, server, NewMemoryStore())

	_, err := m.ValidAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestValidAccessTokenRefreshesNearExpiry(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	stale := mintPair("jane@example.com", false, 30*time.Second)
	require.NoError(t, store.Save(stale))
	m := newTestManager(t, server, store)

	token, err := m.ValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, stale.AccessToken, token)
	assert.Equal(t, int64(1), server.refreshCalls.Load())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, token, persisted.AccessToken, "refreshed pair must be persisted")
}

func TestValidAccessTokenCoalescesConcurrentRefreshes(t *testing.T) {
	server := newFakeAuthServer(t)
	server.refreshDelay = 150 * time.Millisecond
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", false, 30*time.Second)))
	m := newTestManager(t, server, store)

	const callers = 5
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.ValidAccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, tokens[0], tokens[i], "all callers must observe the same refreshed token")
	}
	assert.Equal(t, int64(1), server.refreshCalls.Load(), "concurrent callers must share one exchange")
}

func TestRefreshFailureClearsSessionOnce(t *testing.T) {
	server := newFakeAuthServer(t)
	server.rejectRefresh.Store(true)
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", false, 30*time.Second)))
	m := newTestManager(t, server, store)

	var loggedOut atomic.Int64
	unsubscribe := m.Subscribe(func(state State) {
		if !state.IsAuthenticated {
			loggedOut.Add(1)
		}
	})
	defer unsubscribe()

	_, err := m.ValidAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrRefreshFailed)

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, int64(1), loggedOut.Load(), "exactly one logged-out notification")

	persisted, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.True(t, persisted.Empty())

	_, err = m.ValidAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestLogoutDuringRefreshStaysLoggedOut(t *testing.T) {
	server := newFakeAuthServer(t)
	server.refreshDelay = 200 * time.Millisecond
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", false, 30*time.Second)))
	m := newTestManager(t, server, store)

	done := make(chan struct{})
	var tokenErr error
	go func() {
		defer close(done)
		_, tokenErr = m.ValidAccessToken(context.Background())
	}()

	// Let the exchange reach the server before logging out.
	require.Eventually(t, func() bool {
		return server.refreshCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	m.Logout()
	<-done

	assert.ErrorIs(t, tokenErr, ErrLoggedOut)
	assert.False(t, m.IsAuthenticated(), "the late refresh result must not resurrect the session")

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.True(t, persisted.Empty(), "the late refresh result must not be re-persisted")

	_, err = m.ValidAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)
	assert.Equal(t, int64(1), server.refreshCalls.Load())
}

func TestLoginDuringRefreshWins(t *testing.T) {
	server := newFakeAuthServer(t)
	server.refreshDelay = 200 * time.Millisecond
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", false, 30*time.Second)))
	m := newTestManager(t, server, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.ValidAccessToken(context.Background())
	}()

	require.Eventually(t, func() bool {
		return server.refreshCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	// A different account signs in while the old session's refresh is still
	// in flight; the late result must not displace it.
	_, err := m.Register(context.Background(), RegisterInput{Email: "amira@example.com", Password: "secret6"})
	require.NoError(t, err)
	<-done

	state := m.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "amira@example.com", state.User.Email)

	persisted, err := store.Load()
	require.NoError(t, err)
	claims, err := security.DecodeClaimsUnverified(persisted.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "amira@example.com", claims.Email, "the new session's pair must survive the late refresh result")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	server := newFakeAuthServer(t)
	m := newTestManager(t, server, NewMemoryStore())

	var first, second []State
	unsubFirst := m.Subscribe(func(state State) { first = append(first, state) })
	unsubSecond := m.Subscribe(func(state State) { second = append(second, state) })
	defer unsubSecond()

	_, err := m.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, first[0].IsAuthenticated)
	assert.Equal(t, "jane@example.com", first[0].User.Email)

	unsubFirst()
	m.Logout()

	assert.Len(t, first, 1, "unsubscribed listener must not be called")
	require.Len(t, second, 2)
	assert.False(t, second[1].IsAuthenticated)
	assert.Nil(t, second[1].User)
}

func TestLogoutIsIdempotent(t *testing.T) {
	server := newFakeAuthServer(t)
	m := newTestManager(t, server, NewMemoryStore())

	_, err := m.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)

	var notifications atomic.Int64
	defer m.Subscribe(func(State) { notifications.Add(1) })()

	m.Logout()
	m.Logout()
	m.Logout()

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, int64(1), notifications.Load(), "repeat logouts must not re-notify")
}

func TestSetUserFromProfileEdit(t *testing.T) {
	server := newFakeAuthServer(t)
	m := newTestManager(t, server, NewMemoryStore())

	_, err := m.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)

	var states []State
	defer m.Subscribe(func(state State) { states = append(states, state) })()

	m.SetUserFromProfileEdit("Janet", "Smith")

	require.Len(t, states, 1)
	assert.Equal(t, "Janet", states[0].User.FirstName)
	assert.Equal(t, "Smith", states[0].User.LastName)
	assert.False(t, states[0].User.IsAdmin, "display edits must not touch authorization flags")
	assert.Zero(t, server.refreshCalls.Load())
}

func TestGuardsNeverTriggerRefresh(t *testing.T) {
	server := newFakeAuthServer(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(mintPair("jane@example.com", true, 30*time.Second)))
	m := newTestManager(t, server, store)

	assert.True(t, m.IsAuthenticated())
	assert.True(t, m.IsAdmin())
	assert.Zero(t, server.refreshCalls.Load(), "guards are pure local reads")
}
