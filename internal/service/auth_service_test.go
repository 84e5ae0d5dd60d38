package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/security"
)

type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: map[string]models.User{}}
}

func (s *memoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return repository.ErrUserExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryUserStore) put(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = user
}

func authTestConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Security.JWTAccessSecret = "access-secret"
	cfg.Security.JWTRefreshSecret = "refresh-secret"
	cfg.Security.JWTAccessTTL = 15 * time.Minute
	cfg.Security.JWTRefreshTTL = 7 * 24 * time.Hour
	return cfg
}

func seedUser(t *testing.T, store *memoryUserStore, email string, password string, active bool, admin bool) {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	store.put(models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     active,
		IsAdmin:      admin,
	})
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	store := newMemoryUserStore()
	svc := NewAuthService(store, authTestConfig(), zerolog.Nop())

	result, err := svc.Register(context.Background(), models.User{
		Email:     "Jane@Example.COM",
		FirstName: "Jane",
		LastName:  "Doe",
	}, "secret6")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", result.User.Email)
	assert.False(t, result.User.IsAdmin)
	assert.True(t, result.User.IsActive)

	claims, err := security.ParseToken(result.Tokens.AccessToken, "access-secret")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane", claims.FirstName)

	_, err = security.ParseToken(result.Tokens.RefreshToken, "refresh-secret")
	require.NoError(t, err)

	_, err = security.ParseToken(result.Tokens.AccessToken, "refresh-secret")
	assert.Error(t, err, "access token must not verify with the refresh secret")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemoryUserStore()
	svc := NewAuthService(store, authTestConfig(), zerolog.Nop())
	seedUser(t, store, "jane@example.com", "secret6", true, false)

	_, err := svc.Register(context.Background(), models.User{Email: "jane@example.com"}, "secret6")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	store := newMemoryUserStore()
	svc := NewAuthService(store, authTestConfig(), zerolog.Nop())
	seedUser(t, store, "jane@example.com", "secret6", true, false)
	seedUser(t, store, "gone@example.com", "secret6", false, false)

	cases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", email: "jane@example.com", password: "secret6"},
		{name: "email case folded", email: "JANE@example.com", password: "secret6"},
		{name: "unknown user", email: "nobody@example.com", password: "secret6", wantErr: ErrInvalidCredentials},
		{name: "wrong password", email: "jane@example.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "inactive account", email: "gone@example.com", password: "secret6", wantErr: ErrInvalidCredentials},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.Login(context.Background(), tc.email, tc.password)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.Tokens.AccessToken)
			assert.NotEmpty(t, result.Tokens.RefreshToken)
		})
	}
}

func TestRefreshMintsFreshClaims(t *testing.T) {
	store := newMemoryUserStore()
	cfg := authTestConfig()
	svc := NewAuthService(store, cfg, zerolog.Nop())
	seedUser(t, store, "jane@example.com", "secret6", true, false)

	login, err := svc.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)

	// Profile changes after login; the refresh result must carry them.
	updated, err := store.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	updated.FirstName = "Janet"
	updated.IsAdmin = true
	store.put(updated)

	refreshed, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := security.ParseToken(refreshed.Tokens.AccessToken, cfg.Security.JWTAccessSecret)
	require.NoError(t, err)
	assert.Equal(t, "Janet", claims.FirstName)
	assert.True(t, claims.IsAdmin)
}

func TestRefreshRejections(t *testing.T) {
	store := newMemoryUserStore()
	cfg := authTestConfig()
	svc := NewAuthService(store, cfg, zerolog.Nop())
	seedUser(t, store, "jane@example.com", "secret6", true, false)

	login, err := svc.Login(context.Background(), "jane@example.com", "secret6")
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Refresh(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := svc.Refresh(context.Background(), login.Tokens.AccessToken)
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	})

	t.Run("user deleted since issuance", func(t *testing.T) {
		store.mu.Lock()
		delete(store.users, "jane@example.com")
		store.mu.Unlock()

		_, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	})

	t.Run("user deactivated since issuance", func(t *testing.T) {
		seedUser(t, store, "jane@example.com", "secret6", false, false)

		_, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrRefreshInvalid)
	})
}
