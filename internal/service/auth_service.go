package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already exists")
	ErrRefreshInvalid     = errors.New("invalid refresh token")
)

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type AuthService struct {
	users UserStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthResult struct {
	Tokens TokenPair
	User   models.User
}

func (s *AuthService) Register(ctx context.Context, user models.User, password string) (AuthResult, error) {
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Email == "" || password == "" {
		return AuthResult{}, errors.New("email and password required")
	}

	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}

	user.PasswordHash = passwordHash
	user.IsAdmin = false
	user.IsActive = true

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	tokens, err := s.mintTokens(user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("email", user.Email).Msg("user registered")
	return AuthResult{Tokens: tokens, User: user}, nil
}

// Login collapses missing user, wrong password, and inactive account into one
// ErrInvalidCredentials so the response never reveals which check failed.
func (s *AuthService) Login(ctx context.Context, email string, password string) (AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	tokens, err := s.mintTokens(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Tokens: tokens, User: user}, nil
}

// Refresh verifies the refresh token against the refresh secret, re-fetches
// the user record, and mints a pair with fresh claims. This is the point
// where profile edits catch up with the claim snapshot.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := security.ParseToken(refreshToken, s.cfg.Security.JWTRefreshSecret)
	if err != nil {
		return AuthResult{}, ErrRefreshInvalid
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrRefreshInvalid
		}
		return AuthResult{}, err
	}
	if !user.IsActive {
		return AuthResult{}, ErrRefreshInvalid
	}

	tokens, err := s.mintTokens(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Tokens: tokens, User: user}, nil
}

func (s *AuthService) mintTokens(user models.User) (TokenPair, error) {
	claims := security.Claims{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   user.IsAdmin,
		IsActive:  user.IsActive,
	}

	access, err := security.IssueToken(claims, s.cfg.Security.JWTAccessSecret, s.cfg.Security.JWTAccessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := security.IssueToken(claims, s.cfg.Security.JWTRefreshSecret, s.cfg.Security.JWTRefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
