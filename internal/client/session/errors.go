package session

import "errors"

var (
	// ErrInvalidCredentials covers a wrong email/password pair and an
	// inactive account alike; the server does not distinguish them.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRefreshFailed means the refresh token was rejected or the exchange
	// could not complete. The session is already cleared when it is returned.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrLoggedOut is returned when a token is requested with no session.
	ErrLoggedOut = errors.New("not logged in")
)
