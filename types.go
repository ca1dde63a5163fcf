package goSession

import (
	"context"
	"time"
)

// Role is the authorization tag carried in tokens. The session layer does not evaluate it.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Principal identifies an authenticated user for the lifetime of one request.
type Principal struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// CredentialVerifier checks a login attempt and returns the matching principal.
//
// Implementations return [ErrInvalidCredentials] for unknown users and wrong passwords so
// callers cannot tell the two apart. Any other error is treated as an infrastructure fault.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (Principal, error)
}

// CredentialVerifierFunc adapts a function to [CredentialVerifier].
type CredentialVerifierFunc func(ctx context.Context, email, password string) (Principal, error)

func (f CredentialVerifierFunc) VerifyCredentials(ctx context.Context, email, password string) (Principal, error) {
	return f(ctx, email, password)
}

// SessionTokens is the outcome of issuing or rotating a session. Transport placement of the
// two tokens is the caller's concern.
type SessionTokens struct {
	AccessToken      string
	AccessTokenID    string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	// RefreshTTL is the lifetime the refresh record was stored with. After rotation it is the
	// remaining absolute lifetime of the session, not a fresh full TTL.
	RefreshTTL time.Duration
	Principal  Principal
}

// AuthResult describes a successfully authorized access token.
type AuthResult struct {
	Principal Principal
	TokenID   string
	ExpiresAt time.Time
}
