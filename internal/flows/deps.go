package flows

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// TokenCodec is the subset of *jwt.Codec the flows use.
type TokenCodec interface {
	Now() time.Time
	Leeway() time.Duration
	Issue(claims jwt.Claims, ttl time.Duration) (string, jwt.Claims, error)
	IssueUntil(claims jwt.Claims, expiresAt time.Time) (string, jwt.Claims, error)
	Verify(token string) (jwt.Claims, error)
	VerifyAllowExpired(token string) (jwt.Claims, error)
}

// Identity is the user data embedded in every token of a session.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func identityFromClaims(c jwt.Claims) Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

func (id Identity) claims(typ jwt.TokenType) jwt.Claims {
	return jwt.Claims{UserID: id.UserID, Email: id.Email, Role: id.Role, Type: typ}
}

// TokenPair is a freshly signed access/refresh pair with the claims that went into each.
type TokenPair struct {
	Access        string
	AccessClaims  jwt.Claims
	Refresh       string
	RefreshClaims jwt.Claims
	// RefreshTTL is the lifetime the refresh record was persisted with.
	RefreshTTL time.Duration
}

// VerifyFailureKind classifies codec verification failures shared by all flows.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureMalformed
	VerifyFailureSignature
	VerifyFailureExpired
)

func classifyVerify(err error) VerifyFailureKind {
	switch {
	case err == nil:
		return VerifyFailureNone
	case errors.Is(err, jwt.ErrExpired):
		return VerifyFailureExpired
	case errors.Is(err, jwt.ErrInvalidSignature):
		return VerifyFailureSignature
	default:
		return VerifyFailureMalformed
	}
}

// Deps groups flow dependency sets. The Engine builds this once and delegates each
// request to the matching flow.
type Deps struct {
	Issue      IssueDeps
	Rotate     RotateDeps
	EndSession EndSessionDeps
	Authorize  AuthorizeDeps
}
