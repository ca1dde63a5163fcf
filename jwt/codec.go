package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the smallest HS256 key accepted by [NewCodec].
const MinSecretLength = 32

var (
	// ErrMalformed is returned when a token cannot be parsed or lacks required claims.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature is returned when the signature does not verify under the configured key.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the token's expiry is not in the future.
	ErrExpired = errors.New("token expired")
	// ErrInvalidTTL is returned by Issue for a non-positive or sub-second lifetime.
	ErrInvalidTTL = errors.New("token ttl must be at least one second")
)

// TokenType separates access tokens from refresh tokens. It travels as the "typ" claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Config carries the signing key and validation knobs for a [Codec].
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	// Now overrides the wall clock. Nil means time.Now.
	Now func() time.Time
}

// Claims is the decoded, verified content of a token.
type Claims struct {
	UserID    int64
	Email     string
	Role      string
	Type      TokenType
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining reports how long the token stays valid relative to now.
func (c Claims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

type wireClaims struct {
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewCodec validates cfg and returns a ready [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Codec{
		secret:   secret,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		leeway:   cfg.Leeway,
		now:      now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Now returns the codec's clock reading. Flows use it so that lifetime arithmetic and
// token timestamps come from the same source.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Leeway is the grace period Verify allows past ExpiresAt. A token is accepted until
// ExpiresAt + Leeway, so anything that must outlive its acceptance adds it.
func (c *Codec) Leeway() time.Duration {
	return c.leeway
}

// Issue signs claims with a fresh token id, IssuedAt = now and ExpiresAt = now + ttl.
// Timestamps are whole seconds: IssuedAt rounds down and ExpiresAt rounds up, so a token is
// never valid for less than ttl. The returned Claims mirror exactly what Verify will report.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, Claims, error) {
	if ttl < time.Second {
		return "", Claims{}, ErrInvalidTTL
	}
	now := c.now()
	return c.sign(claims, now.Truncate(time.Second), ceilSecond(now.Add(ttl)))
}

// IssueUntil signs claims whose expiry is pinned to expiresAt instead of a relative TTL.
// Refresh rotation uses it to carry the original absolute expiry forward. An expiry that
// is not in the future fails with [ErrExpired].
func (c *Codec) IssueUntil(claims Claims, expiresAt time.Time) (string, Claims, error) {
	now := c.now()
	if !expiresAt.After(now) {
		return "", Claims{}, ErrExpired
	}
	token, out, err := c.sign(claims, now.Truncate(time.Second), ceilSecond(expiresAt))
	if errors.Is(err, ErrInvalidTTL) {
		return "", Claims{}, ErrExpired
	}
	return token, out, err
}

func ceilSecond(t time.Time) time.Time {
	if r := t.Truncate(time.Second); !r.Equal(t) {
		return r.Add(time.Second)
	}
	return t
}

func (c *Codec) sign(claims Claims, issuedAt, expiresAt time.Time) (string, Claims, error) {
	if !expiresAt.After(issuedAt) {
		return "", Claims{}, ErrInvalidTTL
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return "", Claims{}, fmt.Errorf("unsupported token type %q", claims.Type)
	}

	claims.TokenID = uuid.NewString()
	claims.IssuedAt = issuedAt
	claims.ExpiresAt = expiresAt

	wire := wireClaims{
		Email: claims.Email,
		Role:  claims.Role,
		Type:  claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    c.issuer,
		},
	}
	if c.audience != "" {
		wire.Audience = jwt.ClaimStrings{c.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verify checks signature, structure and expiry.
//
// It fails with [ErrInvalidSignature] when the token was not signed by this codec's key,
// [ErrMalformed] when it cannot be decoded or misses required claims, and [ErrExpired] when
// ExpiresAt is not after now.
func (c *Codec) Verify(token string) (Claims, error) {
	return c.verify(token, false)
}

// VerifyAllowExpired behaves like Verify but accepts tokens past their expiry. Signature and
// structure are still enforced.
func (c *Codec) VerifyAllowExpired(token string) (Claims, error) {
	return c.verify(token, true)
}

func (c *Codec) verify(token string, allowExpired bool) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrMalformed
	}

	var wire wireClaims
	_, err := c.parser.ParseWithClaims(token, &wire, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	claims, err := c.decode(&wire)
	if err != nil {
		return Claims{}, err
	}

	if !allowExpired && !claims.ExpiresAt.Add(c.leeway).After(c.now()) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

func (c *Codec) decode(wire *wireClaims) (Claims, error) {
	if wire.ExpiresAt == nil || wire.IssuedAt == nil || wire.ID == "" {
		return Claims{}, ErrMalformed
	}
	userID, err := strconv.ParseInt(wire.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	if wire.Type != TypeAccess && wire.Type != TypeRefresh {
		return Claims{}, ErrMalformed
	}
	if c.issuer != "" && wire.Issuer != c.issuer {
		return Claims{}, ErrMalformed
	}
	if c.audience != "" {
		found := false
		for _, aud := range wire.Audience {
			if aud == c.audience {
				found = true
				break
			}
		}
		if !found {
			return Claims{}, ErrMalformed
		}
	}
	if !wire.ExpiresAt.After(wire.IssuedAt.Time) {
		return Claims{}, ErrMalformed
	}

	return Claims{
		UserID:    userID,
		Email:     wire.Email,
		Role:      wire.Role,
		Type:      wire.Type,
		TokenID:   wire.ID,
		IssuedAt:  wire.IssuedAt.Time,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
