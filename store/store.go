package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrStoreUnavailable wraps every transport-level failure of the backing store.
var ErrStoreUnavailable = errors.New("token store unavailable")

// ErrRefreshMismatch is returned by SwapRefresh when the stored token is absent or differs
// from the expected one.
var ErrRefreshMismatch = errors.New("refresh token mismatch")

// ErrInvalidTTL is returned when a refresh record is written without a positive lifetime.
var ErrInvalidTTL = errors.New("refresh ttl must be positive")

const (
	refreshKeyPrefix   = "refresh_token:"
	blacklistKeyPrefix = "blacklist:"
	blacklistSentinel  = "1"
)

// TokenStore holds the per-user refresh record and the jti blacklist.
type TokenStore interface {
	// PutRefresh overwrites the user's refresh record in a single atomic write.
	PutRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error
	// GetRefresh reports the stored token; ok is false when none is live.
	GetRefresh(ctx context.Context, userID int64) (token string, ok bool, err error)
	// DeleteRefresh removes the record. Deleting a missing record is not an error.
	DeleteRefresh(ctx context.Context, userID int64) error
	// Blacklist marks tokenID revoked for ttl. A non-positive ttl is a no-op.
	Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsBlacklisted reports whether tokenID is currently revoked.
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// Swapper is implemented by stores that can replace a refresh record only if it still
// holds the expected value.
type Swapper interface {
	SwapRefresh(ctx context.Context, userID int64, expected, next string, ttl time.Duration) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

func refreshKey(namespace string, userID int64) string {
	return namespace + refreshKeyPrefix + strconv.FormatInt(userID, 10)
}

func blacklistKey(namespace, tokenID string) string {
	return namespace + blacklistKeyPrefix + tokenID
}

// ErrSwapUnsupported is returned by decorators whose wrapped store cannot compare-and-swap.
var ErrSwapUnsupported = errors.New("token store does not support compare-and-swap")

type unwrapper interface {
	Unwrap() TokenStore
}

// SupportsSwap reports whether s, or the store it decorates, implements [Swapper].
func SupportsSwap(s TokenStore) bool {
	for s != nil {
		if u, ok := s.(unwrapper); ok {
			s = u.Unwrap()
			continue
		}
		_, ok := s.(Swapper)
		return ok
	}
	return false
}

func swapper(s TokenStore) (Swapper, bool) {
	if !SupportsSwap(s) {
		return nil, false
	}
	sw, ok := s.(Swapper)
	return sw, ok
}

func pinger(s TokenStore) (Pinger, bool) {
	p, ok := s.(Pinger)
	return p, ok
}
