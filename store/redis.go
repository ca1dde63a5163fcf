package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	swapStatusNotFound int64 = 0
	swapStatusMismatch int64 = 1
	swapStatusSwapped  int64 = 2
)

const swapRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var swapRefreshLua = redis.NewScript(swapRefreshScript)

// RedisStore is the production [TokenStore]. Every operation is a single round trip.
type RedisStore struct {
	redis     redis.UniversalClient
	namespace string
}

// NewRedisStore creates a [RedisStore]. namespace is prepended to every key and may be empty.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{
		redis:     client,
		namespace: namespace,
	}
}

// PutRefresh upserts the user's refresh record with SET ... PX.
//
//	Performance: 1 Redis SET.
func (s *RedisStore) PutRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.redis.Set(ctx, refreshKey(s.namespace, userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetRefresh reads the user's refresh record.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	token, err := s.redis.Get(ctx, refreshKey(s.namespace, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, true, nil
}

// DeleteRefresh removes the user's refresh record.
func (s *RedisStore) DeleteRefresh(ctx context.Context, userID int64) error {
	if err := s.redis.Del(ctx, refreshKey(s.namespace, userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Blacklist stores the revocation marker for tokenID with the given TTL.
func (s *RedisStore) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistKey(s.namespace, tokenID), blacklistSentinel, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsBlacklisted reports whether a revocation marker exists for tokenID.
//
//	Performance: 1 Redis EXISTS.
func (s *RedisStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, blacklistKey(s.namespace, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// SwapRefresh replaces the refresh record only when it still equals expected.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: a concurrent rotation that already replaced the record makes this call fail
//	with ErrRefreshMismatch instead of silently overwriting the winner.
func (s *RedisStore) SwapRefresh(ctx context.Context, userID int64, expected, next string, ttl time.Duration) error {
	ttlMillis := ttl.Milliseconds()
	if ttlMillis <= 0 {
		return ErrInvalidTTL
	}

	code, err := swapRefreshLua.Run(
		ctx,
		s.redis,
		[]string{refreshKey(s.namespace, userID)},
		expected,
		next,
		ttlMillis,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch code {
	case swapStatusSwapped:
		return nil
	case swapStatusNotFound, swapStatusMismatch:
		return ErrRefreshMismatch
	default:
		return fmt.Errorf("%w: unknown swap script status %d", ErrStoreUnavailable, code)
	}
}

// Ping checks connectivity and reports the round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
