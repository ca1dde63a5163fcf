package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first failures calls with ErrStoreUnavailable.
type flakyStore struct {
	plainStore
	failures int32
	calls    atomic.Int32
}

func (f *flakyStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if f.calls.Add(1) <= f.failures {
		return false, fmt.Errorf("%w: connection reset", ErrStoreUnavailable)
	}
	return f.plainStore.IsBlacklisted(ctx, tokenID)
}

func (f *flakyStore) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	f.calls.Add(1)
	return f.plainStore.GetRefresh(ctx, userID)
}

func fastRetry(max uint64) RetryConfig {
	return RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	mem := NewMemoryStore(nil)
	require.NoError(t, mem.Blacklist(context.Background(), "jti", time.Minute))
	flaky := &flakyStore{plainStore: plainStore{mem}, failures: 2}

	r := NewRetrying(flaky, fastRetry(2))
	revoked, err := r.IsBlacklisted(context.Background(), "jti")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.EqualValues(t, 3, flaky.calls.Load())
}

func TestRetryingGivesUpWithStoreUnavailable(t *testing.T) {
	flaky := &flakyStore{plainStore: plainStore{NewMemoryStore(nil)}, failures: 100}

	r := NewRetrying(flaky, fastRetry(2))
	_, err := r.IsBlacklisted(context.Background(), "jti")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.EqualValues(t, 3, flaky.calls.Load())
}

func TestRetryingDoesNotRetryAbsentRecord(t *testing.T) {
	flaky := &flakyStore{plainStore: plainStore{NewMemoryStore(nil)}}

	r := NewRetrying(flaky, fastRetry(5))
	_, ok, err := r.GetRefresh(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, flaky.calls.Load())
}

func TestRetryingDoesNotRetryMismatch(t *testing.T) {
	mem := NewMemoryStore(nil)
	require.NoError(t, mem.PutRefresh(context.Background(), 1, "current", time.Minute))

	r := NewRetrying(mem, fastRetry(5))
	err := r.SwapRefresh(context.Background(), 1, "stale", "next", time.Minute)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestRetryingCanceledContextReportsUnavailable(t *testing.T) {
	flaky := &flakyStore{plainStore: plainStore{NewMemoryStore(nil)}, failures: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrying(flaky, RetryConfig{MaxRetries: 10, BaseDelay: 50 * time.Millisecond})
	_, err := r.IsBlacklisted(ctx, "jti")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
