package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig bounds the retry loop of [Retrying].
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// JitterPercent spreads retries of concurrent callers. Zero disables jitter.
	JitterPercent uint64
}

// DefaultRetryConfig returns two retries starting at 10ms, capped at 100ms, with 10% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		BaseDelay:     10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		JitterPercent: 10,
	}
}

// Retrying decorates a [TokenStore] with bounded exponential backoff. Only
// [ErrStoreUnavailable] is retried; absent keys and mismatches return immediately.
// When the context ends the last failure is still reported as [ErrStoreUnavailable].
type Retrying struct {
	next TokenStore
	cfg  RetryConfig
}

// NewRetrying wraps next.
func NewRetrying(next TokenStore, cfg RetryConfig) *Retrying {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.JitterPercent > 100 {
		cfg.JitterPercent = 100
	}
	return &Retrying{next: next, cfg: cfg}
}

// Unwrap returns the decorated store.
func (r *Retrying) Unwrap() TokenStore {
	return r.next
}

func (r *Retrying) backoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.BaseDelay)
	b = retry.WithCappedDuration(r.cfg.MaxDelay, b)
	if r.cfg.JitterPercent > 0 {
		b = retry.WithJitterPercent(r.cfg.JitterPercent, b)
	}
	return retry.WithMaxRetries(r.cfg.MaxRetries, b)
}

func (r *Retrying) do(ctx context.Context, fn func(context.Context) error) error {
	var last error
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		last = fn(ctx)
		if last != nil && errors.Is(last, ErrStoreUnavailable) {
			return retry.RetryableError(last)
		}
		return last
	})
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrStoreUnavailable) {
		if last != nil && errors.Is(last, ErrStoreUnavailable) {
			return last
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func (r *Retrying) PutRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.next.PutRefresh(ctx, userID, token, ttl)
	})
}

func (r *Retrying) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	var (
		token string
		ok    bool
	)
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		token, ok, err = r.next.GetRefresh(ctx, userID)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (r *Retrying) DeleteRefresh(ctx context.Context, userID int64) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.next.DeleteRefresh(ctx, userID)
	})
}

func (r *Retrying) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.next.Blacklist(ctx, tokenID, ttl)
	})
}

func (r *Retrying) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = r.next.IsBlacklisted(ctx, tokenID)
		return err
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// SwapRefresh retries transport failures only. A retry after a lost reply may observe its
// own write and report ErrRefreshMismatch, which fails the rotation closed.
func (r *Retrying) SwapRefresh(ctx context.Context, userID int64, expected, next string, ttl time.Duration) error {
	sw, ok := swapper(r.next)
	if !ok {
		return ErrSwapUnsupported
	}
	return r.do(ctx, func(ctx context.Context) error {
		return sw.SwapRefresh(ctx, userID, expected, next, ttl)
	})
}

// Ping is not retried; health checks want the raw answer.
func (r *Retrying) Ping(ctx context.Context) (time.Duration, error) {
	p, ok := pinger(r.next)
	if !ok {
		return 0, nil
	}
	return p.Ping(ctx)
}
