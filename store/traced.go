package store

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/goSession/store"

// Traced decorates a [TokenStore] with one client span per call. Token values are never
// recorded; only the user id or jti and the outcome are attached.
type Traced struct {
	next   TokenStore
	tracer trace.Tracer
}

// NewTraced wraps next. A nil provider falls back to the global tracer provider.
func NewTraced(next TokenStore, provider trace.TracerProvider) *Traced {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Traced{next: next, tracer: provider.Tracer(tracerName)}
}

// Unwrap returns the decorated store.
func (t *Traced) Unwrap() TokenStore {
	return t.next
}

func (t *Traced) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store unavailable")
	}
	span.End()
}

func (t *Traced) PutRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	ctx, span := t.start(ctx, "PutRefresh", attribute.Int64("user.id", userID), attribute.Int64("ttl.ms", ttl.Milliseconds()))
	err := t.next.PutRefresh(ctx, userID, token, ttl)
	finish(span, err)
	return err
}

func (t *Traced) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	ctx, span := t.start(ctx, "GetRefresh", attribute.Int64("user.id", userID))
	token, ok, err := t.next.GetRefresh(ctx, userID)
	span.SetAttributes(attribute.Bool("found", ok))
	finish(span, err)
	return token, ok, err
}

func (t *Traced) DeleteRefresh(ctx context.Context, userID int64) error {
	ctx, span := t.start(ctx, "DeleteRefresh", attribute.Int64("user.id", userID))
	err := t.next.DeleteRefresh(ctx, userID)
	finish(span, err)
	return err
}

func (t *Traced) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	ctx, span := t.start(ctx, "Blacklist", attribute.String("token.jti", tokenID), attribute.Int64("ttl.ms", ttl.Milliseconds()))
	err := t.next.Blacklist(ctx, tokenID, ttl)
	finish(span, err)
	return err
}

func (t *Traced) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	ctx, span := t.start(ctx, "IsBlacklisted", attribute.String("token.jti", tokenID))
	revoked, err := t.next.IsBlacklisted(ctx, tokenID)
	span.SetAttributes(attribute.Bool("revoked", revoked))
	finish(span, err)
	return revoked, err
}

func (t *Traced) SwapRefresh(ctx context.Context, userID int64, expected, next string, ttl time.Duration) error {
	sw, ok := swapper(t.next)
	if !ok {
		return ErrSwapUnsupported
	}
	ctx, span := t.start(ctx, "SwapRefresh", attribute.Int64("user.id", userID), attribute.Int64("ttl.ms", ttl.Milliseconds()))
	err := sw.SwapRefresh(ctx, userID, expected, next, ttl)
	span.SetAttributes(attribute.Bool("mismatch", errors.Is(err, ErrRefreshMismatch)))
	finish(span, err)
	return err
}

func (t *Traced) Ping(ctx context.Context) (time.Duration, error) {
	p, ok := pinger(t.next)
	if !ok {
		return 0, nil
	}
	ctx, span := t.start(ctx, "Ping")
	d, err := p.Ping(ctx)
	finish(span, err)
	return d, err
}
