package goSession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// errNoCredentialVerifier is returned by Authenticate when the engine was built without one.
var errNoCredentialVerifier = errors.New("credential verifier not configured")

// Engine issues, rotates, revokes and authorizes sessions. It is safe for concurrent use;
// the only shared state is the read-only signing key and the store client.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	store       store.TokenStore
	flows       flows.Deps
	credentials CredentialVerifier
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Close drains pending audit events. The store client is owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "gosession."+op, trace.WithAttributes(attrs...))
}

// endSpan records the outcome. Expected authentication failures leave the span status unset;
// only infrastructure faults mark it as an error.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("error.code", DescribeError(err).Code))
		if !IsAuthFailure(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// storeFailure counts and logs a store outage and returns the error to surface.
func (e *Engine) storeFailure(op string, err error) error {
	e.metricInc(MetricStoreError)
	e.logger.Warn("token store unavailable", zap.String("op", op), zap.Error(err))
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) sessionTokens(pair flows.TokenPair) *SessionTokens {
	return &SessionTokens{
		AccessToken:      pair.Access,
		AccessTokenID:    pair.AccessClaims.TokenID,
		RefreshToken:     pair.Refresh,
		AccessExpiresAt:  pair.AccessClaims.ExpiresAt,
		RefreshExpiresAt: pair.RefreshClaims.ExpiresAt,
		RefreshTTL:       pair.RefreshTTL,
		Principal:        principalFromClaims(pair.AccessClaims),
	}
}

func principalFromClaims(c jwt.Claims) Principal {
	return Principal{UserID: c.UserID, Email: c.Email, Role: Role(c.Role)}
}

/*
====================================
AUTHENTICATE / ISSUE
====================================
*/

// Authenticate checks email and password with the configured [CredentialVerifier].
// Unknown users and wrong passwords both yield [ErrInvalidCredentials].
func (e *Engine) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	if e.credentials == nil {
		return Principal{}, errNoCredentialVerifier
	}

	p, err := e.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, 0, "", err, nil)
		if !errors.Is(err, ErrInvalidCredentials) {
			e.logger.Error("credential verification failed", zap.Error(err))
		}
		return Principal{}, err
	}
	return p, nil
}

// IssueSession starts a new session for p. The new refresh token replaces any earlier one,
// so previously issued refresh tokens for the same user stop rotating.
func (e *Engine) IssueSession(ctx context.Context, p Principal) (*SessionTokens, error) {
	ctx, span := e.startSpan(ctx, "IssueSession", attribute.Int64("user.id", p.UserID))
	tokens, err := e.issueSession(ctx, p)
	endSpan(span, err)
	return tokens, err
}

func (e *Engine) issueSession(ctx context.Context, p Principal) (*SessionTokens, error) {
	id := flows.Identity{UserID: p.UserID, Email: p.Email, Role: string(p.Role)}
	res := flows.RunIssue(ctx, id, e.flows.Issue)

	switch res.Failure {
	case flows.IssueFailureNone:
	case flows.IssueFailurePersist:
		return nil, e.storeFailure("issue", res.Err)
	default:
		e.logger.Error("token signing failed", zap.Int64("user_id", p.UserID), zap.Error(res.Err))
		return nil, fmt.Errorf("%w: %v", ErrSessionIssueFailed, res.Err)
	}

	e.metricInc(MetricSessionIssued)
	e.logger.Debug("session issued",
		zap.Int64("user_id", p.UserID),
		zap.String("access_jti", res.Tokens.AccessClaims.TokenID),
	)
	return e.sessionTokens(res.Tokens), nil
}

// Login authenticates the credentials and issues a session.
func (e *Engine) Login(ctx context.Context, email, password string) (*SessionTokens, error) {
	ctx, span := e.startSpan(ctx, "Login")
	defer span.End()

	p, err := e.Authenticate(ctx, email, password)
	if err != nil {
		span.SetAttributes(attribute.String("error.code", DescribeError(err).Code))
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", p.UserID))

	tokens, err := e.issueSession(ctx, p)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, p.UserID, "", err, reasonMetadata("issue_failed"))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, true, p.UserID, tokens.AccessTokenID, nil, nil)
	return tokens, nil
}

/*
====================================
ROTATE
====================================
*/

// Rotate exchanges a refresh token for a new access/refresh pair. The new refresh token
// expires when the presented one did; the session's absolute lifetime never grows.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	ctx, span := e.startSpan(ctx, "Rotate")
	tokens, err := e.rotate(ctx, refreshToken, span)
	endSpan(span, err)
	return tokens, err
}

func (e *Engine) rotate(ctx context.Context, refreshToken string, span trace.Span) (*SessionTokens, error) {
	res := flows.RunRotate(ctx, refreshToken, e.flows.Rotate)
	span.SetAttributes(
		attribute.String("rotate.stage", string(res.Stage)),
		attribute.Int64("user.id", res.UserID),
	)

	if res.Failure == flows.RotateFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, AuditRefreshSuccess, true, res.UserID, res.Tokens.AccessClaims.TokenID, nil, nil)
		e.logger.Debug("session rotated",
			zap.Int64("user_id", res.UserID),
			zap.Duration("remaining", res.Tokens.RefreshTTL),
		)
		return e.sessionTokens(res.Tokens), nil
	}

	var (
		err    error
		reason string
	)
	switch res.Failure {
	case flows.RotateFailureMissing:
		err, reason = ErrMissingRefreshToken, "missing"
	case flows.RotateFailureExpired:
		err, reason = ErrRefreshTokenExpired, "expired"
	case flows.RotateFailureLifetimeExhausted:
		err, reason = ErrRefreshTokenExpired, "lifetime_exhausted"
	case flows.RotateFailureVerify:
		err, reason = ErrInvalidRefreshToken, "verify_failed"
	case flows.RotateFailureWrongType:
		err, reason = ErrInvalidRefreshToken, "wrong_type"
	case flows.RotateFailureNotFound:
		err, reason = ErrInvalidRefreshToken, "not_found"
	case flows.RotateFailureMismatch:
		err, reason = ErrInvalidRefreshToken, "mismatch"
	case flows.RotateFailureSuperseded:
		e.metricInc(MetricRefreshSuperseded)
		err, reason = ErrInvalidRefreshToken, "superseded"
	case flows.RotateFailureStoreRead, flows.RotateFailurePersist:
		err, reason = e.storeFailure("rotate", res.Err), "store_unavailable"
	default:
		e.logger.Error("token signing failed", zap.Int64("user_id", res.UserID), zap.Error(res.Err))
		err, reason = fmt.Errorf("%w: %v", ErrSessionIssueFailed, res.Err), "sign_failed"
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditRefreshInvalid, false, res.UserID, "", err, reasonMetadata(reason))
	return nil, err
}

/*
====================================
END SESSION / AUTHORIZE
====================================
*/

// EndSession revokes accessToken until its natural expiry and deletes the user's refresh
// record. Expired access tokens are accepted so a client can always log out.
func (e *Engine) EndSession(ctx context.Context, accessToken string) error {
	ctx, span := e.startSpan(ctx, "EndSession")
	err := e.endSession(ctx, accessToken, span)
	endSpan(span, err)
	return err
}

func (e *Engine) endSession(ctx context.Context, accessToken string, span trace.Span) error {
	res := flows.RunEndSession(ctx, accessToken, e.flows.EndSession)
	span.SetAttributes(attribute.Int64("user.id", res.Claims.UserID))

	var err error
	switch res.Failure {
	case flows.EndSessionFailureNone:
		e.metricInc(MetricSessionEnded)
		e.emitAudit(ctx, AuditSessionEnded, true, res.Claims.UserID, res.Claims.TokenID, nil, func() map[string]string {
			if res.Blacklisted {
				return map[string]string{"blacklisted": "true"}
			}
			return map[string]string{"blacklisted": "false"}
		})
		e.logger.Debug("session ended", zap.Int64("user_id", res.Claims.UserID), zap.Bool("blacklisted", res.Blacklisted))
		return nil
	case flows.EndSessionFailureMissing:
		err = ErrMissingAccessToken
	case flows.EndSessionFailureSignature:
		err = ErrInvalidSignature
	case flows.EndSessionFailureMalformed, flows.EndSessionFailureWrongType:
		err = ErrMalformed
	default:
		err = e.storeFailure("end_session", res.Err)
	}

	e.emitAudit(ctx, AuditSessionEnded, false, res.Claims.UserID, res.Claims.TokenID, err, nil)
	return err
}

// Authorize verifies accessToken and checks the revocation blacklist. A store failure
// denies the request with [ErrStoreUnavailable]. A nil engine denies everything.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrMissingAccessToken
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	ctx, span := e.startSpan(ctx, "Authorize")
	result, err := e.authorize(ctx, accessToken)
	endSpan(span, err)
	return result, err
}

func (e *Engine) authorize(ctx context.Context, accessToken string) (*AuthResult, error) {
	res := flows.RunAuthorize(ctx, accessToken, e.flows.Authorize)

	var err error
	switch res.Failure {
	case flows.AuthorizeFailureNone:
		e.metricInc(MetricAuthorizeSuccess)
		return &AuthResult{
			Principal: principalFromClaims(res.Claims),
			TokenID:   res.Claims.TokenID,
			ExpiresAt: res.Claims.ExpiresAt,
		}, nil
	case flows.AuthorizeFailureMissing:
		err = ErrMissingAccessToken
	case flows.AuthorizeFailureExpired:
		err = ErrAccessTokenExpired
	case flows.AuthorizeFailureSignature:
		err = ErrInvalidSignature
	case flows.AuthorizeFailureMalformed, flows.AuthorizeFailureWrongType:
		err = ErrMalformed
	case flows.AuthorizeFailureRevoked:
		e.metricInc(MetricAuthorizeRevoked)
		e.emitAudit(ctx, AuditAccessRevoked, false, res.Claims.UserID, res.Claims.TokenID, ErrAccessTokenRevoked, nil)
		err = ErrAccessTokenRevoked
	default:
		err = e.storeFailure("authorize", res.Err)
	}

	e.metricInc(MetricAuthorizeFailure)
	return nil, err
}

// Ping reports the token store round-trip time. Stores without a health probe report zero.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	p, ok := e.store.(store.Pinger)
	if !ok {
		return 0, nil
	}
	d, err := p.Ping(ctx)
	if err != nil {
		return 0, e.storeFailure("ping", err)
	}
	return d, nil
}
