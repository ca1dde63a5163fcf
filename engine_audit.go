package goSession

import (
	"context"
	"errors"
)

// auditErrorCode is the stable, token-free reason recorded on failed audit events.
type auditErrorCode string

const (
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrMissingToken       auditErrorCode = "missing_token"
	auditErrInvalidToken       auditErrorCode = "invalid_token"
	auditErrExpired            auditErrorCode = "expired"
	auditErrRevoked            auditErrorCode = "revoked"
	auditErrUnavailable        auditErrorCode = "backend_unavailable"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.codec.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditReason(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func reasonMetadata(reason string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": reason}
	}
}

func auditReason(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrMissingAccessToken),
		errors.Is(err, ErrMissingRefreshToken):
		return auditErrMissingToken
	case errors.Is(err, ErrAccessTokenExpired),
		errors.Is(err, ErrRefreshTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrAccessTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrMalformed),
		errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidToken
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
