package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one audit record emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events. Events are delivered from a single goroutine.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess   = audit.EventLoginSuccess
	AuditLoginFailure   = audit.EventLoginFailure
	AuditRefreshSuccess = audit.EventRefreshSuccess
	AuditRefreshInvalid = audit.EventRefreshInvalid
	AuditSessionEnded   = audit.EventSessionEnded
	AuditAccessRevoked  = audit.EventAccessRevoked
)

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

type JSONWriterSink = audit.JSONWriterSink

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// ZapAuditSink logs events through zap under the "audit" logger name.
type ZapAuditSink = audit.ZapSink

func NewZapAuditSink(logger *zap.Logger) *ZapAuditSink {
	return audit.NewZapSink(logger)
}
