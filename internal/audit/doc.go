// Package audit buffers session lifecycle events and relays them to a sink.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap logger, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record of one login, rotation, revocation or authorization outcome.
//
// This package owns buffering and delivery only. The Engine decides which events are
// emitted. Sinks never see tokens, only their jti.
package audit
