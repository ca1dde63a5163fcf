package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) { s.count.Add(1) }

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) { <-s.gate }

func TestNewDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	assert.Nil(t, d)

	// nil dispatcher is safe to use
	d.Emit(context.Background(), Event{EventType: EventLoginSuccess})
	d.Close()
	assert.Zero(t, d.Dropped())
	assert.Zero(t, d.Delivered())
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for range 50 {
		d.Emit(context.Background(), Event{EventType: EventRefreshSuccess})
	}
	d.Close()

	assert.EqualValues(t, 50, sink.count.Load())
	assert.EqualValues(t, 50, d.Delivered())

	d.Emit(context.Background(), Event{EventType: EventRefreshSuccess})
	assert.EqualValues(t, 50, sink.count.Load(), "emit after close must be ignored")
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for range 10 {
		d.Emit(context.Background(), Event{EventType: EventLoginFailure})
	}
	assert.Positive(t, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Emit(ctx, Event{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking emit did not honor context cancellation")
	}
}

func TestDispatcherStampsTimestamp(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, Now: func() time.Time { return fixed }}, sink)

	d.Emit(context.Background(), Event{EventType: EventSessionEnded})
	d.Close()

	got := <-sink.Events()
	assert.True(t, got.Timestamp.Equal(fixed))
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: EventLoginSuccess, UserID: 3, Success: true})

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, EventLoginSuccess, got["event_type"])
	assert.EqualValues(t, 3, got["user_id"])
	assert.Equal(t, true, got["success"])
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: EventLoginSuccess, UserID: 1, Success: true})
	sink.Emit(context.Background(), Event{
		EventType: EventRefreshInvalid,
		Error:     "invalid refresh token",
		Metadata:  map[string]string{"reason": "mismatch"},
	})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(1), entries[0].ContextMap()["user_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "mismatch", entries[1].ContextMap()["meta.reason"])
	assert.Equal(t, "audit", entries[1].LoggerName)
}
