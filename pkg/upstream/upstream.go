// Package upstream defines the contract between the gateway and the
// per-client upstream streaming sessions.
package upstream

import (
	"context"

	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
)

// EventSink receives events a session emits toward its client. In production
// this is the gateway's per-connection writer; tests substitute a capture
// sink.
type EventSink interface {
	Emit(event protocol.ServerEvent)
}

// Session is one client's live upstream conversation. Implementations are
// safe for concurrent use; all upstream failures are absorbed and surfaced
// through the EventSink, never returned across the gateway boundary except
// from Connect.
type Session interface {
	// Connect establishes the upstream stream and performs the setup
	// handshake. It returns an error only for unrecoverable setup failures
	// (missing credential, failed dial); transient closes after a successful
	// connect are retried internally with backoff.
	Connect(ctx context.Context) error

	// SendAudio forwards one base64-encoded audio chunk as a complete user
	// turn. A no-op (plus an emitted session_error) when not connected.
	SendAudio(audioData, mimeType string)

	// SendText forwards one text message as a complete user turn. A no-op
	// (plus an emitted session_error) when not connected.
	SendText(text string)

	// Disconnect tears the session down. Idempotent; cancels any pending
	// reconnect and closes the upstream stream with a normal close code.
	Disconnect()
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(event protocol.ServerEvent)

// Emit implements EventSink.
func (f SinkFunc) Emit(event protocol.ServerEvent) { f(event) }
