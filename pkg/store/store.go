// Package store persists conversation transcripts. Recording is best-effort:
// failures are logged and never surface on the relay path.
package store

import "context"

// Recorder receives session lifecycle and turn text. Implementations must
// not block the caller beyond a short bounded write.
type Recorder interface {
	SessionStarted(ctx context.Context, clientID, mode string)
	SessionEnded(ctx context.Context, clientID string)
	UserText(ctx context.Context, clientID, text string)
	ModelText(ctx context.Context, clientID, text string)
	Close()
}

// NopRecorder discards everything. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) SessionStarted(ctx context.Context, clientID, mode string) {}

func (NopRecorder) SessionEnded(ctx context.Context, clientID string) {}

func (NopRecorder) UserText(ctx context.Context, clientID, text string) {}

func (NopRecorder) ModelText(ctx context.Context, clientID, text string) {}

func (NopRecorder) Close() {}
