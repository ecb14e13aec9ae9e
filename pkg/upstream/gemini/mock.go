package gemini

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/revlabs/rev-relay/pkg/core/audio"
	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
	"github.com/revlabs/rev-relay/pkg/metrics"
	"github.com/revlabs/rev-relay/pkg/upstream"
)

const (
	// InterruptSentinel asks the mock to synthesize a barge-in instead of a
	// reply. An empty text message does the same.
	InterruptSentinel = "[INTERRUPT]"

	mockGreeting = "Hey there! I'm Rev from Revolt Motors. Try asking about our electric motorcycles like the RV400!"
)

// MockSession mimics a live upstream session without opening a connection.
// Canned replies are synthesized as upstream server frames and fed through
// the same dispatch path a live session uses, so the client sees identical
// event sequences. Used when production mode is off.
type MockSession struct {
	clientID string
	sink     upstream.EventSink
	log      *slog.Logger
	metrics  *metrics.Metrics

	connected atomic.Bool
}

// NewMockSession builds a mock session for one client connection.
func NewMockSession(clientID string, logger *slog.Logger, m *metrics.Metrics, sink upstream.EventSink) *MockSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSession{
		clientID: clientID,
		sink:     sink,
		log:      logger.With("client_id", clientID),
		metrics:  m,
	}
}

// Connect always succeeds and acknowledges setup immediately.
func (s *MockSession) Connect(ctx context.Context) error {
	s.connected.Store(true)
	s.log.Info("mock session connected")
	s.sink.Emit(protocol.SetupComplete())
	return nil
}

// SendAudio replies with a fixed greeting and a synthetic tone.
func (s *MockSession) SendAudio(audioData, mimeType string) {
	s.log.Info("mock audio received", "size", len(audioData))
	s.dispatch(ServerMessage{ServerContent: &ServerContent{
		ModelTurn: &ModelTurn{Parts: []Part{
			{Text: mockGreeting},
			{InlineData: &InlineData{
				MimeType: audio.MimeTypePCM16k,
				Data:     audio.TonePCMBase64(),
			}},
		}},
		TurnComplete: true,
	}})
}

// SendText echoes the input inside a canned reply. The interrupt sentinel
// and the empty string synthesize a barge-in instead.
func (s *MockSession) SendText(text string) {
	s.log.Info("mock text received", "text", text)
	if text == InterruptSentinel || text == "" {
		s.dispatch(ServerMessage{ServerContent: &ServerContent{Interrupted: true}})
		return
	}
	s.dispatch(ServerMessage{ServerContent: &ServerContent{
		ModelTurn: &ModelTurn{Parts: []Part{
			{Text: `You said: "` + text + `". I'm Rev, tell me about your interest in Revolt Motors' electric bikes!`},
		}},
		TurnComplete: true,
	}})
}

// Disconnect marks the session inactive. Idempotent.
func (s *MockSession) Disconnect() {
	if s.connected.Swap(false) {
		s.log.Info("mock session disconnected")
	}
}

func (s *MockSession) dispatch(msg ServerMessage) {
	dispatchServerMessage(msg, s.sink, s.metrics)
}
