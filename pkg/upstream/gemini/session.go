// Package gemini implements the upstream side of the relay: a per-client
// session speaking the BidiGenerateContent WebSocket protocol, with bounded
// reconnects and close-code classification.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revlabs/rev-relay/pkg/core"
	"github.com/revlabs/rev-relay/pkg/core/audio"
	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
	"github.com/revlabs/rev-relay/pkg/metrics"
	"github.com/revlabs/rev-relay/pkg/upstream"
)

const (
	// DefaultEndpoint is the BidiGenerateContent streaming endpoint. The API
	// key is appended as a query parameter at dial time.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

	// DefaultModel is a native-audio dialog model.
	DefaultModel = "gemini-2.5-flash-preview-native-audio-dialog"

	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 30 * time.Second
	DefaultDialTimeout    = 15 * time.Second
)

// State is the lifecycle phase of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRetrying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Conn is the subset of *websocket.Conn a Session uses. Tests substitute
// in-memory implementations.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// DialFunc opens an upstream connection. The default dials with
// gorilla's DefaultDialer.
type DialFunc func(ctx context.Context, urlStr string) (Conn, error)

func defaultDial(ctx context.Context, urlStr string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		if resp != nil {
			// Keep the HTTP status in the message so transport
			// classification can recognize 429/401/403 rejections.
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// Config carries everything a Session needs besides its client identity.
type Config struct {
	APIKey            string
	Model             string
	SystemInstruction string

	// Endpoint overrides the upstream URL, without the key parameter.
	Endpoint string

	MaxRetries     int
	RetryBaseDelay time.Duration
	DialTimeout    time.Duration

	// Dial overrides how the upstream connection is opened.
	Dial DialFunc

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Dial == nil {
		c.Dial = defaultDial
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Session manages one client's upstream stream. All upstream activity is
// reported to the client through the EventSink; methods never block on the
// sink. Safe for concurrent use.
type Session struct {
	clientID string
	cfg      Config
	sink     upstream.EventSink
	cache    *SetupCache
	log      *slog.Logger
	metrics  *metrics.Metrics
	setup    SetupMessage

	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       Conn
	retryCount int
	retryTimer *time.Timer
	closed     bool
}

// NewSession builds a session for one client connection. The setup handshake
// payload is fixed at construction: model identifier plus the system
// instruction, padded with a silent audio part because the native-audio
// models reject turns without one.
func NewSession(clientID string, cfg Config, cache *SetupCache, sink upstream.EventSink) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		clientID: clientID,
		cfg:      cfg,
		sink:     sink,
		cache:    cache,
		log:      cfg.Logger.With("client_id", clientID),
		metrics:  cfg.Metrics,
		setup: SetupMessage{Setup: SetupConfig{
			Model: "models/" + cfg.Model,
			SystemInstruction: SystemInstruction{Parts: []Part{
				{Text: cfg.SystemInstruction},
				{InlineData: &InlineData{
					MimeType: audio.MimeTypePCM16k,
					Data:     audio.SilentPCMBase64(),
				}},
			}},
		}},
	}
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect establishes the upstream stream and sends the setup handshake.
// If a handshake is already cached for this client the session is treated
// as set up and no connection is opened. Transient closes after a
// successful connect are retried in the background; Connect itself fails
// only on a missing credential or a dial/handshake transport failure.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.APIKey == "" {
		s.log.Error("missing api key, refusing to connect")
		s.emit(protocol.SessionError("Missing Gemini API key"))
		s.metrics.RecordSessionError()
		return core.NewMissingCredentialError("Missing Gemini API key")
	}

	if s.cache.Has(s.clientID) {
		s.log.Info("reusing cached setup")
		s.emit(protocol.SetupComplete())
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.NewNoActiveSessionError()
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		msg := classifyTransport(err)
		s.log.Error("upstream dial failed", "error", err)
		s.emit(protocol.SessionError(msg))
		s.metrics.RecordSessionError()
		return core.NewTransportError(msg)
	}

	if err := s.establish(conn); err != nil {
		msg := classifyTransport(err)
		s.emit(protocol.SessionError(msg))
		s.metrics.RecordSessionError()
		return core.NewTransportError(msg)
	}
	return nil
}

func (s *Session) dial(ctx context.Context) (Conn, error) {
	if s.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DialTimeout)
		defer cancel()
	}
	return s.cfg.Dial(ctx, s.cfg.Endpoint+"?key="+url.QueryEscape(s.cfg.APIKey))
}

// establish sends the setup handshake on a freshly dialed connection,
// records it in the cache and starts the read loop.
func (s *Session) establish(conn Conn) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return core.NewNoActiveSessionError()
	}
	s.conn = conn
	s.mu.Unlock()

	s.writeMu.Lock()
	err := conn.WriteJSON(s.setup)
	s.writeMu.Unlock()
	if err != nil {
		_ = conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.state = StateDisconnected
		s.mu.Unlock()
		return fmt.Errorf("send setup: %w", err)
	}

	s.cache.Set(s.clientID, s.setup)
	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()
	s.log.Info("upstream connected", "model", s.cfg.Model)

	go s.readLoop(conn)
	return nil
}

func (s *Session) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := closeInfo(err)
			s.handleClose(conn, code, reason)
			return
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Error("parse upstream message", "error", err)
			s.emit(protocol.SessionError("Failed to parse Gemini response"))
			s.metrics.RecordSessionError()
			continue
		}
		s.handleServerMessage(msg)
	}
}

// handleServerMessage dispatches one inbound frame by shape. A successful
// setup acknowledgment closes out the current failure streak.
func (s *Session) handleServerMessage(msg ServerMessage) {
	if msg.SetupComplete != nil {
		s.mu.Lock()
		s.retryCount = 0
		s.mu.Unlock()
	}
	dispatchServerMessage(msg, s.sink, s.metrics)
}

// dispatchServerMessage translates one upstream frame into client events.
// Shared between the live session's read loop and the mock session.
func dispatchServerMessage(msg ServerMessage, sink upstream.EventSink, m *metrics.Metrics) {
	if msg.SetupComplete != nil {
		sink.Emit(protocol.SetupComplete())
		return
	}
	content := msg.ServerContent
	if content == nil {
		return
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && strings.Contains(part.InlineData.MimeType, "audio") {
				sink.Emit(protocol.AudioResponse(part.InlineData.Data, audio.MimeTypePCM16k))
				m.RecordAudioBytes("downstream", len(part.InlineData.Data))
			}
			if part.Text != "" {
				sink.Emit(protocol.TextResponse(part.Text))
			}
		}
	}
	if content.Interrupted {
		sink.Emit(protocol.Interrupted())
	}
	if content.TurnComplete {
		sink.Emit(protocol.TurnComplete())
	}
	if content.GenerationComplete {
		sink.Emit(protocol.GenerationComplete())
	}
}

// handleClose runs once per connection teardown. Calls for a connection the
// session no longer owns are ignored, so a deliberate Disconnect or a
// replacement connection cannot race a stale read loop.
func (s *Session) handleClose(conn Conn, code int, reason string) {
	s.mu.Lock()
	if s.closed || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.cache.Delete(s.clientID)

	s.mu.Lock()
	if code != websocket.CloseNormalClosure && s.retryCount < s.cfg.MaxRetries {
		s.retryCount++
		attempt := s.retryCount
		delay := s.cfg.RetryBaseDelay << uint(attempt)
		s.state = StateRetrying
		s.retryTimer = time.AfterFunc(delay, s.reconnect)
		s.mu.Unlock()

		s.log.Warn("upstream closed, reconnect scheduled",
			"code", code, "reason", reason, "attempt", attempt, "delay", delay)
		s.metrics.RecordUpstreamClose("transient")
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	msg := classifyClose(code, reason)
	s.log.Error("upstream closed", "code", code, "reason", reason)
	s.metrics.RecordUpstreamClose("terminal")
	s.metrics.RecordSessionError()
	s.emit(protocol.SessionError(msg))
}

// reconnect is the retry timer callback. A dial or handshake failure here
// counts as another abnormal close so the attempt bound still holds.
func (s *Session) reconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.retryTimer = nil
	s.state = StateConnecting
	s.mu.Unlock()

	s.metrics.RecordReconnect()
	s.log.Info("reconnecting upstream")

	conn, err := s.dial(context.Background())
	if err != nil {
		s.emit(protocol.SessionError(classifyTransport(err)))
		s.metrics.RecordSessionError()
		s.handleClose(nil, websocket.CloseAbnormalClosure, err.Error())
		return
	}
	if err := s.establish(conn); err != nil {
		s.handleClose(nil, websocket.CloseAbnormalClosure, err.Error())
	}
}

// SendAudio forwards one base64-encoded audio chunk as a complete user turn.
// The mime type is forced to 16kHz PCM; the endpoint accepts nothing else.
func (s *Session) SendAudio(audioData, mimeType string) {
	conn, ok := s.activeConn()
	if !ok {
		s.log.Error("cannot send audio: not connected")
		s.emit(protocol.SessionError("No active WebSocket connection"))
		s.metrics.RecordSessionError()
		return
	}

	if !strings.Contains(mimeType, audio.MimeTypePCM16k) {
		s.log.Warn("unsupported audio mime type, forcing pcm", "mime_type", mimeType)
		mimeType = audio.MimeTypePCM16k
	}

	msg := ClientContentMessage{ClientContent: ClientContent{
		Turns: []Turn{{
			Role: "user",
			Parts: []Part{{
				InlineData: &InlineData{MimeType: mimeType, Data: audioData},
			}},
		}},
		TurnComplete: true,
	}}

	if err := s.writeJSON(conn, msg); err != nil {
		s.log.Error("send audio", "error", err)
		s.emit(protocol.SessionError("Failed to send audio"))
		s.metrics.RecordSessionError()
		return
	}
	s.metrics.RecordAudioBytes("upstream", len(audioData))
}

// SendText forwards one text message as a complete user turn. A silent audio
// part rides along for the same reason it does in the setup handshake.
func (s *Session) SendText(text string) {
	conn, ok := s.activeConn()
	if !ok {
		s.log.Error("cannot send text: not connected")
		s.emit(protocol.SessionError("No active WebSocket connection"))
		s.metrics.RecordSessionError()
		return
	}

	msg := ClientContentMessage{ClientContent: ClientContent{
		Turns: []Turn{{
			Role: "user",
			Parts: []Part{
				{Text: text},
				{InlineData: &InlineData{
					MimeType: audio.MimeTypePCM16k,
					Data:     audio.SilentPCMBase64(),
				}},
			},
		}},
		TurnComplete: true,
	}}

	if err := s.writeJSON(conn, msg); err != nil {
		s.log.Error("send text", "error", err)
		s.emit(protocol.SessionError("Failed to send text"))
		s.metrics.RecordSessionError()
	}
}

// Disconnect tears the session down. Idempotent: the first call cancels any
// pending reconnect, closes the upstream connection with a normal close and
// drops the cached handshake; later calls are no-ops.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.cache.Delete(s.clientID)

	if conn != nil {
		deadline := time.Now().Add(2 * time.Second)
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"), deadline)
		s.writeMu.Unlock()
		_ = conn.Close()
	}
	s.log.Info("upstream session disconnected")
}

func (s *Session) activeConn() (Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

func (s *Session) writeJSON(conn Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (s *Session) emit(event protocol.ServerEvent) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(event)
}
