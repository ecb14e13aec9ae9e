package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revlabs/rev-relay/pkg/gateway/config"
	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
	"github.com/revlabs/rev-relay/pkg/gateway/sessions"
	"github.com/revlabs/rev-relay/pkg/metrics"
	"github.com/revlabs/rev-relay/pkg/store"
	"github.com/revlabs/rev-relay/pkg/upstream"
)

// connState is the lifecycle of one client connection's session.
type connState int

const (
	stateIdle connState = iota
	stateStarting
	stateActive
	stateEnded
)

// SessionFactory constructs the upstream session for a client connection.
// The gateway chooses mock or live through this indirection.
type SessionFactory func(clientID string, sink upstream.EventSink) upstream.Session

// ClientHandler serves the /ws endpoint: upgrades the browser connection,
// relays client frames to the upstream session and session events back.
type ClientHandler struct {
	Config     config.Config
	Logger     *slog.Logger
	Registry   *sessions.Registry
	Metrics    *metrics.Metrics
	Recorder   store.Recorder
	NewSession SessionFactory
}

func (h ClientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	clientID := "cli_" + randHex(8)
	log := h.logger().With("client_id", clientID)
	log.Info("client connected", "remote_addr", r.RemoteAddr)

	writer := newConnWriter(conn, log, h.Config.WSWriteTimeout, h.Config.WSPingInterval)
	go writer.run()

	sink := recordingSink{
		sink:     writer,
		recorder: h.recorder(),
		clientID: clientID,
	}

	state := stateIdle
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		frame, err := protocol.DecodeClientFrame(data)
		if err != nil {
			writer.Emit(protocol.SessionError(err.Error()))
			continue
		}
		h.Metrics.RecordClientFrame(frame.Type)

		switch frame.Type {
		case protocol.TypeStartSession:
			state = h.startSession(r.Context(), clientID, sink, writer, log)

		case protocol.TypeSendAudio:
			sess, ok := h.Registry.Get(clientID)
			if !ok || state != stateActive {
				writer.Emit(protocol.SessionError("No active session"))
				continue
			}
			sess.SendAudio(frame.AudioData, frame.MimeType)

		case protocol.TypeSendText:
			sess, ok := h.Registry.Get(clientID)
			if !ok || state != stateActive {
				writer.Emit(protocol.SessionError("No active session"))
				continue
			}
			h.recorder().UserText(r.Context(), clientID, frame.Text)
			sess.SendText(frame.Text)

		case protocol.TypeEndSession:
			if h.endSession(clientID) {
				log.Info("session ended by client")
			}
			state = stateEnded
		}
	}

	// Transport-level disconnect: same teardown as an explicit end.
	if h.endSession(clientID) {
		log.Info("session ended on disconnect")
	}
	writer.stop()
	log.Info("client disconnected")
}

// startSession replaces any prior session for this client, builds a new one
// and connects it. At most one session per client id.
func (h ClientHandler) startSession(ctx context.Context, clientID string, sink upstream.EventSink, writer *connWriter, log *slog.Logger) connState {
	if h.endSession(clientID) {
		log.Info("replacing existing session")
	}

	sess := h.NewSession(clientID, sink)
	if err := sess.Connect(ctx); err != nil {
		// The session has already emitted the error event.
		log.Error("session connect failed", "error", err)
		return stateEnded
	}

	h.Registry.Set(clientID, sess)
	h.Metrics.RecordSessionStart(h.mode())
	h.recorder().SessionStarted(ctx, clientID, h.mode())
	writer.Emit(protocol.SessionStarted())
	log.Info("session started", "mode", h.mode())
	return stateActive
}

// endSession disconnects and unregisters the client's session, if any.
func (h ClientHandler) endSession(clientID string) bool {
	sess, ok := h.Registry.Remove(clientID)
	if !ok {
		return false
	}
	sess.Disconnect()
	h.Metrics.RecordSessionEnd()
	h.recorder().SessionEnded(context.Background(), clientID)
	return true
}

func (h ClientHandler) mode() string {
	if h.Config.Production {
		return "live"
	}
	return "mock"
}

func (h ClientHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h ClientHandler) recorder() store.Recorder {
	if h.Recorder != nil {
		return h.Recorder
	}
	return store.NopRecorder{}
}

// recordingSink tees model text into the transcript store on the way to the
// client.
type recordingSink struct {
	sink     upstream.EventSink
	recorder store.Recorder
	clientID string
}

func (s recordingSink) Emit(event protocol.ServerEvent) {
	if event.Type == protocol.EventTextResponse {
		s.recorder.ModelText(context.Background(), s.clientID, event.Text)
	}
	s.sink.Emit(event)
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))
	}
	return hex.EncodeToString(b)
}
