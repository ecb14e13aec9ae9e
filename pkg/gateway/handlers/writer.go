package handlers

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// connWriter owns all writes to one client connection. Events are queued on
// a buffered channel and flushed by a single goroutine, so sessions can emit
// from any goroutine without interleaving frames. The queue drops on
// overflow rather than stalling an upstream read loop.
type connWriter struct {
	ws           wsWriter
	log          *slog.Logger
	writeTimeout time.Duration
	pingInterval time.Duration

	events chan protocol.ServerEvent
	done   chan struct{}
	once   sync.Once
}

func newConnWriter(ws wsWriter, log *slog.Logger, writeTimeout, pingInterval time.Duration) *connWriter {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &connWriter{
		ws:           ws,
		log:          log,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		events:       make(chan protocol.ServerEvent, 256),
		done:         make(chan struct{}),
	}
}

// Emit queues an event for delivery. Never blocks; safe after stop.
func (w *connWriter) Emit(event protocol.ServerEvent) {
	select {
	case <-w.done:
	case w.events <- event:
	default:
		if w.log != nil {
			w.log.Warn("outbound queue full, dropping event", "type", event.Type)
		}
	}
}

// run flushes the queue until stop is called or a write fails.
func (w *connWriter) run() {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			deadline := time.Now().Add(w.writeTimeout)
			_ = w.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = w.ws.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(w.writeTimeout)
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return
			}
		case event := <-w.events:
			data, err := json.Marshal(event)
			if err != nil {
				if w.log != nil {
					w.log.Error("marshal outbound event", "type", event.Type, "error", err)
				}
				continue
			}
			if err := w.ws.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
				return
			}
			if err := w.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// stop ends the writer goroutine and closes the connection. Idempotent.
func (w *connWriter) stop() {
	w.once.Do(func() { close(w.done) })
}
