package handlers

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
)

type fakeWSWriter struct {
	mu       sync.Mutex
	messages [][]byte
	controls []int
	closed   bool
}

func (w *fakeWSWriter) SetWriteDeadline(t time.Time) error { return nil }

func (w *fakeWSWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, append([]byte(nil), data...))
	return nil
}

func (w *fakeWSWriter) WriteControl(messageType int, data []byte, deadline time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.controls = append(w.controls, messageType)
	return nil
}

func (w *fakeWSWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWSWriter) messageCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

func TestConnWriterFlushesEvents(t *testing.T) {
	ws := &fakeWSWriter{}
	writer := newConnWriter(ws, nil, time.Second, time.Minute)
	go writer.run()
	defer writer.stop()

	writer.Emit(protocol.TextResponse("hello"))

	deadline := time.Now().Add(2 * time.Second)
	for ws.messageCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.messages) != 1 {
		t.Fatalf("want 1 message, got %d", len(ws.messages))
	}
	var event protocol.ServerEvent
	if err := json.Unmarshal(ws.messages[0], &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Type != protocol.EventTextResponse || event.Text != "hello" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestConnWriterStop(t *testing.T) {
	ws := &fakeWSWriter{}
	writer := newConnWriter(ws, nil, time.Second, time.Minute)

	done := make(chan struct{})
	go func() {
		writer.run()
		close(done)
	}()

	writer.stop()
	writer.stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not exit after stop")
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.closed {
		t.Fatal("connection not closed")
	}
	foundClose := false
	for _, mt := range ws.controls {
		if mt == websocket.CloseMessage {
			foundClose = true
		}
	}
	if !foundClose {
		t.Fatal("no close frame written")
	}
}

func TestConnWriterEmitAfterStop(t *testing.T) {
	ws := &fakeWSWriter{}
	writer := newConnWriter(ws, nil, time.Second, time.Minute)
	go writer.run()
	writer.stop()

	// Must not panic or block.
	writer.Emit(protocol.TurnComplete())
}

func TestConnWriterPing(t *testing.T) {
	ws := &fakeWSWriter{}
	writer := newConnWriter(ws, nil, time.Second, 10*time.Millisecond)
	go writer.run()
	defer writer.stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ws.mu.Lock()
		pings := 0
		for _, mt := range ws.controls {
			if mt == websocket.PingMessage {
				pings++
			}
		}
		ws.mu.Unlock()
		if pings > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no ping frames written")
}
