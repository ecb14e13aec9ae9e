package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revlabs/rev-relay/pkg/gateway/config"
	"github.com/revlabs/rev-relay/pkg/gateway/protocol"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Config{
		Production:         false,
		GeminiModel:        "gemini-2.5-flash-preview-native-audio-dialog",
		SystemInstructions: "You are Rev.",
		WSWriteTimeout:     5 * time.Second,
		WSPingInterval:     20 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, logger, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealthRoute(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestReadyRoute(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMetricsRoute(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "rev_relay") {
		t.Fatalf("metrics output missing relay series:\n%s", body)
	}
}

func TestCORSOpenByDefault(t *testing.T) {
	_, ts := testServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
}

func TestWebSocketMockSession(t *testing.T) {
	srv, ts := testServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.ClientFrame{Type: protocol.TypeStartSession}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var event protocol.ServerEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != protocol.EventSetupComplete {
		t.Fatalf("first event = %q, want %q", event.Type, protocol.EventSetupComplete)
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != protocol.EventSessionStarted {
		t.Fatalf("second event = %q, want %q", event.Type, protocol.EventSessionStarted)
	}
	if srv.Registry().Count() != 1 {
		t.Fatalf("registry count = %d, want 1", srv.Registry().Count())
	}
}

func TestDrainDisconnectsSessions(t *testing.T) {
	srv, ts := testServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.ClientFrame{Type: protocol.TypeStartSession}); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for srv.Registry().Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.Registry().Count() != 1 {
		t.Fatal("session never registered")
	}

	srv.Drain()
	if srv.Registry().Count() != 0 {
		t.Fatalf("registry count after drain = %d, want 0", srv.Registry().Count())
	}
}
