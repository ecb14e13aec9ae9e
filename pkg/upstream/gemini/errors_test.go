package gemini

import (
	"errors"
	"testing"

	"github.com/gorilla/websocket"
)

func TestClassifyClose(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		reason string
		want   string
	}{
		{
			name:   "quota exhausted",
			code:   1011,
			reason: "You have exceeded your current quota, please check your plan and billing details",
			want:   "Quota exceeded. Please upgrade your plan.",
		},
		{
			name:   "internal error without quota reason",
			code:   1011,
			reason: "internal error",
			want:   "Connection closed (code: 1011, reason: internal error)",
		},
		{
			name: "bad setup payload",
			code: 1007,
			want: "Precondition check failed. Please verify the model and setup configuration.",
		},
		{
			name:   "normal close",
			code:   1000,
			reason: "bye",
			want:   "Connection closed (code: 1000, reason: bye)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyClose(tt.code, tt.reason); got != tt.want {
				t.Fatalf("classifyClose(%d, %q) = %q, want %q", tt.code, tt.reason, got, tt.want)
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", errors.New("websocket dial failed (status 429): bad handshake"), "Rate limit exceeded. Please try again later."},
		{"unauthorized", errors.New("websocket dial failed (status 401): bad handshake"), "Invalid or expired API key. Please check your credentials in Google AI Studio."},
		{"forbidden", errors.New("websocket dial failed (status 403): bad handshake"), "Invalid or expired API key. Please check your credentials in Google AI Studio."},
		{"generic", errors.New("dial tcp: connection refused"), "Connection error: dial tcp: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransport(tt.err); got != tt.want {
				t.Fatalf("classifyTransport(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestCloseInfo(t *testing.T) {
	code, reason := closeInfo(&websocket.CloseError{Code: 1011, Text: "quota"})
	if code != 1011 || reason != "quota" {
		t.Fatalf("got code=%d reason=%q", code, reason)
	}

	code, reason = closeInfo(errors.New("read tcp: connection reset"))
	if code != websocket.CloseAbnormalClosure {
		t.Fatalf("want abnormal closure, got %d", code)
	}
	if reason != "read tcp: connection reset" {
		t.Fatalf("unexpected reason %q", reason)
	}
}
