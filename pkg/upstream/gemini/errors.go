package gemini

import (
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// Close codes the relay recognizes on the upstream stream.
const (
	// closeCodeInternal is sent with a quota-exhaustion reason when the API
	// key has run out of quota.
	closeCodeInternal = 1011

	// closeCodePrecondition signals a malformed or rejected setup payload.
	closeCodePrecondition = 1007

	quotaReasonFragment = "exceeded your current quota"
)

// classifyClose translates a terminal upstream close into a human-readable
// cause for the client.
func classifyClose(code int, reason string) string {
	switch {
	case code == closeCodeInternal && strings.Contains(reason, quotaReasonFragment):
		return "Quota exceeded. Please upgrade your plan."
	case code == closeCodePrecondition:
		return "Precondition check failed. Please verify the model and setup configuration."
	default:
		return fmt.Sprintf("Connection closed (code: %d, reason: %s)", code, reason)
	}
}

// classifyTransport translates a dial or write failure into a user-facing
// message, recognizing rate-limit and auth failures by message content.
func classifyTransport(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"):
		return "Rate limit exceeded. Please try again later."
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"):
		return "Invalid or expired API key. Please check your credentials in Google AI Studio."
	default:
		return "Connection error: " + msg
	}
}

// closeInfo extracts the close code and reason from a read-loop error. Errors
// that are not websocket close errors are treated as abnormal closure.
func closeInfo(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
