package core

import (
	"fmt"
)

// Error represents a relay-level failure that is reported to the client as a
// session_error event rather than propagated across the gateway boundary.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	CloseCode int       `json:"close_code,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CloseCode != 0 {
		return fmt.Sprintf("%s: %s (close code: %d)", e.Type, e.Message, e.CloseCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes relay errors.
type ErrorType string

const (
	ErrMissingCredential      ErrorType = "missing_credential"
	ErrUpstreamCloseTransient ErrorType = "upstream_close_transient"
	ErrUpstreamCloseTerminal  ErrorType = "upstream_close_terminal"
	ErrUpstreamTransport      ErrorType = "upstream_transport_error"
	ErrMessageParse           ErrorType = "message_parse_error"
	ErrNoActiveSession        ErrorType = "no_active_session"
)

// NewMissingCredentialError creates a missing credential error. It is fatal
// to the session attempt and never retried.
func NewMissingCredentialError(message string) *Error {
	return &Error{
		Type:    ErrMissingCredential,
		Message: message,
	}
}

// NewTerminalCloseError creates a non-retryable upstream close error.
func NewTerminalCloseError(message string, closeCode int, reason string) *Error {
	return &Error{
		Type:      ErrUpstreamCloseTerminal,
		Message:   message,
		CloseCode: closeCode,
		Reason:    reason,
	}
}

// NewTransientCloseError creates a retryable upstream close error.
func NewTransientCloseError(closeCode int, reason string) *Error {
	return &Error{
		Type:      ErrUpstreamCloseTransient,
		Message:   fmt.Sprintf("connection closed (code: %d, reason: %s)", closeCode, reason),
		CloseCode: closeCode,
		Reason:    reason,
	}
}

// NewTransportError creates an upstream transport error.
func NewTransportError(message string) *Error {
	return &Error{
		Type:    ErrUpstreamTransport,
		Message: message,
	}
}

// NewParseError creates a message parse error. It is local to one inbound
// message and does not terminate the session.
func NewParseError(message string) *Error {
	return &Error{
		Type:    ErrMessageParse,
		Message: message,
	}
}

// NewNoActiveSessionError creates the error reported when audio or text
// arrives with no active session.
func NewNoActiveSessionError() *Error {
	return &Error{
		Type:    ErrNoActiveSession,
		Message: "No active session",
	}
}

// IsRetryable returns true if the error may be retried with backoff.
func (e *Error) IsRetryable() bool {
	return e.Type == ErrUpstreamCloseTransient
}
