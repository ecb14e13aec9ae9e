// Package protocol defines the JSON frames exchanged with browser clients
// over the relay WebSocket.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Client frame types.
const (
	TypeStartSession = "start_session"
	TypeSendAudio    = "send_audio"
	TypeSendText     = "send_text"
	TypeEndSession   = "end_session"
)

// Server event types.
const (
	EventSetupComplete      = "setup_complete"
	EventSessionStarted     = "session_started"
	EventAudioResponse      = "audio_response"
	EventTextResponse       = "text_response"
	EventInterrupted        = "interrupted"
	EventTurnComplete       = "turn_complete"
	EventGenerationComplete = "generation_complete"
	EventSessionError       = "session_error"
)

// DecodeError describes a client frame the relay could not accept.
type DecodeError struct {
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Message: message, Param: param}
}

// ClientFrame is a decoded inbound frame from a browser client.
type ClientFrame struct {
	Type      string `json:"type"`
	AudioData string `json:"audioData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Text      string `json:"text,omitempty"`
}

// DecodeClientFrame parses and validates one inbound client frame.
func DecodeClientFrame(data []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return ClientFrame{}, badFrame("invalid JSON frame", "")
	}

	switch strings.TrimSpace(frame.Type) {
	case "":
		return ClientFrame{}, badFrame("frame missing type", "type")
	case TypeStartSession, TypeEndSession:
		return frame, nil
	case TypeSendAudio:
		if frame.AudioData == "" {
			return ClientFrame{}, badFrame("send_audio requires audioData", "audioData")
		}
		return frame, nil
	case TypeSendText:
		return frame, nil
	default:
		return ClientFrame{}, badFrame(fmt.Sprintf("unknown frame type %q", frame.Type), "type")
	}
}

// ServerEvent is an outbound event frame sent to a browser client.
type ServerEvent struct {
	Type      string `json:"type"`
	AudioData string `json:"audioData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SetupComplete reports a successful (or cached) upstream handshake.
func SetupComplete() ServerEvent {
	return ServerEvent{Type: EventSetupComplete}
}

// SessionStarted reports a session registered and connected.
func SessionStarted() ServerEvent {
	return ServerEvent{Type: EventSessionStarted}
}

// AudioResponse carries one inline audio part from a model turn.
func AudioResponse(audioData, mimeType string) ServerEvent {
	return ServerEvent{Type: EventAudioResponse, AudioData: audioData, MimeType: mimeType}
}

// TextResponse carries one text part from a model turn.
func TextResponse(text string) ServerEvent {
	return ServerEvent{Type: EventTextResponse, Text: text}
}

// Interrupted signals the model turn was interrupted upstream.
func Interrupted() ServerEvent {
	return ServerEvent{Type: EventInterrupted}
}

// TurnComplete signals the model turn finished.
func TurnComplete() ServerEvent {
	return ServerEvent{Type: EventTurnComplete}
}

// GenerationComplete signals upstream generation finished.
func GenerationComplete() ServerEvent {
	return ServerEvent{Type: EventGenerationComplete}
}

// SessionError reports a session-level failure to the client.
func SessionError(message string) ServerEvent {
	return ServerEvent{Type: EventSessionError, Error: message}
}
