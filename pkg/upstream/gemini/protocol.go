package gemini

// Wire types for the BidiGenerateContent WebSocket protocol. Field names
// follow the upstream JSON schema exactly; only the shapes the relay
// constructs or parses are modeled.

// InlineData carries base64-encoded media inside a part.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one element of a turn: text or inline media.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// SystemInstruction configures the model persona for the session.
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// SetupConfig is the handshake payload sent once per connection.
type SetupConfig struct {
	Model             string            `json:"model"`
	SystemInstruction SystemInstruction `json:"systemInstruction"`
}

// SetupMessage is the first frame on a new upstream connection.
type SetupMessage struct {
	Setup SetupConfig `json:"setup"`
}

// Turn is one conversational turn.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ClientContent carries user turns upstream.
type ClientContent struct {
	Turns        []Turn `json:"turns"`
	TurnComplete bool   `json:"turnComplete"`
}

// ClientContentMessage is a per-turn frame sent upstream.
type ClientContentMessage struct {
	ClientContent ClientContent `json:"clientContent"`
}

// ModelTurn is the model's side of a turn.
type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// ServerContent is the streaming generation payload from upstream.
type ServerContent struct {
	ModelTurn          *ModelTurn `json:"modelTurn,omitempty"`
	Interrupted        bool       `json:"interrupted,omitempty"`
	TurnComplete       bool       `json:"turnComplete,omitempty"`
	GenerationComplete bool       `json:"generationComplete,omitempty"`
}

// ServerMessage is any inbound frame from upstream, dispatched by shape.
type ServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
}
