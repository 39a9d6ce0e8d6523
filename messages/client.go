package messages

import "encoding/json"

// ClientMessage represents a message from a frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "audio", "video", "control"
	Payload json.RawMessage `json:"payload"`
}

// AudioPayload contains one captured audio block from the client
type AudioPayload struct {
	Data string `json:"data"` // Base64-encoded PCM16 at 16 kHz mono
}

// VideoPayload contains one captured camera still from the client
type VideoPayload struct {
	Data string `json:"data"` // Base64-encoded JPEG
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "stop"
}
