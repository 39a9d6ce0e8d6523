package messages

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeTransportError   = "TRANSPORT_ERROR"
	ErrCodeSessionFailed    = "SESSION_FAILED"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeBufferFull       = "BUFFER_FULL"
)

// Message types
const (
	TypeAudio      = "audio"
	TypeTranscript = "transcript"
	TypeTurn       = "turn"
	TypeStatus     = "status"
	TypeError      = "error"
)

// ServerMessage represents a message sent to a frontend client
type ServerMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// AudioResponsePayload carries one synthesized coach audio fragment
type AudioResponsePayload struct {
	Data      string `json:"data"`     // Base64-encoded PCM16
	MimeType  string `json:"mimeType"` // "audio/pcm;rate=24000"
	StartAtMs int64  `json:"startAtMs"` // Scheduled start, unix milliseconds
}

// TranscriptDeltaPayload carries a partial transcript fragment
type TranscriptDeltaPayload struct {
	Speaker string `json:"speaker"` // "user" or "coach"
	Text    string `json:"text"`
}

// TurnPayload carries one finalized transcript turn
type TurnPayload struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "turn_complete", "interrupted", "closed"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAudioMessage creates a coach audio message
func NewAudioMessage(sessionID, data string, startAtMs int64) *ServerMessage {
	return &ServerMessage{
		Type:      TypeAudio,
		SessionID: sessionID,
		Payload: AudioResponsePayload{
			Data:      data,
			MimeType:  "audio/pcm;rate=24000",
			StartAtMs: startAtMs,
		},
	}
}

// NewTranscriptMessage creates a partial transcript message
func NewTranscriptMessage(sessionID, speaker, text string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeTranscript,
		SessionID: sessionID,
		Payload: TranscriptDeltaPayload{
			Speaker: speaker,
			Text:    text,
		},
	}
}

// NewTurnMessage creates a finalized turn message
func NewTurnMessage(sessionID, speaker, text string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeTurn,
		SessionID: sessionID,
		Payload: TurnPayload{
			Speaker: speaker,
			Text:    text,
		},
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
