// Package gemini implements the stream.Transport contract against the
// Gemini Live API using the official SDK.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/stream"
)

const modelName = "models/gemini-2.5-flash-native-audio-preview-12-2025"

// OutputSampleRate is the rate of synthesized audio deltas from the model.
const OutputSampleRate = 24000

const (
	audioMIMEType = "audio/pcm;rate=16000"
	imageMIMEType = "image/jpeg"
)

// ToolHandler resolves model function calls into responses.
type ToolHandler func(calls []*genai.FunctionCall) []*genai.FunctionResponse

// Live is one bidirectional session against the Gemini Live API.
type Live struct {
	client  *genai.Client
	session *genai.Session

	onEvent     func(stream.Event)
	toolHandler ToolHandler

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewLive creates the API client. No session is open until Connect.
func NewLive(ctx context.Context, apiKey string) (*Live, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Live{client: client}, nil
}

// OnEvent registers the inbound event handler. Must be set before Connect.
func (l *Live) OnEvent(fn func(stream.Event)) {
	l.mu.Lock()
	l.onEvent = fn
	l.mu.Unlock()
}

// SetToolHandler registers the function-call resolver.
func (l *Live) SetToolHandler(fn ToolHandler) {
	l.mu.Lock()
	l.toolHandler = fn
	l.mu.Unlock()
}

// Connect establishes the Live session and starts the receive loop.
// Blocks until the remote handshake completes.
func (l *Live) Connect(ctx context.Context, systemPrompt, voiceName string, tools []*genai.Tool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("live transport is closed")
	}
	if l.session != nil {
		return fmt.Errorf("live session already connected")
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{"AUDIO"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Tools: tools,
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voiceName,
				},
			},
		},
		// Transcribe both directions so the session layer can aggregate
		// user and coach turns.
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	session, err := l.client.Live.Connect(ctx, modelName, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	l.session = session
	log.Info().Str("model", modelName).Str("voice", voiceName).Msg("connected to Gemini Live")

	go l.receiveLoop()
	return nil
}

// receiveLoop pulls server messages until error or close. Any transport
// error is terminal: a single Closed event is emitted, never a retry.
func (l *Live) receiveLoop() {
	for {
		l.mu.RLock()
		session := l.session
		closed := l.closed
		l.mu.RUnlock()

		if closed || session == nil {
			l.emitClosed(nil)
			return
		}

		resp, err := session.Receive()
		if err != nil {
			l.mu.RLock()
			closed := l.closed
			l.mu.RUnlock()

			if closed {
				l.emitClosed(nil)
			} else {
				log.Error().Err(err).Msg("Gemini receive error")
				l.emitClosed(err)
			}
			return
		}

		l.handleResponse(resp)
	}
}

func (l *Live) handleResponse(resp *genai.LiveServerMessage) {
	if resp.ToolCall != nil && len(resp.ToolCall.FunctionCalls) > 0 {
		l.handleToolCall(resp.ToolCall.FunctionCalls)
	}

	sc := resp.ServerContent
	if sc == nil {
		return
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		l.emit(stream.TranscriptDelta(stream.SpeakerUser, sc.InputTranscription.Text))
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		l.emit(stream.TranscriptDelta(stream.SpeakerCoach, sc.OutputTranscription.Text))
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				l.emit(stream.AudioDelta(part.InlineData.Data, OutputSampleRate))
			}
		}
	}

	if sc.Interrupted {
		l.emit(stream.Interrupted())
	}
	if sc.TurnComplete {
		l.emit(stream.TurnComplete())
	}
}

func (l *Live) handleToolCall(calls []*genai.FunctionCall) {
	l.mu.RLock()
	handler := l.toolHandler
	l.mu.RUnlock()

	if handler == nil {
		return
	}
	responses := handler(calls)
	if len(responses) == 0 {
		return
	}
	if err := l.sendToolResponse(responses); err != nil {
		log.Error().Err(err).Msg("failed to send tool response")
	}
}

// Send forwards one capture frame in emission order. No outbound
// buffering: a slow transport queues in the SDK's own connection.
func (l *Live) Send(frame capture.Frame) error {
	l.mu.RLock()
	session := l.session
	closed := l.closed
	l.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("live transport is closed or not connected")
	}

	switch frame.Kind {
	case capture.KindAudio:
		err := session.SendRealtimeInput(genai.LiveRealtimeInput{
			Media: &genai.Blob{MIMEType: audioMIMEType, Data: frame.PCM},
		})
		if err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
	case capture.KindImage:
		err := session.SendRealtimeInput(genai.LiveRealtimeInput{
			Video: &genai.Blob{MIMEType: imageMIMEType, Data: frame.JPEG},
		})
		if err != nil {
			return fmt.Errorf("failed to send image: %w", err)
		}
	default:
		return fmt.Errorf("unknown frame kind %v", frame.Kind)
	}
	return nil
}

// SendText injects a user text turn, useful for smoke testing without a
// microphone.
func (l *Live) SendText(text string) error {
	l.mu.RLock()
	session := l.session
	closed := l.closed
	l.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("live transport is closed or not connected")
	}

	turnComplete := true
	err := session.SendClientContent(genai.LiveSendClientContentParameters{
		Turns: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: text}}},
		},
		TurnComplete: &turnComplete,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

func (l *Live) sendToolResponse(responses []*genai.FunctionResponse) error {
	l.mu.RLock()
	session := l.session
	closed := l.closed
	l.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("live transport is closed or not connected")
	}

	err := session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	if err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}
	return nil
}

// Close terminates the session. Idempotent.
func (l *Live) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	session := l.session
	l.mu.Unlock()

	if session != nil {
		return session.Close()
	}
	return nil
}

func (l *Live) emit(ev stream.Event) {
	l.mu.RLock()
	fn := l.onEvent
	l.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (l *Live) emitClosed(reason error) {
	l.closeOnce.Do(func() {
		l.emit(stream.Closed(reason))
	})
}
