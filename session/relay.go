package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sculptai/posecoach/audio"
	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/logging"
	"github.com/sculptai/posecoach/messages"
	"github.com/sculptai/posecoach/stream"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// Relay bridges one browser WebSocket connection to a coaching session:
// client frames feed the session's push source, coach audio and
// transcripts flow back as JSON messages.
type Relay struct {
	ID   string
	conn *websocket.Conn
	sess *Session
	push *capture.PushSource

	onTurns func(turns []Turn)

	// Channel-based writes keep the event goroutine non-blocking.
	writeChan chan *messages.ServerMessage

	log    zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRelay wires a connection, a transport and a push source into a
// session. onTurns receives finalized turns for persistence.
func NewRelay(id string, conn *websocket.Conn, transport stream.Transport, push *capture.PushSource, connect ConnectFunc, onTurns func([]Turn)) *Relay {
	conn.SetReadLimit(512 * 1024) // 512KB max message
	conn.EnableWriteCompression(true)

	r := &Relay{
		ID:        id,
		conn:      conn,
		push:      push,
		onTurns:   onTurns,
		writeChan: make(chan *messages.ServerMessage, writeBufferSize),
		log:       logging.WithSession(id),
	}
	r.sess = New(id, transport, push, r, nil, connect)
	r.sess.SetHooks(Hooks{
		OnTranscriptDelta: func(speaker stream.Speaker, text string) {
			r.queueMessage(messages.NewTranscriptMessage(id, string(speaker), text))
		},
		OnTurns: func(turns []Turn) {
			for _, turn := range turns {
				r.queueMessage(messages.NewTurnMessage(id, string(turn.Speaker), turn.Text))
			}
			if r.onTurns != nil {
				r.onTurns(turns)
			}
		},
		OnStatus: func(status, message string) {
			r.queueMessage(messages.NewStatusMessage(id, status, message))
			if status == "closed" {
				r.Close()
			}
		},
		OnError: func(code, message string) {
			r.queueMessage(messages.NewErrorMessage(id, code, message))
		},
	})
	return r
}

// Session exposes the underlying coaching session.
func (r *Relay) Session() *Session { return r.sess }

// Done is closed once the session has fully torn down.
func (r *Relay) Done() <-chan struct{} { return r.sess.CloseChan }

// Start opens the remote session and begins the read/write pumps.
func (r *Relay) Start(ctx context.Context) error {
	go r.writePump()

	if err := r.sess.Start(ctx); err != nil {
		r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeSessionFailed, err.Error()))
		r.Close()
		return err
	}

	go r.readLoop()
	return nil
}

// Play implements Sink by forwarding the fragment to the client with its
// scheduled start time. Actual rendering happens client-side; stopping on
// interruption is signaled via the "interrupted" status message.
func (r *Relay) Play(buf *audio.Buffer, startAt time.Time) (PlaybackHandle, error) {
	if len(buf.Channels) == 0 {
		return nil, fmt.Errorf("empty audio buffer")
	}
	pcm := audio.EncodePCM16(buf.Channels[0])
	r.queueMessage(messages.NewAudioMessage(r.ID, audio.EncodeBase64(pcm), startAt.UnixMilli()))
	return nil, nil
}

// writePump handles all outgoing messages in a single goroutine
func (r *Relay) writePump() {
	defer func() {
		r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		r.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for msg := range r.writeChan {
		if !r.writeMessage(msg) {
			return
		}

		// Drain whatever queued behind it before the next select.
		n := len(r.writeChan)
		for i := 0; i < n; i++ {
			msg, ok := <-r.writeChan
			if !ok {
				return
			}
			if !r.writeMessage(msg) {
				return
			}
		}
	}
}

func (r *Relay) writeMessage(msg *messages.ServerMessage) bool {
	data, err := sonic.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal server message")
		return true
	}
	r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return r.conn.WriteMessage(websocket.TextMessage, data) == nil
}

// queueMessage adds a message to the write queue (non-blocking)
func (r *Relay) queueMessage(msg *messages.ServerMessage) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.writeChan <- msg:
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

// readLoop processes inbound client messages until the connection drops
// or the client asks to stop.
func (r *Relay) readLoop() {
	defer r.Close()

	for {
		select {
		case <-r.sess.CloseChan:
			return
		default:
			messageType, message, err := r.conn.ReadMessage()
			if err != nil {
				if !r.sess.IsClosed() {
					r.log.Debug().Err(err).Msg("client read ended")
				}
				return
			}

			// Binary messages are raw PCM16 audio blocks.
			if messageType == websocket.BinaryMessage {
				r.pushFrame(capture.AudioFrame(message, capture.InputSampleRate))
				continue
			}

			var clientMsg messages.ClientMessage
			if err := sonic.Unmarshal(message, &clientMsg); err != nil {
				r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
				continue
			}
			if !r.processClientMessage(&clientMsg) {
				return
			}
		}
	}
}

// processClientMessage returns false when the relay should shut down.
func (r *Relay) processClientMessage(msg *messages.ClientMessage) bool {
	switch msg.Type {
	case "audio":
		var payload messages.AudioPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid audio payload"))
			return true
		}
		pcm, err := audio.DecodeBase64(payload.Data)
		if err != nil {
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid base64 audio data"))
			return true
		}
		r.pushFrame(capture.AudioFrame(pcm, capture.InputSampleRate))

	case "video":
		var payload messages.VideoPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid video payload"))
			return true
		}
		jpeg, err := audio.DecodeBase64(payload.Data)
		if err != nil {
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid base64 video data"))
			return true
		}
		r.pushFrame(capture.ImageFrame(jpeg))

	case "control":
		var payload messages.ControlPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return true
		}
		switch payload.Action {
		case "ping":
			r.queueMessage(messages.NewStatusMessage(r.ID, "pong", ""))
		case "stop":
			return false
		default:
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
		}

	default:
		r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
	return true
}

func (r *Relay) pushFrame(frame capture.Frame) {
	if err := r.push.Push(frame); err != nil {
		switch err {
		case capture.ErrBufferFull:
			r.queueMessage(messages.NewErrorMessage(r.ID, messages.ErrCodeBufferFull,
				fmt.Sprintf("Capture buffer full (max %d bytes)", r.push.MaxBytes())))
		case capture.ErrSourceClosed:
			// Session is tearing down; nothing useful to report.
		default:
			r.log.Warn().Err(err).Msg("frame push failed")
		}
	}
}

// Close terminates the relay and the underlying session. Idempotent.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	_ = r.sess.Stop()
	close(r.writeChan)
	_ = r.conn.Close()
}
