// Package stream defines the event taxonomy of the real-time coaching
// channel and the transport contract that carries it. Wire framing and
// handshake parameters are vendor-defined; only this taxonomy matters to
// the session layer.
package stream

import "github.com/sculptai/posecoach/capture"

// Speaker identifies who produced a transcript fragment.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerCoach Speaker = "coach"
)

// Kind discriminates server-pushed events.
type Kind int

const (
	KindAudioDelta Kind = iota
	KindTranscriptDelta
	KindTurnComplete
	KindInterrupted
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindAudioDelta:
		return "audioDelta"
	case KindTranscriptDelta:
		return "transcriptDelta"
	case KindTurnComplete:
		return "turnComplete"
	case KindInterrupted:
		return "interrupted"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one server-pushed message. Within one session, events are
// delivered and must be processed in arrival order.
type Event struct {
	Kind       Kind
	Speaker    Speaker // KindTranscriptDelta
	Text       string  // KindTranscriptDelta
	PCM        []byte  // KindAudioDelta, little-endian PCM16 mono
	SampleRate int     // KindAudioDelta
	Reason     error   // KindClosed; nil on clean close
}

// AudioDelta wraps a synthesized audio fragment.
func AudioDelta(pcm []byte, sampleRate int) Event {
	return Event{Kind: KindAudioDelta, PCM: pcm, SampleRate: sampleRate}
}

// TranscriptDelta wraps a partial transcript fragment.
func TranscriptDelta(speaker Speaker, text string) Event {
	return Event{Kind: KindTranscriptDelta, Speaker: speaker, Text: text}
}

// TurnComplete marks the end of a speaking turn.
func TurnComplete() Event {
	return Event{Kind: KindTurnComplete}
}

// Interrupted signals the user spoke over the coach; pending playback
// must not continue.
func Interrupted() Event {
	return Event{Kind: KindInterrupted}
}

// Closed is terminal, whether requested, remote, or a transport failure.
func Closed(reason error) Event {
	return Event{Kind: KindClosed, Reason: reason}
}

// Transport is one open bidirectional channel to the inference endpoint.
// Outbound frames are sent in emission order with no extra buffering;
// inbound events arrive on the registered handler in order. Close is
// terminal: there is no automatic reconnect.
type Transport interface {
	Send(frame capture.Frame) error
	OnEvent(fn func(Event))
	Close() error
}
