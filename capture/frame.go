// Package capture acquires live audio and video from a device (or from a
// remote peer pushing frames) and emits them as tagged capture frames
// ready for the streaming session client.
package capture

import (
	"errors"
	"fmt"
)

// InputSampleRate is the PCM16 rate the inference endpoint expects on input.
const InputSampleRate = 16000

// BlockSize is the fixed audio block size in samples. Blocks are emitted
// immediately with no batching delay, since coaching latency is user-visible.
const BlockSize = 4096

// ErrBufferFull is returned when pushed frames exceed the per-session budget.
var ErrBufferFull = errors.New("capture buffer full")

// ErrSourceClosed is returned when pushing to a closed source.
var ErrSourceClosed = errors.New("capture source closed")

// Kind discriminates the frame union.
type Kind int

const (
	KindAudio Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Frame is one captured payload: raw PCM16 audio or a JPEG still.
type Frame struct {
	Kind       Kind
	PCM        []byte // KindAudio: little-endian signed 16-bit mono
	SampleRate int    // KindAudio only
	JPEG       []byte // KindImage
}

// AudioFrame wraps a PCM16 block.
func AudioFrame(pcm []byte, sampleRate int) Frame {
	return Frame{Kind: KindAudio, PCM: pcm, SampleRate: sampleRate}
}

// ImageFrame wraps an encoded JPEG still.
func ImageFrame(jpeg []byte) Frame {
	return Frame{Kind: KindImage, JPEG: jpeg}
}

func (f Frame) size() int {
	return len(f.PCM) + len(f.JPEG)
}

// PermissionError reports that device access was denied or no device exists.
// Session start aborts on it; no partial session is left open.
type PermissionError struct {
	Reason string
	Err    error
}

func (e *PermissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture permission denied: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture permission denied: %s", e.Reason)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Source is a live stream of capture frames. Frames is closed after Close
// returns and any in-flight frame has been delivered or dropped.
type Source interface {
	Frames() <-chan Frame
	Close() error
}
