// Package audio provides byte-level transcoding between base64 text,
// raw little-endian PCM16 payloads, and normalized float sample buffers.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedPCM is returned when a payload cannot be interpreted as
// complete 16-bit frames.
var ErrMalformedPCM = errors.New("malformed pcm16 payload")

// EncodeBase64 encodes raw bytes to base64 text for JSON transport.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes base64 text back to raw bytes.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}

// Buffer holds decoded PCM audio as normalized per-channel samples
// in [-1.0, 1.0).
type Buffer struct {
	Channels   [][]float64
	SampleRate int
}

// FrameCount returns the number of samples per channel.
func (b *Buffer) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.FrameCount()) / float64(b.SampleRate) * float64(time.Second))
}

// DecodePCM16 interprets data as little-endian signed 16-bit samples
// interleaved by channel and de-interleaves into normalized per-channel
// buffers. Trailing bytes that do not form a complete frame are dropped;
// a payload with no complete frame at all is a decode error.
func DecodePCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrMalformedPCM, channels)
	}
	frameBytes := 2 * channels
	frames := len(data) / frameBytes
	if frames == 0 {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedPCM, len(data), frameBytes)
	}

	buf := &Buffer{
		Channels:   make([][]float64, channels),
		SampleRate: sampleRate,
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float64, frames)
	}

	for i := 0; i < frames; i++ {
		base := i * frameBytes
		for ch := 0; ch < channels; ch++ {
			off := base + ch*2
			sample := int16(uint16(data[off]) | uint16(data[off+1])<<8)
			buf.Channels[ch][i] = float64(sample) / 32768.0
		}
	}
	return buf, nil
}

// EncodePCM16 converts normalized float samples to little-endian signed
// 16-bit PCM via round(sample * 32768) clamped to the int16 range.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := Float64ToPCM16(s)
		out[i*2] = byte(uint16(v))
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// EncodePCM16FromFloat32 is the capture-path variant of EncodePCM16,
// operating on the float32 samples device APIs deliver.
func EncodePCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := Float64ToPCM16(float64(s))
		out[i*2] = byte(uint16(v))
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// Float64ToPCM16 quantizes one normalized sample to a signed 16-bit value.
func Float64ToPCM16(s float64) int16 {
	v := int(math.Round(s * 32768))
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// Int16Samples flattens a mono buffer back to int16 samples, for playback
// sinks that consume integer PCM directly.
func (b *Buffer) Int16Samples() []int16 {
	if len(b.Channels) == 0 {
		return nil
	}
	mono := b.Channels[0]
	out := make([]int16, len(mono))
	for i, s := range mono {
		out[i] = Float64ToPCM16(s)
	}
	return out
}
