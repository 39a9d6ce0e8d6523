package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16RoundTrip(t *testing.T) {
	// Encoding normalized samples and decoding them back must reproduce
	// each sample within quantization error.
	samples := []float64{0, 0.5, -0.5, 0.999, -1.0, 0.123456, -0.654321, 1.0 / 32768, -1.0 / 32768}

	encoded := EncodePCM16(samples)
	require.Len(t, encoded, len(samples)*2)

	buf, err := DecodePCM16(encoded, 16000, 1)
	require.NoError(t, err)
	require.Len(t, buf.Channels, 1)
	require.Len(t, buf.Channels[0], len(samples))

	for i, want := range samples {
		if want >= 1.0 {
			// 1.0 clamps to 32767; the decoded value sits just below 1.
			want = 32767.0 / 32768.0
		}
		got := buf.Channels[0][i]
		assert.InDelta(t, want, got, 1.0/32768, "sample %d", i)
	}
}

func TestEncodePCM16Clamps(t *testing.T) {
	encoded := EncodePCM16([]float64{2.0, -2.0})
	buf, err := DecodePCM16(encoded, 16000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 32767.0/32768, buf.Channels[0][0], 1e-9)
	assert.InDelta(t, -1.0, buf.Channels[0][1], 1e-9)
}

func TestDecodePCM16Stereo(t *testing.T) {
	// Interleaved L/R frames de-interleave into per-channel buffers.
	data := []byte{
		0x00, 0x40, // L: 16384 -> 0.5
		0x00, 0xC0, // R: -16384 -> -0.5
		0xFF, 0x7F, // L: 32767
		0x00, 0x80, // R: -32768 -> -1.0
	}
	buf, err := DecodePCM16(data, 48000, 2)
	require.NoError(t, err)
	require.Len(t, buf.Channels, 2)
	assert.Equal(t, 2, buf.FrameCount())

	assert.InDelta(t, 0.5, buf.Channels[0][0], 1e-9)
	assert.InDelta(t, -0.5, buf.Channels[1][0], 1e-9)
	assert.InDelta(t, 32767.0/32768, buf.Channels[0][1], 1e-9)
	assert.InDelta(t, -1.0, buf.Channels[1][1], 1e-9)
}

func TestDecodePCM16TruncatesPartialFrame(t *testing.T) {
	// Three bytes hold one complete mono frame; the dangling byte drops.
	buf, err := DecodePCM16([]byte{0x00, 0x40, 0x12}, 16000, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, buf.FrameCount())
}

func TestDecodePCM16Malformed(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01}, 16000, 1)
	assert.ErrorIs(t, err, ErrMalformedPCM)

	_, err = DecodePCM16(nil, 16000, 1)
	assert.ErrorIs(t, err, ErrMalformedPCM)

	_, err = DecodePCM16([]byte{0x01, 0x02}, 16000, 0)
	assert.ErrorIs(t, err, ErrMalformedPCM)
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{
		Channels:   [][]float64{make([]float64, 24000)},
		SampleRate: 24000,
	}
	assert.Equal(t, time.Second, buf.Duration())

	half := &Buffer{
		Channels:   [][]float64{make([]float64, 12000)},
		SampleRate: 24000,
	}
	assert.Equal(t, 500*time.Millisecond, half.Duration())
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF, 0x80, 0x7F}
	text := EncodeBase64(data)
	back, err := DecodeBase64(text)
	require.NoError(t, err)
	assert.Equal(t, data, back)

	_, err = DecodeBase64("not base64!!")
	assert.Error(t, err)
}

func TestEncodePCM16FromFloat32(t *testing.T) {
	in := []float32{0.25, -0.25, 1.5, -1.5}
	out := EncodePCM16FromFloat32(in)
	require.Len(t, out, 8)

	buf, err := DecodePCM16(out, 16000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, buf.Channels[0][0], 1.0/32768)
	assert.InDelta(t, -0.25, buf.Channels[0][1], 1.0/32768)
	assert.InDelta(t, 32767.0/32768, buf.Channels[0][2], 1e-9)
	assert.InDelta(t, -1.0, buf.Channels[0][3], 1e-9)
}

func TestFloat64ToPCM16Rounding(t *testing.T) {
	// round(sample * 32768), not truncation.
	assert.Equal(t, int16(1), Float64ToPCM16(1.4/32768))
	assert.Equal(t, int16(2), Float64ToPCM16(1.6/32768))
	assert.Equal(t, int16(-1), Float64ToPCM16(-1.4/32768))
	assert.Equal(t, int16(math.MaxInt16), Float64ToPCM16(1.0))
	assert.Equal(t, int16(math.MinInt16), Float64ToPCM16(-1.0))
}
