package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sculptai/posecoach/audio"
	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/stream"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []capture.Frame
	handler  func(stream.Event)
	closes   int
	closeErr error
	sendErr  error
}

func (f *fakeTransport) Send(frame capture.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) OnEvent(fn func(stream.Event)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func (f *fakeTransport) emit(ev stream.Event) {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) sentFrames() []capture.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capture.Frame, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeSource struct {
	mu       sync.Mutex
	frames   chan capture.Frame
	closes   int
	closeErr error
	once     sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan capture.Frame, 8)}
}

func (f *fakeSource) Frames() <-chan capture.Frame { return f.frames }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closes++
	err := f.closeErr
	f.mu.Unlock()
	f.once.Do(func() { close(f.frames) })
	return err
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func newTestSession(t *testing.T, transport *fakeTransport, source *fakeSource, sink Sink, connect ConnectFunc) *Session {
	t.Helper()
	if sink == nil {
		sink = &fakeSink{}
	}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	return New("test-session", transport, source, sink, clock, connect)
}

func TestSessionStartIsIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()

	connects := 0
	sess := newTestSession(t, transport, source, nil, func(ctx context.Context) error {
		connects++
		return nil
	})
	defer sess.Stop()

	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.Start(context.Background()))

	// Exactly one remote session was opened for both calls.
	assert.Equal(t, 1, connects)
	assert.True(t, sess.IsActive())
}

func TestSessionStartAbortsOnConnectError(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()

	sess := newTestSession(t, transport, source, nil, func(ctx context.Context) error {
		return errors.New("handshake refused")
	})

	err := sess.Start(context.Background())
	require.Error(t, err)
	assert.False(t, sess.IsActive())
	assert.False(t, sess.IsClosed())

	// No partial session is left open: nothing was torn down because
	// nothing was acquired past the failed handshake.
	assert.Equal(t, 0, transport.closeCount())
	assert.Equal(t, 0, source.closeCount())
}

func TestSessionForwardsFramesInOrder(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()

	sess := newTestSession(t, transport, source, nil, nil)
	defer sess.Stop()
	require.NoError(t, sess.Start(context.Background()))

	source.frames <- capture.AudioFrame([]byte{1, 0, 2, 0}, capture.InputSampleRate)
	source.frames <- capture.ImageFrame([]byte{0xFF, 0xD8})
	source.frames <- capture.AudioFrame([]byte{3, 0}, capture.InputSampleRate)

	require.Eventually(t, func() bool {
		return len(transport.sentFrames()) == 3
	}, time.Second, 5*time.Millisecond)

	sent := transport.sentFrames()
	assert.Equal(t, capture.KindAudio, sent[0].Kind)
	assert.Equal(t, capture.KindImage, sent[1].Kind)
	assert.Equal(t, capture.KindAudio, sent[2].Kind)
}

func TestSessionSchedulesAudioDeltas(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()
	sink := &fakeSink{}

	sess := newTestSession(t, transport, source, sink, nil)
	defer sess.Stop()
	require.NoError(t, sess.Start(context.Background()))

	pcm := audio.EncodePCM16(make([]float64, 2400)) // 100ms at 24kHz
	transport.emit(stream.AudioDelta(pcm, 24000))
	transport.emit(stream.AudioDelta(pcm, 24000))

	records := sink.records()
	require.Len(t, records, 2)
	assert.Equal(t, 100*time.Millisecond, records[0].buf.Duration())
	assert.False(t, records[1].startAt.Before(records[0].startAt.Add(records[0].buf.Duration())))
}

func TestSessionDropsMalformedAudioDelta(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()
	sink := &fakeSink{}

	sess := newTestSession(t, transport, source, sink, nil)
	defer sess.Stop()
	require.NoError(t, sess.Start(context.Background()))

	transport.emit(stream.AudioDelta([]byte{0x01}, 24000))

	// The malformed fragment is dropped; the session stays up.
	assert.Empty(t, sink.records())
	assert.True(t, sess.IsActive())

	pcm := audio.EncodePCM16(make([]float64, 240))
	transport.emit(stream.AudioDelta(pcm, 24000))
	assert.Len(t, sink.records(), 1)
}

func TestSessionInterruptStopsPlayback(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()
	sink := &fakeSink{}

	var statuses []string
	sess := newTestSession(t, transport, source, sink, nil)
	sess.SetHooks(Hooks{
		OnStatus: func(status, _ string) { statuses = append(statuses, status) },
	})
	defer sess.Stop()
	require.NoError(t, sess.Start(context.Background()))

	pcm := audio.EncodePCM16(make([]float64, 2400))
	transport.emit(stream.AudioDelta(pcm, 24000))
	transport.emit(stream.Interrupted())

	for _, h := range sink.allHandles() {
		assert.True(t, h.Stopped())
	}
	assert.Equal(t, 0, sess.Scheduler().ActiveCount())
	assert.Contains(t, statuses, "interrupted")
}

func TestSessionTurnCompleteFlushesTranscript(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()

	var got []Turn
	sess := newTestSession(t, transport, source, nil, nil)
	sess.SetHooks(Hooks{
		OnTurns: func(turns []Turn) { got = append(got, turns...) },
	})
	defer sess.Stop()
	require.NoError(t, sess.Start(context.Background()))

	transport.emit(stream.TranscriptDelta(stream.SpeakerUser, "how's my"))
	transport.emit(stream.TranscriptDelta(stream.SpeakerUser, " front double?"))
	transport.emit(stream.TranscriptDelta(stream.SpeakerCoach, "elbows higher"))
	transport.emit(stream.TurnComplete())

	require.Len(t, got, 2)
	assert.Equal(t, Turn{Speaker: stream.SpeakerUser, Text: "how's my front double?"}, got[0])
	assert.Equal(t, Turn{Speaker: stream.SpeakerCoach, Text: "elbows higher"}, got[1])
}

func TestSessionCleanTeardown(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()
	sink := &fakeSink{}

	sess := newTestSession(t, transport, source, sink, nil)
	require.NoError(t, sess.Start(context.Background()))

	pcm := audio.EncodePCM16(make([]float64, 2400))
	transport.emit(stream.AudioDelta(pcm, 24000))

	require.NoError(t, sess.Stop())

	assert.Equal(t, 1, source.closeCount())
	assert.Equal(t, 1, transport.closeCount())
	assert.Equal(t, 0, sess.Scheduler().ActiveCount())
	for _, h := range sink.allHandles() {
		assert.True(t, h.Stopped())
	}

	// Stop is idempotent.
	require.NoError(t, sess.Stop())
	assert.Equal(t, 1, source.closeCount())
}

func TestSessionTeardownSurvivesFailingStep(t *testing.T) {
	transport := &fakeTransport{closeErr: errors.New("flaky close")}
	source := newFakeSource()
	sink := &fakeSink{}

	sess := newTestSession(t, transport, source, sink, nil)
	require.NoError(t, sess.Start(context.Background()))

	pcm := audio.EncodePCM16(make([]float64, 2400))
	transport.emit(stream.AudioDelta(pcm, 24000))

	err := sess.Stop()
	require.Error(t, err)

	// The failing transport close did not block the other steps.
	assert.Equal(t, 1, source.closeCount())
	assert.Equal(t, 0, sess.Scheduler().ActiveCount())
	for _, h := range sink.allHandles() {
		assert.True(t, h.Stopped())
	}
}

func TestSessionClosedEventIsTerminal(t *testing.T) {
	transport := &fakeTransport{}
	source := newFakeSource()

	var statuses []string
	var errCodes []string
	sess := newTestSession(t, transport, source, nil, nil)
	sess.SetHooks(Hooks{
		OnStatus: func(status, _ string) { statuses = append(statuses, status) },
		OnError:  func(code, _ string) { errCodes = append(errCodes, code) },
	})
	require.NoError(t, sess.Start(context.Background()))

	transport.emit(stream.Closed(errors.New("connection reset")))

	assert.True(t, sess.IsClosed())
	assert.Contains(t, statuses, "closed")
	assert.Contains(t, errCodes, "TRANSPORT_ERROR")

	select {
	case <-sess.CloseChan:
	default:
		t.Fatal("CloseChan not closed after terminal event")
	}
}
