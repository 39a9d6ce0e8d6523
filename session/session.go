// Package session owns the live coaching session lifecycle: one capture
// source, one transport, one playback scheduler and one transcript per
// session, acquired together on Start and released together on every
// exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sculptai/posecoach/audio"
	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/logging"
	"github.com/sculptai/posecoach/metrics"
	"github.com/sculptai/posecoach/stream"
)

// ConnectFunc opens the remote side of the transport. It suspends until
// the handshake completes or fails.
type ConnectFunc func(ctx context.Context) error

// Hooks are the UI-layer signals a session emits. All hooks are invoked
// from the transport's event goroutine, in arrival order.
type Hooks struct {
	OnTranscriptDelta func(speaker stream.Speaker, text string)
	OnTurns           func(turns []Turn)
	OnStatus          func(status, message string)
	OnError           func(code, message string)
}

// Session is one live coaching session. Start is idempotent; Stop is the
// single cancellation path and is safe to call from any state.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	transport  stream.Transport
	source     capture.Source
	scheduler  *Scheduler
	transcript *Transcript
	connect    ConnectFunc
	hooks      Hooks

	log zerolog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool

	CloseChan chan struct{}
	done      chan struct{}
}

// New creates a session over an already-acquired capture source. connect
// may be nil when the transport is pre-connected (tests, relays).
func New(id string, transport stream.Transport, source capture.Source, sink Sink, clock Clock, connect ConnectFunc) *Session {
	s := &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		transport:    transport,
		source:       source,
		scheduler:    NewScheduler(sink, clock),
		transcript:   NewTranscript(),
		connect:      connect,
		log:          logging.WithSession(id),
		CloseChan:    make(chan struct{}),
		done:         make(chan struct{}),
	}
	transport.OnEvent(s.handleEvent)
	return s
}

// SetHooks registers UI-layer callbacks. Must be called before Start.
func (s *Session) SetHooks(h Hooks) {
	s.hooks = h
}

// Transcript returns the session transcript.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Scheduler returns the playback scheduler.
func (s *Session) Scheduler() *Scheduler {
	return s.scheduler
}

// Start opens the remote session and begins forwarding capture frames.
// A second Start while the session is active is a no-op; Start after Stop
// is an error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session %s is closed", s.ID)
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if s.connect != nil {
		if err := s.connect(ctx); err != nil {
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
			return fmt.Errorf("failed to open coaching session: %w", err)
		}
	}

	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()

	go s.forwardFrames()

	s.emitStatus("connected", "Coaching session established")
	return nil
}

// Stop tears the session down: capture stops first (no more outbound
// frames), then the remote session closes, then all scheduled playback
// stops. Each step is best-effort; one failing step never blocks the
// others. Idempotent.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasStarted := s.started
	s.mu.Unlock()

	close(s.done)

	var errs []error
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("capture close: %w", err))
		}
	}
	if err := s.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("transport close: %w", err))
	}
	s.scheduler.Stop()

	close(s.CloseChan)
	if wasStarted {
		metrics.ActiveSessions.Dec()
	}
	s.log.Info().Msg("session stopped")
	return errors.Join(errs...)
}

// IsClosed reports whether Stop has run.
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// IsActive reports whether the session has started and not yet stopped.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.closed
}

// forwardFrames relays capture frames to the transport in capture order.
func (s *Session) forwardFrames() {
	if s.source == nil {
		return
	}
	for {
		select {
		case <-s.done:
			return
		case frame, ok := <-s.source.Frames():
			if !ok {
				return
			}
			if err := s.transport.Send(frame); err != nil {
				if !s.IsClosed() {
					s.log.Warn().Err(err).Stringer("kind", frame.Kind).Msg("frame send failed")
				}
				continue
			}
			s.touch()
			switch frame.Kind {
			case capture.KindAudio:
				metrics.AudioFramesSent.Inc()
				metrics.AudioBytesSent.Add(float64(len(frame.PCM)))
			case capture.KindImage:
				metrics.ImageFramesSent.Inc()
			}
		}
	}
}

// handleEvent dispatches one inbound stream event. Events arrive in order
// on a single goroutine, so no cross-event races exist here.
func (s *Session) handleEvent(ev stream.Event) {
	if s.IsClosed() && ev.Kind != stream.KindClosed {
		return
	}
	s.touch()

	switch ev.Kind {
	case stream.KindAudioDelta:
		s.handleAudioDelta(ev)

	case stream.KindTranscriptDelta:
		s.transcript.AddDelta(ev.Speaker, ev.Text)
		if s.hooks.OnTranscriptDelta != nil {
			s.hooks.OnTranscriptDelta(ev.Speaker, ev.Text)
		}

	case stream.KindTurnComplete:
		turns := s.transcript.CompleteTurn()
		metrics.TranscriptTurns.Add(float64(len(turns)))
		if len(turns) > 0 && s.hooks.OnTurns != nil {
			s.hooks.OnTurns(turns)
		}
		s.emitStatus("turn_complete", "")

	case stream.KindInterrupted:
		s.scheduler.Interrupt()
		metrics.Interruptions.Inc()
		s.emitStatus("interrupted", "Coach interrupted, clearing playback")

	case stream.KindClosed:
		if ev.Reason != nil {
			s.log.Warn().Err(ev.Reason).Msg("session closed by transport")
			s.emitError("TRANSPORT_ERROR", ev.Reason.Error())
		}
		s.emitStatus("closed", "Coaching session ended")
		// Terminal either way: requested, remote, or failure. No reconnect.
		_ = s.Stop()
	}
}

// handleAudioDelta decodes and schedules one synthesized fragment. A
// malformed payload drops that single fragment, never the session.
func (s *Session) handleAudioDelta(ev stream.Event) {
	metrics.AudioDeltasReceived.Inc()
	buf, err := audio.DecodePCM16(ev.PCM, ev.SampleRate, 1)
	if err != nil {
		metrics.DecodeErrors.Inc()
		s.log.Warn().Err(err).Int("bytes", len(ev.PCM)).Msg("dropping malformed audio delta")
		return
	}
	if _, err := s.scheduler.Enqueue(buf); err != nil {
		if !errors.Is(err, ErrSchedulerStopped) {
			s.log.Warn().Err(err).Msg("playback enqueue failed")
		}
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// LastActive returns the last activity timestamp.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActivity
}

func (s *Session) emitStatus(status, message string) {
	if s.hooks.OnStatus != nil {
		s.hooks.OnStatus(status, message)
	}
}

func (s *Session) emitError(code, message string) {
	if s.hooks.OnError != nil {
		s.hooks.OnError(code, message)
	}
}
