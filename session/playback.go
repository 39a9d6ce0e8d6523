package session

import (
	"errors"
	"sync"
	"time"

	"github.com/sculptai/posecoach/audio"
)

// ErrSchedulerStopped is returned when enqueueing after Stop.
var ErrSchedulerStopped = errors.New("playback scheduler stopped")

// Clock abstracts wall time for the scheduler.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time clock.
func SystemClock() Clock { return systemClock{} }

// PlaybackHandle is one scheduled buffer that can be stopped early.
type PlaybackHandle interface {
	Stop()
}

// Sink renders (or forwards) a decoded audio buffer starting at startAt.
type Sink interface {
	Play(buf *audio.Buffer, startAt time.Time) (PlaybackHandle, error)
}

// Scheduler sequences synthesized audio fragments into gapless, in-order
// playback. Each buffer starts at max(nextFree, now) and advances nextFree
// by its duration, so start(i+1) >= start(i)+duration(i) as long as deltas
// arrive without an interruption.
type Scheduler struct {
	mu       sync.Mutex
	sink     Sink
	clock    Clock
	nextFree time.Time
	active   []PlaybackHandle
	stopped  bool
}

// NewScheduler creates a scheduler over the given sink. A nil clock uses
// the system clock.
func NewScheduler(sink Sink, clock Clock) *Scheduler {
	if clock == nil {
		clock = systemClock{}
	}
	return &Scheduler{sink: sink, clock: clock}
}

// Enqueue schedules one decoded fragment and returns its start time.
func (s *Scheduler) Enqueue(buf *audio.Buffer) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return time.Time{}, ErrSchedulerStopped
	}

	now := s.clock.Now()
	startAt := now
	if s.nextFree.After(now) {
		startAt = s.nextFree
	}

	handle, err := s.sink.Play(buf, startAt)
	if err != nil {
		return time.Time{}, err
	}
	if handle != nil {
		s.active = append(s.active, handle)
	}
	s.nextFree = startAt.Add(buf.Duration())
	return startAt, nil
}

// Interrupt stops every scheduled buffer immediately and resets the
// timeline so the next fragment starts at "now". Used when the user
// speaks over the coach: prior audio must not continue.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActiveLocked()
}

// Stop is terminal: all buffers stop and no further scheduling occurs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActiveLocked()
	s.stopped = true
}

// ActiveCount returns the number of scheduled handles not yet cleared.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) stopActiveLocked() {
	for _, h := range s.active {
		h.Stop()
	}
	s.active = nil
	s.nextFree = time.Time{}
}
