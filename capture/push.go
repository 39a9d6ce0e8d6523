package capture

import "sync"

// PushSource is a Source fed by an external producer, used when frames
// arrive over the wire instead of from a local device. Pending frames are
// bounded by a byte budget; a producer that outruns the consumer gets
// ErrBufferFull rather than unbounded memory growth.
type PushSource struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []Frame
	queuedBytes int
	maxBytes    int
	closed      bool

	frames chan Frame
	done   chan struct{}
}

// NewPushSource creates a push source with the given pending-byte budget.
func NewPushSource(maxBytes int) *PushSource {
	s := &PushSource{
		maxBytes: maxBytes,
		frames:   make(chan Frame, 16),
		done:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// Push enqueues a frame for delivery in push order.
func (s *PushSource) Push(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	if s.queuedBytes+f.size() > s.maxBytes {
		return ErrBufferFull
	}

	s.queue = append(s.queue, f)
	s.queuedBytes += f.size()
	s.cond.Signal()
	return nil
}

// PendingBytes returns the bytes currently queued.
func (s *PushSource) PendingBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queuedBytes
}

// MaxBytes returns the pending-byte budget.
func (s *PushSource) MaxBytes() int {
	return s.maxBytes
}

// Frames returns the delivery channel. Closed after Close once the queue
// drains or delivery is abandoned.
func (s *PushSource) Frames() <-chan Frame {
	return s.frames
}

// Close stops the source. Idempotent.
func (s *PushSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.queue = nil
	s.queuedBytes = 0
	s.mu.Unlock()

	close(s.done)
	s.cond.Broadcast()
	return nil
}

func (s *PushSource) pump() {
	defer close(s.frames)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		s.queuedBytes -= f.size()
		s.mu.Unlock()

		select {
		case s.frames <- f:
		case <-s.done:
			return
		}
	}
}
