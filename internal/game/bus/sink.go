package bus

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the sink buffer size used when none is configured.
const DefaultCapacity = 100

// Sink is a bounded per-subscriber mailbox drained by one connection
// goroutine. Deliver never blocks: when the buffer is full the oldest pending
// message is discarded to make room.
type Sink struct {
	ch        chan string
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
	onDrop    func()
}

// NewSink creates a Sink holding up to capacity pending messages. onDrop, if
// non-nil, is called once per discarded message.
//
// Postcondition: capacity <= 0 is replaced by DefaultCapacity.
func NewSink(capacity int, onDrop func()) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Sink{
		ch:     make(chan string, capacity),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
}

// Deliver enqueues msg.
//
// Postcondition: Returns false only if the sink is closed. Never blocks.
func (s *Sink) Deliver(msg string) bool {
	if s.closed.Load() {
		return false
	}
	for {
		select {
		case s.ch <- msg:
			return true
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			if s.onDrop != nil {
				s.onDrop()
			}
		default:
		}
	}
}

// C returns the channel of pending messages. It is never closed; select on
// Done as well.
func (s *Sink) C() <-chan string { return s.ch }

// Done is closed once the sink is closed.
func (s *Sink) Done() <-chan struct{} { return s.done }

// Close stops further delivery. Messages already pending stay readable.
// Close is idempotent.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

// Closed reports whether Close has been called.
func (s *Sink) Closed() bool { return s.closed.Load() }

// Dropped returns the number of messages discarded on overflow.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Len returns the number of pending messages.
func (s *Sink) Len() int { return len(s.ch) }

// Drain removes and returns every pending message without blocking.
func (s *Sink) Drain() []string {
	var out []string
	for {
		select {
		case msg := <-s.ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}
