// Package frameslot holds the two-slot buffer handoff between a producer
// thread and a render thread.
package frameslot

import (
	"sync"
	"sync/atomic"
)

// Releasable is a reference-counted buffer owned by exactly one slot at a time.
//
// The zero value of B means "no buffer". Release must drop exactly one
// reference and must not call into the GPU.
type Releasable interface {
	comparable
	Release()
}

// Slot owns at most two buffer references: the pending one (delivered by the
// producer, not yet shown) and the displaying one (backing the texture the
// renderer currently samples).
//
// Mailbox semantics:
//   - Push overwrites pending; an unconsumed pending buffer is released (dropped)
//   - Acquire promotes pending to displaying and releases the old displaying one
//   - Drain releases everything and closes the slot; later pushes are released
//     immediately
//
// Thread-safety:
//   - All fields protected by mu
//   - Push: producer thread (streaming thread)
//   - Acquire: render thread
//   - Drain: teardown, any thread
//
// The critical section is O(1): a swap plus at most one Release.
type Slot[B Releasable] struct {
	mu         sync.Mutex
	pending    B
	displaying B
	closed     bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
	displayed atomic.Uint64
	released  atomic.Uint64
}

// Stats is a snapshot of slot counters.
type Stats struct {
	Delivered uint64 // Buffers handed in by the producer
	Dropped   uint64 // Pending buffers overwritten before being displayed
	Displayed uint64 // Successful pending → displaying promotions
	Released  uint64 // Total Release calls issued by the slot
}

// New returns an open, empty slot.
func New[B Releasable]() *Slot[B] {
	return &Slot[B]{}
}

// Push hands a freshly referenced buffer to the slot.
//
// Algorithm:
//  1. Lock slot mutex
//  2. If closed, release the buffer immediately (teardown raced the producer)
//  3. Release the unconsumed pending buffer, unless it is also displaying
//  4. Store the new buffer as pending
//
// Returns false if the slot was closed and the buffer was released.
func (s *Slot[B]) Push(buf B) bool {
	var zero B
	if buf == zero {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.delivered.Add(1)

	if s.closed {
		s.release(buf)
		return false
	}

	if s.pending != zero && s.pending != s.displaying {
		s.release(s.pending)
		s.dropped.Add(1)
	}

	s.pending = buf
	return true
}

// Acquire promotes the pending buffer to displaying and calls inspect with it
// while the slot lock is still held, so the buffer cannot be released while
// its texture is being resolved.
//
// If no frame was ever delivered, inspect is not called and Acquire returns
// false. If no new frame arrived since the previous Acquire, the current
// displaying buffer is inspected again.
func (s *Slot[B]) Acquire(inspect func(B)) bool {
	var zero B

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pending == zero {
		return false
	}

	if s.pending != s.displaying {
		if s.displaying != zero {
			s.release(s.displaying)
		}
		s.displaying = s.pending
		s.displayed.Add(1)
	}

	if inspect != nil {
		inspect(s.displaying)
	}
	return true
}

// Drain releases every held reference exactly once and closes the slot.
// Idempotent.
func (s *Slot[B]) Drain() {
	var zero B

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.pending != zero && s.pending != s.displaying {
		s.release(s.pending)
	}
	if s.displaying != zero {
		s.release(s.displaying)
	}
	s.pending = zero
	s.displaying = zero
}

// HasFrame reports whether a frame is available for Acquire.
func (s *Slot[B]) HasFrame() bool {
	var zero B

	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.pending != zero
}

// Closed reports whether Drain has run.
func (s *Slot[B]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stats returns a snapshot of the slot counters.
func (s *Slot[B]) Stats() Stats {
	return Stats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Displayed: s.displayed.Load(),
		Released:  s.released.Load(),
	}
}

func (s *Slot[B]) release(buf B) {
	buf.Release()
	s.released.Add(1)
}
