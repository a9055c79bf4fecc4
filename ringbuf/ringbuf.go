// Package ringbuf implements the bounded, single-producer/single-consumer
// byte buffer that backs each direction of a pipe: the "StreamBuffer"
// collaborator of the pipe core.
//
// Send blocks until at least one byte fits or the timeout elapses. Receive
// blocks until at least TriggerLevel bytes are available or the timeout
// elapses. Both accept Forever for an unbounded wait and 0 for a
// non-blocking attempt.
package ringbuf

import (
	"sync"
	"time"
)

// Forever is passed as a timeout to block with no time limit.
const Forever time.Duration = -1

// Buffer is a bounded byte queue with blocking, timed Send/Receive.
//
// The zero value is not usable; use New.
type Buffer struct {
	mu       sync.Mutex
	data     []byte // queued, unread bytes
	capacity int
	trigger  int

	// readable/writable are 1-buffered "something changed" signals,
	// mirroring the wakeup-channel pattern xtaci/smux uses for its
	// Stream.Read/Write (chReaderWakeup/chWriterWakeup).
	readable chan struct{}
	writable chan struct{}
}

// New returns a Buffer of the given capacity that unblocks a pending
// Receive once triggerLevel bytes are queued.
//
// Panics (a precondition failure, not a recoverable error) if capacity is
// not positive or triggerLevel is not in (0, capacity].
func New(capacity, triggerLevel int) *Buffer {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	if triggerLevel <= 0 || triggerLevel > capacity {
		panic("ringbuf: trigger level must be in (0, capacity]")
	}
	return &Buffer{
		capacity: capacity,
		trigger:  triggerLevel,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

// Capacity returns the buffer's fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// TriggerLevel returns the buffer's receive-unblock threshold.
func (b *Buffer) TriggerLevel() int {
	return b.trigger
}

// BytesAvailable returns the number of bytes currently queued.
func (b *Buffer) BytesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// SpacesAvailable returns the free capacity currently available to Send.
func (b *Buffer) SpacesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - len(b.data)
}

// wake signals ch without blocking if it is already signaled.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// waitOrTimeout blocks on ch until signaled or timeout elapses (Forever
// waits with no limit; a timeout <= 0 does not wait at all). Returns false
// on timeout.
func waitOrTimeout(ch <-chan struct{}, timeout time.Duration) bool {
	if timeout == Forever {
		<-ch
		return true
	}
	if timeout <= 0 {
		return false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// Send appends up to len(p) bytes, blocking while the buffer is full.
//
// Returns the number of bytes actually queued, which may be less than
// len(p) (including 0) if the timeout elapses first. A timeout of Forever
// blocks until at least one byte fits; 0 attempts a non-blocking send.
func (b *Buffer) Send(p []byte, timeout time.Duration) int {
	n, _ := b.SendCrossed(p, timeout)
	return n
}

// SendCrossed is Send, additionally reporting whether BytesAvailable moved
// from below TriggerLevel to at least TriggerLevel as a direct result of
// this call. Used by the pipe core to decide when to raise a peer's
// readable link exactly once per crossing. The crossing check is computed
// inside the same critical section as the append, so it cannot race with
// itself; a concurrent Receive between two separate calls can still make
// this a best-effort signal, same as real edge-triggered I/O multiplexers
// coalescing wakeups.
func (b *Buffer) SendCrossed(p []byte, timeout time.Duration) (n int, crossedUp bool) {
	deadline := deadlineFor(timeout)
	total := 0
	for total < len(p) {
		b.mu.Lock()
		free := b.capacity - len(b.data)
		if free == 0 {
			b.mu.Unlock()
			remaining := remainingOrForever(timeout, deadline)
			if !waitOrTimeout(b.writable, remaining) {
				return total, crossedUp
			}
			continue
		}

		take := len(p) - total
		if take > free {
			take = free
		}
		before := len(b.data)
		b.data = append(b.data, p[total:total+take]...)
		after := len(b.data)
		total += take
		if before < b.trigger && after >= b.trigger {
			crossedUp = true
		}
		b.mu.Unlock()

		// space no longer fully free; any waiting receiver can proceed
		if after > before {
			wake(b.readable)
		}

		// a partial send is still "done": Send returns once at least one
		// byte has been queued
		return total, crossedUp
	}
	return total, crossedUp
}

// Receive drains up to len(out) bytes, blocking until TriggerLevel bytes
// are queued or the timeout elapses.
//
// Returns the number of bytes actually copied into out, which may be less
// than TriggerLevel (including 0) if the timeout elapses first, or more
// than TriggerLevel if more than that was already queued and fits in out.
func (b *Buffer) Receive(out []byte, timeout time.Duration) int {
	deadline := deadlineFor(timeout)
	for {
		b.mu.Lock()
		avail := len(b.data)
		if (avail == 0 && timeout == 0) || (avail < b.trigger && timeout != 0) {
			b.mu.Unlock()
			remaining := remainingOrForever(timeout, deadline)
			if !waitOrTimeout(b.readable, remaining) {
				// timed out: return whatever is there right now
				return b.drainInto(out)
			}
			continue
		}
		n := b.drainInto(out)
		return n
	}
}

// drainInto copies queued bytes into out and removes them from the queue.
// Caller must not hold b.mu.
func (b *Buffer) drainInto(out []byte) int {
	b.mu.Lock()
	n := copy(out, b.data)
	before := len(b.data)
	b.data = b.data[n:]
	after := len(b.data)
	b.mu.Unlock()
	if n > 0 && after < before {
		wake(b.writable)
	}
	return n
}

// Drain removes and returns all queued bytes, for weld's residual
// migration. The returned slice is a copy; the buffer is left empty.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	b.data = b.data[:0]
	return out
}

// AppendTail appends p to the buffer's tail, bypassing the capacity check.
//
// Used exclusively by the weld engine to migrate residual bytes from an
// abandoned buffer into the buffer being adopted; the buffer may
// transiently exceed its nominal capacity as a result. Wakes any pending
// Receive.
func (b *Buffer) AppendTail(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	wake(b.readable)
}

// deadlineFor returns the wall-clock deadline for timeout, or the zero
// Time if timeout is Forever (no deadline).
func deadlineFor(timeout time.Duration) time.Time {
	if timeout == Forever || timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// remainingOrForever returns how long is left until deadline, or Forever
// if timeout was Forever. Returns 0 (non-blocking) if the deadline has
// already passed.
func remainingOrForever(timeout time.Duration, deadline time.Time) time.Duration {
	if timeout == Forever {
		return Forever
	}
	if timeout <= 0 {
		return 0
	}
	left := time.Until(deadline)
	if left < 0 {
		return 0
	}
	return left
}
