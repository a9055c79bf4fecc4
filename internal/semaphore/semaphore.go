// Package semaphore is a minimal counting semaphore used by the pipe core
// as an endpoint-count accumulator: a chain starts with one token standing
// for "both outer endpoints alive", the first Free consumes it, and the
// second Free finds the semaphore empty and tears the chain down.
package semaphore

// Counting is a counting semaphore with TryAcquire/Release.
type Counting struct {
	tokens chan struct{}
}

// New returns a Counting semaphore initialized with count tokens.
func New(count int) *Counting {
	s := &Counting{tokens: make(chan struct{}, count)}
	for i := 0; i < count; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// TryAcquire removes one token without blocking.
// Returns true iff a token was available.
func (s *Counting) TryAcquire() bool {
	select {
	case <-s.tokens:
		return true
	default:
		return false
	}
}

// Release returns one token to the semaphore. Infallible: release by a
// caller that legitimately holds a token never fails.
func (s *Counting) Release() {
	select {
	case s.tokens <- struct{}{}:
	default:
		// already full: a double-release programmer error, ignored
		// rather than panicking since Release has no error return.
	}
}
