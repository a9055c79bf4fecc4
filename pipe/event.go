package pipe

import "sync"

// EventKind distinguishes the two readiness signals an endpoint exposes.
type EventKind int

const (
	// Readable fires when bytes become available to Receive.
	Readable EventKind = iota

	// Writable fires when space frees up for Send.
	Writable
)

func (k EventKind) String() string {
	if k == Writable {
		return "writable"
	}
	return "readable"
}

// Link is a single per-endpoint, per-kind notification object that a
// cooperative event loop subscribes to (via EndpointSide.Links) and the
// pipe core raises (via Send/Receive on the peer).
//
// Subscription is edge-triggered from the core's point of view: raise is
// called exactly when Send/Receive decide a peer should be woken, not on
// every byte. A subscriber that wants level-triggered behavior should
// re-check Level after being woken, the same way a poll(2)-backed event
// loop re-checks readiness after a wakeup.
type Link struct {
	mu   sync.Mutex
	subs []func()
}

func newLink() *Link {
	return &Link{}
}

// Subscribe registers cb to run whenever the link is raised, returning a
// function that unsubscribes it. Safe to call from any goroutine.
func (l *Link) Subscribe(cb func()) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := len(l.subs)
	l.subs = append(l.subs, cb)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if idx < len(l.subs) {
			l.subs[idx] = nil // tombstone: keeps other subscribers' indices stable
		}
	}
}

// raise calls every live subscriber, outside the lock so a subscriber
// callback may itself call Subscribe/unsubscribe without deadlocking.
func (l *Link) raise() {
	l.mu.Lock()
	subs := make([]func(), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, cb := range subs {
		if cb != nil {
			cb()
		}
	}
}

// subscribed reports whether any live subscriber remains.
func (l *Link) subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cb := range l.subs {
		if cb != nil {
			return true
		}
	}
	return false
}

// EndpointLinks bundles the two notification objects one endpoint owns.
type EndpointLinks struct {
	Readable *Link
	Writable *Link
}

func newEndpointLinks() *EndpointLinks {
	return &EndpointLinks{Readable: newLink(), Writable: newLink()}
}

// LinkFor returns the notification objects a cooperative event loop should
// subscribe to in order to watch e. Joint endpoints return links that are
// never raised: an interior endpoint performs no I/O of its own.
func LinkFor(e *EndpointSide) *EndpointLinks {
	return e.self
}

// Level queries e's current readiness for kind without subscribing:
// readable is bytes_available > 0, writable is spaces_available > 0. This
// intentionally differs from the trigger-level-coupled threshold that
// raise uses for edge notifications on Send/Receive -- see DESIGN.md for
// why both are faithful to the underlying behavior they model.
func Level(e *EndpointSide, kind EventKind) bool {
	switch kind {
	case Writable:
		return e.SpacesAvailable() > 0
	default:
		return e.BytesAvailable() > 0
	}
}
