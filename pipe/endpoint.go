// Package pipe implements a bidirectional, bounded, weldable byte pipe: the
// in-process IPC primitive used between cooperating execution contexts.
//
// Allocate a pipe with Allocate or AllocateBasic to get an Alice and a Bob
// EndpointSide. Send bytes from one side with Send, and read them from the
// other with Receive. Weld an Alice-Bob pair from two distinct pipes to
// splice them into one longer chain with Weld; Free tears an endpoint down.
package pipe

import (
	"sync"
	"time"

	"github.com/flipperdevices/furipipe/ringbuf"
	"github.com/flipperdevices/furipipe/role"
)

// Forever is re-exported from ringbuf for callers that only import pipe.
const Forever = ringbuf.Forever

// EndpointSide is one user-visible handle on a pipe or pipe chain. Created
// by Allocate/Weld, destroyed by Free.
type EndpointSide struct {
	// mu guards role/sending/receiving/chain/peer below. Non-weldable
	// endpoints skip it entirely: the underlying ring buffers are already
	// safe for single-producer/single-consumer use, making such an
	// endpoint handle effectively lock-free.
	mu       lockable
	weldable bool

	role      role.Role
	sending   *ringbuf.Buffer
	receiving *ringbuf.Buffer
	chain     *Chain

	// sendSettings is captured at allocation so a future Unweld can
	// restore independent buffers sized the way they originally were.
	sendSettings Settings

	self *EndpointLinks // this endpoint's own links, for a subscriber
	peer *EndpointLinks // the peer endpoint's self links, to notify
}

// lockable is a sync.Mutex that can be turned into a no-op, for endpoints
// that will never be welded and so have nothing to serialize against. The
// zero value is disabled (every lock/unlock a no-op).
type lockable struct {
	enabled bool
	m       sync.Mutex
}

// Allocate creates the two buffers and a new chain for a fresh pipe, and
// returns its Alice and Bob endpoints in the Open state.
func Allocate(opts AllocOptions) (alice, bob *EndpointSide) {
	opts = opts.withDefaults()

	aliceToBob := ringbuf.New(opts.ToBob.Capacity, opts.ToBob.TriggerLevel)
	bobToAlice := ringbuf.New(opts.ToAlice.Capacity, opts.ToAlice.TriggerLevel)

	chain := newChain(aliceToBob, bobToAlice, opts)

	alice = &EndpointSide{
		weldable:     !opts.NotWeldable,
		role:         role.Alice,
		sending:      aliceToBob,
		receiving:    bobToAlice,
		chain:        chain,
		sendSettings: opts.ToBob,
		self:         newEndpointLinks(),
	}
	bob = &EndpointSide{
		weldable:     !opts.NotWeldable,
		role:         role.Bob,
		sending:      bobToAlice,
		receiving:    aliceToBob,
		chain:        chain,
		sendSettings: opts.ToAlice,
		self:         newEndpointLinks(),
	}
	alice.peer = bob.self
	bob.peer = alice.self

	withRealMutex(alice)
	withRealMutex(bob)

	chain.endpoints = []*EndpointSide{alice, bob}

	chain.log.Debug().
		Str("chain", chain.id).
		Int("to_alice_capacity", opts.ToAlice.Capacity).
		Int("to_bob_capacity", opts.ToBob.Capacity).
		Msg("pipe: allocated")

	return alice, bob
}

func withRealMutex(e *EndpointSide) {
	e.mu.enabled = e.weldable
}

// AllocateBasic is the symmetric convenience form: one capacity/trigger
// pair for both directions, weldable=true.
func AllocateBasic(capacity, triggerLevel int) (alice, bob *EndpointSide) {
	s := Settings{Capacity: capacity, TriggerLevel: triggerLevel}
	return Allocate(AllocOptions{ToAlice: s, ToBob: s})
}

func (e *EndpointSide) lock() {
	precondition(e != nil, "nil endpoint")
	if e.mu.enabled {
		e.mu.m.Lock()
	}
}

func (e *EndpointSide) unlock() {
	if e.mu.enabled {
		e.mu.m.Unlock()
	}
}

// Role returns e's current role: Alice, Bob, or Joint.
func (e *EndpointSide) Role() role.Role {
	e.lock()
	defer e.unlock()
	return e.role
}

// State reports Open or Broken. Joint endpoints always report Open: they
// are interior, so the notion of "the peer outer endpoint was freed" does
// not apply to them directly.
func (e *EndpointSide) State() State {
	e.lock()
	r := e.role
	c := e.chain
	e.unlock()

	if r == role.Joint {
		return Open
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BytesAvailable returns the number of bytes ready for Receive; always 0
// for a Joint endpoint.
func (e *EndpointSide) BytesAvailable() int {
	e.lock()
	recv := e.receiving
	e.unlock()
	if recv == nil {
		return 0
	}
	return recv.BytesAvailable()
}

// SpacesAvailable returns the free space left for Send; always 0 for a
// Joint endpoint.
func (e *EndpointSide) SpacesAvailable() int {
	e.lock()
	send := e.sending
	e.unlock()
	if send == nil {
		return 0
	}
	return send.SpacesAvailable()
}

// Send appends up to len(p) bytes to e's outgoing buffer, blocking up to
// timeout if no space is available, and returns the count accepted.
//
// A Joint endpoint always returns 0 immediately. Sending into a broken
// pipe silently buffers the bytes: the result is still the number of
// bytes queued, even though no reader will ever drain them.
func (e *EndpointSide) Send(p []byte, timeout time.Duration) int {
	e.lock()
	sending := e.sending
	peer := e.peer
	e.unlock()

	if sending == nil {
		return 0 // Joint
	}

	n, crossed := sending.SendCrossed(p, timeout)

	if crossed {
		peer.Readable.raise()
	}
	e.chain.reportFill()
	return n
}

// Receive drains up to len(out) bytes from e's incoming buffer, blocking
// until TriggerLevel bytes are available or timeout elapses, and returns
// the count copied.
//
// A Joint endpoint always returns 0 immediately. On any non-empty result
// it unconditionally raises the peer's writable link: waking a
// possibly-blocked sender is always safe.
func (e *EndpointSide) Receive(out []byte, timeout time.Duration) int {
	e.lock()
	receiving := e.receiving
	peer := e.peer
	e.unlock()

	if receiving == nil {
		return 0 // Joint
	}

	n := receiving.Receive(out, timeout)

	if n > 0 {
		peer.Writable.raise()
	}
	e.chain.reportFill()
	return n
}

// Links returns the notification objects a cooperative event loop should
// subscribe to in order to watch e.
func (e *EndpointSide) Links() *EndpointLinks {
	e.lock()
	defer e.unlock()
	return e.self
}

// Free releases e. If it is the last live endpoint of its chain, both
// stream buffers and the chain record are torn down too.
//
// Precondition (fatal): e.Role() must not be Joint, and e must not
// currently be subscribed to an event loop.
func (e *EndpointSide) Free() {
	e.lock()
	r := e.role
	c := e.chain
	self := e.self
	e.unlock()

	precondition(r != role.Joint, "cannot free a Joint endpoint, unweld it first")
	precondition(!self.Readable.subscribed() && !self.Writable.subscribed(),
		"cannot free an endpoint still subscribed to an event loop")

	c.mu.Lock()
	defer c.mu.Unlock()

	// Only the two outer endpoints are ever freed directly (a Joint must
	// be unwelded first, which turns it back into an outer endpoint of a
	// split-off chain), so exactly two Frees ever reach here: the first
	// finds a token and just breaks the chain for whoever is left; the
	// second finds it empty and tears everything down.
	if !c.live.TryAcquire() {
		c.teardown()
		return
	}
	c.markBroken()

	for i, ep := range c.endpoints {
		if ep == e {
			c.endpoints = append(c.endpoints[:i], c.endpoints[i+1:]...)
			break
		}
	}
}
