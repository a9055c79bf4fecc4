package pipe

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flipperdevices/furipipe/internal/semaphore"
	"github.com/flipperdevices/furipipe/metrics"
	"github.com/flipperdevices/furipipe/registry"
	"github.com/flipperdevices/furipipe/ringbuf"
)

// State is a chain's lifecycle state, observed per-endpoint via
// EndpointSide.State.
type State int

const (
	// Open: both outer endpoints are alive.
	Open State = iota

	// Broken: one outer endpoint has been freed; the other observes
	// Broken and no reconnection is possible.
	Broken
)

func (s State) String() string {
	if s == Broken {
		return "Broken"
	}
	return "Open"
}

// Chain is the shared record behind a pipe or, after one or more welds, a
// pipe chain.
//
// Exactly two stream buffers and an ordered endpoint list
// [cAlice, j1, ..., j2n, cBob] are held here; interior elements strictly
// alternate Bob-joint/Alice-joint by origin pipe.
type Chain struct {
	// mu is the state-transition mutex: it serializes endpoint-count
	// changes (Free) and Weld against each other and against Unweld.
	mu sync.Mutex

	id  string
	log zerolog.Logger

	endpoints []*EndpointSide

	aliceToBob *ringbuf.Buffer
	bobToAlice *ringbuf.Buffer

	// live starts with one token standing for "both outer endpoints
	// alive"; the first Free succeeds a TryAcquire, the second finds it
	// empty and triggers full teardown.
	live *semaphore.Counting

	state State

	recorder *metrics.Recorder
	registry *registry.Registry
}

// ChainID implements registry.Entry.
func (c *Chain) ChainID() string {
	return c.id
}

func newChain(aliceToBob, bobToAlice *ringbuf.Buffer, opts AllocOptions) *Chain {
	c := &Chain{
		id:         uuid.NewString(),
		log:        *opts.Logger,
		aliceToBob: aliceToBob,
		bobToAlice: bobToAlice,
		live:       semaphore.New(1),
		state:      Open,
		recorder:   opts.Recorder,
		registry:   opts.Registry,
	}
	if c.registry != nil {
		c.registry.Add(c)
	}
	if c.recorder != nil {
		c.recorder.Allocated()
	}
	return c
}

// outerAlice returns the chain's current Alice endpoint, at index 0.
// Caller must hold c.mu.
func (c *Chain) outerAlice() *EndpointSide {
	if len(c.endpoints) == 0 {
		return nil
	}
	return c.endpoints[0]
}

// outerBob returns the chain's current Bob endpoint, at the last index.
// Caller must hold c.mu.
func (c *Chain) outerBob() *EndpointSide {
	if len(c.endpoints) == 0 {
		return nil
	}
	return c.endpoints[len(c.endpoints)-1]
}

// reportFill pushes the current buffer occupancy to the metrics recorder,
// called after every Send/Receive on a non-Joint endpoint, whether or not
// it moved any bytes.
func (c *Chain) reportFill() {
	if c.recorder == nil {
		return
	}
	c.recorder.SetBufferFill(c.id, "alice_to_bob", c.aliceToBob.BytesAvailable())
	c.recorder.SetBufferFill(c.id, "bob_to_alice", c.bobToAlice.BytesAvailable())
}

// markBroken transitions the chain from Open to Broken. Caller must hold
// c.mu. A no-op if already Broken: the transition is monotonic.
func (c *Chain) markBroken() {
	if c.state == Broken {
		return
	}
	c.state = Broken
	c.log.Warn().Str("chain", c.id).Msg("pipe: peer outer endpoint freed, chain is now broken")
	if c.recorder != nil {
		c.recorder.Broken()
	}
}

// teardown releases both stream buffers and unregisters the chain. Caller
// must hold c.mu; called once, when the live semaphore empties.
func (c *Chain) teardown() {
	wasBroken := c.state == Broken
	c.aliceToBob = nil
	c.bobToAlice = nil
	c.endpoints = nil
	if c.registry != nil {
		c.registry.Remove(c.id)
	}
	if c.recorder != nil {
		c.recorder.Deallocated(wasBroken)
	}
	c.log.Debug().Str("chain", c.id).Msg("pipe: chain fully deallocated")
}
