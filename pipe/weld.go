package pipe

import (
	"github.com/pkg/errors"

	"github.com/flipperdevices/furipipe/ringbuf"
	"github.com/flipperdevices/furipipe/role"
)

// Weld fuses sAlice (an Alice-role endpoint of one chain) and sBob (a
// Bob-role endpoint of a distinct chain) into a single longer chain.
//
// sAlice and sBob both become Joint endpoints afterward and can no longer
// Send or Receive; the chain that used to hold sBob (the "left" chain, by
// construction the survivor) keeps every endpoint, with the absorbed
// chain's endpoints appended after its own so that traffic still flows
// left to right. Bytes queued in either chain at the
// moment of the weld ("residual") are preserved and ordered ahead of
// whatever is sent afterward.
//
// A nil endpoint, a non-weldable endpoint, an endpoint that is already a
// Joint, two endpoints of the same role, or two endpoints already sharing
// a chain are all programmer errors and panic via precondition rather than
// returning an error: none of them are meant to be recovered from by a
// caller. The only recoverable failure is welding onto an already-broken
// chain, reported as ErrBroken.
func Weld(sAlice, sBob *EndpointSide) error {
	precondition(sAlice != nil && sBob != nil, "nil endpoint")
	precondition(sAlice.weldable && sBob.weldable, "endpoint is not weldable")

	sAlice.lock()
	roleA := sAlice.role
	chainA := sAlice.chain
	sAlice.unlock()

	sBob.lock()
	roleB := sBob.role
	chainB := sBob.chain
	sBob.unlock()

	precondition(roleA != role.Joint && roleB != role.Joint, "endpoint is already a Joint")
	precondition(roleA == role.Alice && roleB == role.Bob, "weld requires one Alice and one Bob endpoint")
	precondition(chainA != chainB, "cannot weld an endpoint to its own chain")

	// L is the surviving chain (sBob's, by construction: its endpoint list
	// keeps its own left-hand members and appends R's); R is absorbed and
	// discarded. Lock both state-transition mutexes in a fixed global
	// order -- chain id, a random UUID, is already a stable, comparable
	// identity every chain carries (see DESIGN.md) -- to stay
	// deadlock-free under concurrent welds.
	l, r := chainB, chainA
	lFirst := l.id < r.id
	if lFirst {
		l.mu.Lock()
		r.mu.Lock()
	} else {
		r.mu.Lock()
		l.mu.Lock()
	}
	defer r.mu.Unlock()
	defer l.mu.Unlock()

	// Lock the two fusing endpoints themselves, in the same chain-id order,
	// so a Send/Receive already past its own lock/unlock pair either
	// finished entirely before this point or will see the post-weld state.
	first, second := sBob, sAlice
	if !lFirst {
		first, second = sAlice, sBob
	}
	first.lock()
	defer first.unlock()
	second.lock()
	defer second.unlock()

	if l.state == Broken || r.state == Broken {
		return errors.Wrap(ErrBroken, "weld")
	}

	// Residual migration: traffic that had reached sBob but was not yet
	// read must now leave via the new outer cBob, so it moves to the tail
	// of R's alice_to_bob. Symmetrically, traffic that had reached sAlice
	// moves to the tail of L's bob_to_alice.
	r.aliceToBob.AppendTail(l.aliceToBob.Drain())
	l.bobToAlice.AppendTail(r.bobToAlice.Drain())

	// Chain concatenation: R's endpoints slot in after L's, each one
	// re-pointed at L.
	for _, ep := range r.endpoints {
		ep.chain = l
	}
	l.endpoints = append(l.endpoints, r.endpoints...)

	// Buffer collapse: L's old alice_to_bob and R's old bob_to_alice are
	// now empty and abandoned; R's alice_to_bob and L's bob_to_alice
	// survive as the chain's two buffers.
	survivingAliceToBob := r.aliceToBob
	survivingBobToAlice := l.bobToAlice
	l.aliceToBob = survivingAliceToBob

	// Endpoint relabeling: the two fusing endpoints become interior
	// Joints and give up their buffers.
	sAlice.role = role.Joint
	sBob.role = role.Joint
	sAlice.sending, sAlice.receiving = nil, nil
	sBob.sending, sBob.receiving = nil, nil

	// The new outer endpoints adopt the surviving buffers, and their peer
	// links are repointed directly at each other so a notification never
	// has to hop through an interior Joint.
	cAlice := l.endpoints[0]
	cBob := l.endpoints[len(l.endpoints)-1]
	cAlice.sending = survivingAliceToBob
	cAlice.receiving = survivingBobToAlice
	cBob.sending = survivingBobToAlice
	cBob.receiving = survivingAliceToBob
	cAlice.peer = cBob.self
	cBob.peer = cAlice.self

	if l.recorder != nil {
		l.recorder.Welded()
	}
	if r.registry != nil {
		r.registry.Remove(r.id)
	}
	l.log.Debug().
		Str("chain", l.id).
		Str("absorbed", r.id).
		Int("endpoints", len(l.endpoints)).
		Msg("pipe: welded")

	// r is now unreachable from any live endpoint; drop its own references
	// so nothing keeps its (now-empty) buffers or its endpoint slice alive
	// past this call.
	r.endpoints = nil
	r.aliceToBob = nil
	r.bobToAlice = nil

	return nil
}

// Unweld splits a Joint endpoint back into two independent outer endpoints,
// dividing its chain at that point: the inverse of Weld. How to distribute
// a non-empty buffer straddling the joint has no single obviously correct
// answer, so this resolves it deterministically by leaving any such
// residual on the left-hand chain (the one that keeps index 0, i.e.
// cAlice) and giving the right-hand chain an empty buffer in that
// direction, the same direction Weld itself treats as "L's".
//
// Returns an error without unwelding if j is not currently a Joint.
func Unweld(j *EndpointSide) (left, right *EndpointSide, err error) {
	j.lock()
	r := j.role
	c := j.chain
	j.unlock()

	if r != role.Joint {
		return nil, nil, errors.Wrapf(ErrNotJoint, "role is %s", r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, ep := range c.endpoints {
		if ep == j {
			idx = i
			break
		}
	}
	precondition(idx >= 0, "joint endpoint not found in its own chain")
	precondition(idx > 0 && idx < len(c.endpoints)-1, "outer endpoint cannot be a Joint")

	// A Joint is always one half of an adjacent pair created by the same
	// Weld; the left half reverts to Bob, the right half to Alice,
	// exactly undoing the relabeling step of that weld.
	// Odd indices are Bob-origin (left half), even indices Alice-origin
	// (right half), so the partner is found by index parity.
	leftIdx, rightIdx := idx, idx+1
	if idx%2 == 0 {
		leftIdx, rightIdx = idx-1, idx
	}
	precondition(c.endpoints[leftIdx].role == role.Joint && c.endpoints[rightIdx].role == role.Joint,
		"joint endpoint has no adjacent partner joint")
	leftJoint := c.endpoints[leftIdx]
	rightJoint := c.endpoints[rightIdx]

	leftEndpoints := c.endpoints[:leftIdx+1]
	rightEndpoints := c.endpoints[rightIdx:]
	cBob := rightEndpoints[len(rightEndpoints)-1]

	// Both of the merged chain's existing buffers -- including whatever
	// residual each still holds -- stay with the left chain; the right
	// chain starts with two fresh, empty buffers, sized from the
	// sendSettings each outer endpoint captured at its original Allocate,
	// not from the merged chain's (unrelated) surviving capacities.
	leftAliceToBob := c.aliceToBob
	leftBobToAlice := c.bobToAlice
	rightAliceToBob := ringbuf.New(rightJoint.sendSettings.Capacity, rightJoint.sendSettings.TriggerLevel)
	rightBobToAlice := ringbuf.New(cBob.sendSettings.Capacity, cBob.sendSettings.TriggerLevel)

	leftOpts := AllocOptions{Logger: &c.log, Recorder: c.recorder, Registry: c.registry}
	rightOpts := AllocOptions{Logger: &c.log, Recorder: c.recorder, Registry: c.registry}
	leftChain := newChain(leftAliceToBob, leftBobToAlice, leftOpts)
	rightChain := newChain(rightAliceToBob, rightBobToAlice, rightOpts)

	for _, ep := range leftEndpoints {
		ep.chain = leftChain
	}
	for _, ep := range rightEndpoints {
		ep.chain = rightChain
	}
	leftChain.endpoints = leftEndpoints
	rightChain.endpoints = rightEndpoints

	leftJoint.role = role.Bob
	leftJoint.sending = leftBobToAlice
	leftJoint.receiving = leftAliceToBob

	rightJoint.role = role.Alice
	rightJoint.sending = rightAliceToBob
	rightJoint.receiving = rightBobToAlice

	cAlice := leftEndpoints[0]
	cAlice.peer = leftJoint.self
	leftJoint.peer = cAlice.self

	cBob.sending = rightBobToAlice
	cBob.receiving = rightAliceToBob
	cBob.peer = rightJoint.self
	rightJoint.peer = cBob.self

	if c.recorder != nil {
		c.recorder.Unwelded()
	}
	if c.registry != nil {
		c.registry.Remove(c.id)
	}
	leftChain.log.Debug().
		Str("left_chain", leftChain.id).
		Str("right_chain", rightChain.id).
		Str("split_at", c.id).
		Msg("pipe: unwelded")

	return leftJoint, rightJoint, nil
}
