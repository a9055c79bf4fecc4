package pipe

import "errors"

var (
	// ErrBroken is returned by operations that refuse to run once the
	// peer outer endpoint has been freed. Send/Receive never return it
	// (they silently degrade instead); it is reserved for the small set
	// of operations that must distinguish "broken" from "ok" explicitly.
	ErrBroken = errors.New("pipe: chain is broken")

	// ErrNotJoint is returned by Unweld when the target endpoint was
	// never welded.
	ErrNotJoint = errors.New("pipe: endpoint is not a Joint")
)

// precondition panics if ok is false. Used for fatal programmer errors:
// null endpoints, illegal role combinations, welding a non-weldable or
// already-joined endpoint, welding within one chain, freeing a subscribed
// endpoint, and the like. These are never meant to be recovered from by a
// caller, so they are not returned as errors.
func precondition(ok bool, msg string) {
	if !ok {
		panic("furipipe: precondition failed: " + msg)
	}
}
