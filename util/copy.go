// Package util holds small helpers built on top of the pipe core that are
// useful to callers but not part of its contract: an io.ReadWriteCloser
// adapter and a bidirectional copy loop built from it.
package util

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/flipperdevices/furipipe/pipe"
)

// Conn adapts an *pipe.EndpointSide to io.ReadWriteCloser, so it can be
// handed to anything that already speaks that interface (an os.Pipe, a
// net.Conn, a test harness). It is not the per-thread "install as stdio"
// hook the core leaves as an external collaborator: it has no notion of a
// hosting thread, just blocking reads and writes with a caller-chosen
// timeout.
type Conn struct {
	e       *pipe.EndpointSide
	timeout time.Duration
}

// NewConn wraps e. timeout is used for every Read/Write; pass pipe.Forever
// for the usual blocking io.ReadWriteCloser behavior.
func NewConn(e *pipe.EndpointSide, timeout time.Duration) *Conn {
	return &Conn{e: e, timeout: timeout}
}

// Read copies at most len(p) bytes out of the endpoint's incoming buffer.
// Once the chain is Broken and nothing further arrives, it returns io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	n := c.e.Receive(p, c.timeout)
	if n == 0 && c.e.State() == pipe.Broken {
		return 0, io.EOF
	}
	return n, nil
}

// Write sends all of p, looping internally if a single Send accepted less
// than requested. If a Send accepts nothing before all of p is sent, Write
// stops with the count so far and io.ErrClosedPipe when the chain is
// Broken, or io.ErrShortWrite when it is still Open (the timeout elapsed).
func (c *Conn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n := c.e.Send(p[total:], c.timeout)
		total += n
		if n == 0 {
			if c.e.State() == pipe.Broken {
				return total, io.ErrClosedPipe
			}
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// Close frees the underlying endpoint.
func (c *Conn) Close() error {
	c.e.Free()
	return nil
}

// CopyThrough pumps bytes between (alice, bob), a freshly allocated pipe's
// two endpoints, and a pair of external io.ReadWriteCloser peers: lhs talks
// to alice, rhs talks to bob. rhs may be nil, in which case bob's input
// side is simply never fed and its output is drained and discarded.
//
// Blocks until both directions finish, then closes everything and returns
// the byte counts moved each way.
func CopyThrough(alice, bob *pipe.EndpointSide, timeout time.Duration, lhs, rhs io.ReadWriteCloser) (lhsb, rhsb []int64, err error) {
	aliceConn := NewConn(alice, timeout)
	bobConn := NewConn(bob, timeout)

	var (
		lhsTx, lhsRx       int64
		lhsTxErr, lhsRxErr error
		rhsTx, rhsRx       int64
		rhsTxErr, rhsRxErr error
		wg                 sync.WaitGroup
	)

	// lhs -> alice
	wg.Add(1)
	go func() {
		defer wg.Done()
		lhsRx, lhsRxErr = io.Copy(aliceConn, lhs)
	}()

	// alice -> lhs
	wg.Add(1)
	go func() {
		defer wg.Done()
		lhsTx, lhsTxErr = io.Copy(lhs, aliceConn)
		lhs.Close()
	}()

	if rhs == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			io.Copy(io.Discard, bobConn)
		}()
	} else {
		// rhs -> bob
		wg.Add(1)
		go func() {
			defer wg.Done()
			rhsRx, rhsRxErr = io.Copy(bobConn, rhs)
		}()

		// bob -> rhs
		wg.Add(1)
		go func() {
			defer wg.Done()
			rhsTx, rhsTxErr = io.Copy(rhs, bobConn)
			rhs.Close()
		}()
	}

	wg.Wait()

	aliceConn.Close()
	bobConn.Close()

	return []int64{lhsTx, lhsRx}, []int64{rhsTx, rhsRx}, errors.Join(lhsTxErr, lhsRxErr, rhsTxErr, rhsRxErr)
}
