package pipe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flipperdevices/furipipe/pipe"
)

func TestWeldStraightThrough(t *testing.T) {
	pAlice, pBob := pipe.AllocateBasic(16, 1)
	qAlice, qBob := pipe.AllocateBasic(16, 1)

	require.NoError(t, pipe.Weld(qAlice, pBob))

	n := pAlice.Send([]byte("hi"), pipe.Forever)
	require.Equal(t, 2, n)

	out := make([]byte, 16)
	n = qBob.Receive(out, 100*time.Millisecond)
	require.Equal(t, "hi", string(out[:n]))

	n = qBob.Send([]byte("ok"), pipe.Forever)
	require.Equal(t, 2, n)
	n = pAlice.Receive(out, 100*time.Millisecond)
	require.Equal(t, "ok", string(out[:n]))

	pAlice.Free()
	qBob.Free()
}

func TestWeldWithResidual(t *testing.T) {
	pAlice, pBob := pipe.AllocateBasic(16, 1)
	qAlice, qBob := pipe.AllocateBasic(16, 1)

	n := pAlice.Send([]byte("12"), 0)
	require.Equal(t, 2, n)
	n = qBob.Send([]byte("9"), 0)
	require.Equal(t, 1, n)

	require.NoError(t, pipe.Weld(qAlice, pBob))

	out := make([]byte, 16)
	n = qBob.Receive(out, 100*time.Millisecond)
	require.Equal(t, "12", string(out[:n]))

	n = pAlice.Receive(out, 100*time.Millisecond)
	require.Equal(t, "9", string(out[:n]))

	pAlice.Free()
	qBob.Free()
}

func TestIllegalWeld(t *testing.T) {
	pAlice, _ := pipe.AllocateBasic(16, 1)
	qAlice, _ := pipe.AllocateBasic(16, 1)

	require.Panics(t, func() { pipe.Weld(pAlice, qAlice) })

	alice, bob := pipe.AllocateBasic(16, 1)
	require.Panics(t, func() { pipe.Weld(alice, bob) })
}

func TestWeldRejectsNonWeldable(t *testing.T) {
	alice, bob := pipe.Allocate(pipe.AllocOptions{NotWeldable: true})
	other, _ := pipe.AllocateBasic(16, 1)

	require.Panics(t, func() { pipe.Weld(other, bob) })

	alice.Free()
	bob.Free()
}

func TestUnweldRestoresIndependentChains(t *testing.T) {
	pAlice, pBob := pipe.AllocateBasic(16, 1)
	qAlice, qBob := pipe.AllocateBasic(16, 1)

	require.NoError(t, pipe.Weld(qAlice, pBob))

	left, right, err := pipe.Unweld(pBob)
	require.NoError(t, err)
	require.Equal(t, pBob, left)
	require.Equal(t, qAlice, right)

	n := pAlice.Send([]byte("a"), pipe.Forever)
	require.Equal(t, 1, n)
	out := make([]byte, 4)
	n = left.Receive(out, 100*time.Millisecond)
	require.Equal(t, "a", string(out[:n]))

	n = right.Send([]byte("b"), pipe.Forever)
	require.Equal(t, 1, n)
	n = qBob.Receive(out, 100*time.Millisecond)
	require.Equal(t, "b", string(out[:n]))

	pAlice.Free()
	left.Free()
	right.Free()
	qBob.Free()
}
