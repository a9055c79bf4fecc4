package util_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flipperdevices/furipipe/pipe"
	"github.com/flipperdevices/furipipe/util"
)

func TestConnReadWriteRoundTrip(t *testing.T) {
	alice, bob := pipe.AllocateBasic(32, 1)
	aliceConn := util.NewConn(alice, pipe.Forever)
	bobConn := util.NewConn(bob, 100*time.Millisecond)

	n, err := aliceConn.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	out := make([]byte, 32)
	n, err = bobConn.Read(out)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out[:n]))

	require.NoError(t, aliceConn.Close())
	require.NoError(t, bobConn.Close())
}

func TestConnReadReturnsEOFOnceBroken(t *testing.T) {
	alice, bob := pipe.AllocateBasic(16, 1)
	bobConn := util.NewConn(bob, 50*time.Millisecond)

	alice.Free()

	out := make([]byte, 16)
	n, err := bobConn.Read(out)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestConnWriteLoopsUntilAllAccepted(t *testing.T) {
	alice, bob := pipe.AllocateBasic(4, 1)
	aliceConn := util.NewConn(alice, pipe.Forever)

	done := make(chan struct{})
	go func() {
		defer close(done)
		out := make([]byte, 8)
		n := bob.Receive(out, pipe.Forever)
		require.Equal(t, 4, n)
		n = bob.Receive(out[n:], pipe.Forever)
		require.Equal(t, 4, n)
	}()

	n, err := aliceConn.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	require.Equal(t, 8, n)

	<-done
	require.NoError(t, aliceConn.Close())
	bob.Free()
}
