package ringbuf_test

import (
	"testing"
	"time"

	"github.com/flipperdevices/furipipe/ringbuf"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	b := ringbuf.New(16, 1)

	n := b.Send([]byte("hello"), ringbuf.Forever)
	require.Equal(t, 5, n)
	require.Equal(t, 5, b.BytesAvailable())

	out := make([]byte, 16)
	n = b.Receive(out, 100*time.Millisecond)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out[:n]))
	require.Equal(t, 0, b.BytesAvailable())
}

func TestSendBackPressure(t *testing.T) {
	b := ringbuf.New(4, 1)

	n := b.Send([]byte("abcdefgh"), 0)
	require.Equal(t, 4, n)

	out := make([]byte, 2)
	n = b.Receive(out, 0)
	require.Equal(t, 2, n)
	require.Equal(t, "ab", string(out))

	n = b.Send([]byte("efgh")[:4], 0)
	require.Equal(t, 2, n)
	require.Equal(t, 4, b.BytesAvailable())
}

func TestReceiveTimeoutReturnsPartial(t *testing.T) {
	b := ringbuf.New(16, 8)

	b.Send([]byte("ab"), ringbuf.Forever)

	out := make([]byte, 16)
	start := time.Now()
	n := b.Receive(out, 30*time.Millisecond)
	require.Less(t, int64(time.Since(start)), int64(200*time.Millisecond))
	require.Equal(t, 2, n)
}

func TestReceiveUnblocksAtTriggerLevel(t *testing.T) {
	b := ringbuf.New(16, 4)
	done := make(chan int, 1)

	out := make([]byte, 16)
	go func() {
		done <- b.Receive(out, ringbuf.Forever)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Send([]byte("ab"), ringbuf.Forever) // below trigger, must not unblock yet

	select {
	case <-done:
		t.Fatal("receive unblocked before trigger level was reached")
	case <-time.After(30 * time.Millisecond):
	}

	b.Send([]byte("cd"), ringbuf.Forever) // now at trigger level

	select {
	case n := <-done:
		require.GreaterOrEqual(t, n, 4)
	case <-time.After(time.Second):
		t.Fatal("receive never unblocked at trigger level")
	}
}

func TestDrainAndAppendTail(t *testing.T) {
	src := ringbuf.New(8, 1)
	dst := ringbuf.New(8, 1)

	src.Send([]byte("12"), ringbuf.Forever)
	residual := src.Drain()
	require.Equal(t, "12", string(residual))
	require.Equal(t, 0, src.BytesAvailable())

	dst.AppendTail(residual)
	out := make([]byte, 8)
	n := dst.Receive(out, 0)
	require.Equal(t, "12", string(out[:n]))
}
