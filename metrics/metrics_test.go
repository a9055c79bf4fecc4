package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/flipperdevices/furipipe/metrics"
)

func TestAllocatedAndDeallocated(t *testing.T) {
	r := metrics.NewRecorder(prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		r.Allocated()
		r.Allocated()
		r.Deallocated(false)
		r.Deallocated(true)
	})
}

func TestBrokenThenDeallocatedDoesNotPanic(t *testing.T) {
	r := metrics.NewRecorder(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		r.Allocated()
		r.Broken()
		r.Deallocated(true)
	})
}

func TestWeldedAndUnweldedDoNotPanicOnNilRecorder(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.Allocated()
		r.Welded()
		r.Unwelded()
		r.Broken()
		r.Deallocated(false)
		r.SetBufferFill("chain-1", "alice_to_bob", 10)
	})
}

func TestSetBufferFillDoesNotPanic(t *testing.T) {
	r := metrics.NewRecorder(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		r.SetBufferFill("chain-1", "alice_to_bob", 128)
		r.SetBufferFill("chain-1", "bob_to_alice", 0)
	})
}
