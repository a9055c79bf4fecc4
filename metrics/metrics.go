// Package metrics instruments the pipe core with Prometheus gauges and
// counters, grounded on the pattern cloudflared's connection/h2mux metrics
// use throughout (a small struct of pre-registered GaugeVec/Counter
// fields, namespace/subsystem constants, Set/Inc calls from the hot path).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace and subsystem labels, mirroring connection.MetricsNamespace /
// connection.TunnelSubsystem in cloudflared's connection/metrics.go.
const (
	Namespace      = "furipipe"
	ChainSubsystem = "chain"
)

// Recorder holds the metrics a Chain reports over its lifetime. The zero
// value is not usable; use NewRecorder.
type Recorder struct {
	openChains    prometheus.Gauge
	brokenChains  prometheus.Gauge
	welds         prometheus.Counter
	unwelds       prometheus.Counter
	allocations   prometheus.Counter
	deallocations prometheus.Counter
	bufferFill    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with any
// process-wide default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		openChains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "open",
			Help:      "Number of pipe chains currently in the Open state.",
		}),
		brokenChains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "broken",
			Help:      "Number of pipe chains currently in the Broken state.",
		}),
		welds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "welds_total",
			Help:      "Total number of successful welds performed.",
		}),
		unwelds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "unwelds_total",
			Help:      "Total number of successful unwelds performed.",
		}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "allocations_total",
			Help:      "Total number of chains allocated.",
		}),
		deallocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "deallocations_total",
			Help:      "Total number of chains fully torn down.",
		}),
		bufferFill: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ChainSubsystem,
			Name:      "buffer_bytes",
			Help:      "Bytes currently queued per chain and direction.",
		}, []string{"chain_id", "direction"}),
	}

	reg.MustRegister(
		r.openChains,
		r.brokenChains,
		r.welds,
		r.unwelds,
		r.allocations,
		r.deallocations,
		r.bufferFill,
	)
	return r
}

// Allocated records a new chain coming into existence.
func (r *Recorder) Allocated() {
	if r == nil {
		return
	}
	r.allocations.Inc()
	r.openChains.Inc()
}

// Broken records a chain transitioning Open -> Broken.
func (r *Recorder) Broken() {
	if r == nil {
		return
	}
	r.openChains.Dec()
	r.brokenChains.Inc()
}

// Deallocated records a chain being fully torn down, from either state.
func (r *Recorder) Deallocated(wasBroken bool) {
	if r == nil {
		return
	}
	r.deallocations.Inc()
	if wasBroken {
		r.brokenChains.Dec()
	} else {
		r.openChains.Dec()
	}
}

// Welded records a successful weld merging two chains into one.
func (r *Recorder) Welded() {
	if r == nil {
		return
	}
	r.welds.Inc()
	r.openChains.Dec() // two chains become one
}

// Unwelded records a successful unweld splitting one chain into two. The
// two replacement chains each call Allocated on their own via newChain, so
// this only needs to retire the chain being split.
func (r *Recorder) Unwelded() {
	if r == nil {
		return
	}
	r.unwelds.Inc()
	r.openChains.Dec()
}

// SetBufferFill reports the current queued-byte count for one direction of
// one chain.
func (r *Recorder) SetBufferFill(chainID, direction string, bytesQueued int) {
	if r == nil {
		return
	}
	r.bufferFill.WithLabelValues(chainID, direction).Set(float64(bytesQueued))
}
