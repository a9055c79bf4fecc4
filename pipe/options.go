package pipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/flipperdevices/furipipe/metrics"
	"github.com/flipperdevices/furipipe/registry"
)

// Settings are the direction settings captured at allocation time: how
// large the underlying stream buffer is, and how many bytes must be
// queued before a blocked Receive unblocks (or a readable event fires).
//
// 0 < TriggerLevel <= Capacity must hold; Allocate panics otherwise.
type Settings struct {
	Capacity     int
	TriggerLevel int
}

// DefaultSettings is a reasonable symmetric default: a 4 KiB buffer that
// wakes a blocked Receive as soon as any byte is available.
var DefaultSettings = Settings{
	Capacity:     4096,
	TriggerLevel: 1,
}

// AllocOptions configures Allocate. The zero value is usable:
// it yields DefaultSettings in both directions, weldable endpoints, a
// no-op logger, and no metrics.
type AllocOptions struct {
	// ToAlice/ToBob are the direction settings for the B->A and A->B
	// stream buffers, respectively. Zero values are replaced with
	// DefaultSettings.
	ToAlice Settings
	ToBob   Settings

	// NotWeldable, if true, skips the per-endpoint mutex and makes the
	// resulting endpoints permanently ineligible for Weld: a pipe that will
	// never be spliced into a chain has no locking to do. The zero value
	// (false) leaves endpoints weldable.
	NotWeldable bool

	// Logger receives chain lifecycle events (allocation, weld, free,
	// broken). Defaults to a no-op logger.
	Logger *zerolog.Logger

	// Recorder, if non-nil, receives Prometheus metrics for this chain.
	Recorder *metrics.Recorder

	// Registry, if non-nil, tracks this chain for introspection.
	Registry *registry.Registry
}

func (o AllocOptions) withDefaults() AllocOptions {
	if o.ToAlice.Capacity == 0 {
		o.ToAlice = DefaultSettings
	}
	if o.ToBob.Capacity == 0 {
		o.ToBob = DefaultSettings
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// NewRecorder is a small convenience matching cloudflared's pattern of a
// package-level constructor for a fresh, self-contained registry: useful
// for a single process embedding exactly one furipipe instance.
func NewRecorder() *metrics.Recorder {
	return metrics.NewRecorder(prometheus.NewRegistry())
}
