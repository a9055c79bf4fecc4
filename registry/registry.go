// Package registry implements an id-indexed directory of live pipe chains.
//
// This is an arena of chains indexed by a stable id, the alternative to
// plain refcounted ownership. It is a read-side convenience for
// introspection and metrics collection, not the teardown mechanism itself:
// chains are still destroyed by refcounting (see internal/semaphore), and
// Remove is called from that teardown path.
package registry

import "github.com/puzpuzpuz/xsync/v3"

// Entry is anything a Registry can track: a chain identified by a stable,
// never-reused id (a github.com/google/uuid string, in practice).
type Entry interface {
	ChainID() string
}

// Registry is a concurrent id -> Entry directory, safe for use from any
// number of goroutines without external locking.
type Registry struct {
	chains *xsync.MapOf[string, Entry]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{chains: xsync.NewMapOf[string, Entry]()}
}

// Add registers e under its ChainID, overwriting any previous entry with
// the same id (ids are expected to be unique for the lifetime of a chain).
func (r *Registry) Add(e Entry) {
	r.chains.Store(e.ChainID(), e)
}

// Remove unregisters the entry with the given id, if present.
func (r *Registry) Remove(id string) {
	r.chains.Delete(id)
}

// Get returns the entry registered under id, if any.
func (r *Registry) Get(id string) (Entry, bool) {
	return r.chains.Load(id)
}

// Len returns the number of currently registered entries.
func (r *Registry) Len() int {
	return r.chains.Size()
}

// Range calls f for every registered entry until f returns false or all
// entries have been visited. The iteration order is unspecified.
func (r *Registry) Range(f func(Entry) bool) {
	r.chains.Range(func(_ string, e Entry) bool {
		return f(e)
	})
}
