// Package intern provides lock-free concurrent maps used by the graph store
// to intern atoms and canonical pattern signatures without ever blocking a
// reader against a writer working on an unrelated key.
package intern

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Map is a thin, typed wrapper around [xsync.MapOf] that additionally hands
// back whether a value was freshly inserted, which is the only extra bit the
// store needs on top of a plain concurrent map.
type Map[K comparable, V any] struct {
	m *xsync.MapOf[K, V]
}

// New creates an empty interning map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: xsync.NewMapOf[K, V]()}
}

// NewPresized creates an empty interning map sized to hold about n entries
// without resizing its internal shards.
func NewPresized[K comparable, V any](n int) *Map[K, V] {
	return &Map[K, V]{m: xsync.NewMapOf[K, V](xsync.WithPresize(n))}
}

// GetOrStore returns the existing value for key if present; otherwise it
// stores value and returns it. The second return value reports whether the
// returned value was already present (true) or just inserted (false).
func (m *Map[K, V]) GetOrStore(key K, value V) (actual V, loaded bool) {
	return m.m.LoadOrStore(key, value)
}

// Load returns the value stored for key, if any.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	return m.m.Load(key)
}

// Store unconditionally sets the value for key, overwriting any previous
// entry. Used when a vertex is replaced in place (e.g. append_to_pattern)
// and the canonical-signature map must follow the replacement.
func (m *Map[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// Delete removes key from the map, if present.
func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Len returns the number of entries currently interned.
func (m *Map[K, V]) Len() int {
	return m.m.Size()
}

// Range calls f sequentially for each key/value pair. Range does not
// necessarily correspond to any consistent snapshot of the Map's contents.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(f)
}
