package graph

import "sort"

// lockSet acquires write locks on a collection of vertices in ascending
// VertexIndex order, and read locks on a second collection (the back-edge
// vertices whose parents entries are being patched), also in ascending
// order, as required by spec §5 ("Locks are acquired in vertex-id order to
// forbid cycles"). It returns a release function that must be deferred.
//
// The same vertex must never appear in both sets; callers are responsible
// for that invariant (store.go never overlaps them).
func lockSet[A comparable](writes []*Vertex[A], reads []*Vertex[A]) (release func()) {
	type step struct {
		v     *Vertex[A]
		write bool
	}
	steps := make([]step, 0, len(writes)+len(reads))
	for _, v := range writes {
		steps = append(steps, step{v, true})
	}
	for _, v := range reads {
		steps = append(steps, step{v, false})
	}
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].v.index < steps[j].v.index
	})

	for _, s := range steps {
		if s.write {
			s.v.Lock()
		} else {
			s.v.RLock()
		}
	}

	return func() {
		for i := len(steps) - 1; i >= 0; i-- {
			s := steps[i]
			if s.write {
				s.v.Unlock()
			} else {
				s.v.RUnlock()
			}
		}
	}
}
