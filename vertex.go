package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mvvarga/patterngraph/internal/omap"
)

// VertexIndex densely identifies a vertex within a single [Graph] instance.
// Indices are assigned by an atomic, lock-free counter and are never reused
// within a session (spec §3 "Lifecycle").
type VertexIndex uint64

// PatternId stably identifies one child pattern (one alternative
// decomposition) among the possibly-several recorded on a vertex. Modeled as
// a UUID rather than a sequential counter so that patterns created on
// different vertices, possibly by concurrent writers, never collide without
// any shared counter (spec GLOSSARY: "64-bit or UUID").
type PatternId = uuid.UUID

// newPatternId allocates a fresh, collision-free pattern identifier.
func newPatternId() PatternId {
	return uuid.New()
}

// Token is the engine's unit of traversal: a vertex index paired with that
// vertex's width, copied by value so hot comparison loops never chase a
// pointer just to learn a width (spec §3 "Token").
type Token struct {
	Index VertexIndex
	Width uint32
}

func (t Token) String() string {
	return fmt.Sprintf("#%d(w=%d)", t.Index, t.Width)
}

// SubLocation names a position inside one child pattern: the pattern it
// belongs to, and the token's ordinal position within that pattern.
type SubLocation struct {
	Pattern PatternId
	Sub     int
}

// ChildLocation names a slot in the graph: the parent token a descent step
// left, plus the SubLocation it entered.
type ChildLocation struct {
	ParentToken Token
	At          SubLocation
}

// ParentEdge is the back-edge payload recorded in a vertex's parents mapping:
// the parent's width, plus every (pattern, sub_index) position at which the
// owning vertex occurs as a child of that parent (a vertex may appear more
// than once in the same pattern, or in several alternative patterns).
type ParentEdge struct {
	Width     uint32
	Locations []SubLocation
}

func (p *ParentEdge) addLocation(loc SubLocation) {
	for _, l := range p.Locations {
		if l == loc {
			return
		}
	}
	p.Locations = append(p.Locations, loc)
}

func (p *ParentEdge) removeLocation(loc SubLocation) {
	for i, l := range p.Locations {
		if l == loc {
			p.Locations = append(p.Locations[:i], p.Locations[i+1:]...)
			return
		}
	}
}

// Pattern is a non-empty ordered sequence of tokens whose widths sum to the
// width of the vertex that owns it: one canonical decomposition of that
// vertex's span of atoms.
type Pattern struct {
	ID     PatternId
	Tokens []Token
}

func (p *Pattern) width() uint32 {
	var w uint32
	for _, t := range p.Tokens {
		w += t.Width
	}
	return w
}

// cumulativeOffsets returns, for each token in order, the atom-offset at
// which that token starts within the pattern (prefix sums of widths). Used
// throughout the split engine (spec §4.6) to locate cuts.
func (p *Pattern) cumulativeOffsets() []uint32 {
	offs := make([]uint32, len(p.Tokens))
	var acc uint32
	for i, t := range p.Tokens {
		offs[i] = acc
		acc += t.Width
	}
	return offs
}

// Vertex is a node of the hypergraph: an indexed token that stands either
// for an atomic symbol (isAtom) or for one-or-more alternative child
// patterns decomposing the same span of atoms (spec §3 "Vertex").
//
// Each vertex is guarded by its own RWMutex (spec §5): reads of a single
// vertex's fields may proceed concurrently with reads of any other vertex,
// and a write to this vertex excludes only readers/writers of this vertex.
type Vertex[A comparable] struct {
	mu sync.RWMutex

	index VertexIndex
	width uint32

	isAtom bool
	atom   A // meaningful only if isAtom

	parents  *omap.Map[VertexIndex, *ParentEdge]
	children *omap.Map[PatternId, *Pattern]
}

func newAtomVertex[A comparable](index VertexIndex, atom A) *Vertex[A] {
	return &Vertex[A]{
		index:    index,
		width:    1,
		isAtom:   true,
		atom:     atom,
		parents:  omap.New[VertexIndex, *ParentEdge](),
		children: omap.New[PatternId, *Pattern](),
	}
}

func newCompositeVertex[A comparable](index VertexIndex, width uint32) *Vertex[A] {
	return &Vertex[A]{
		index:    index,
		width:    width,
		parents:  omap.New[VertexIndex, *ParentEdge](),
		children: omap.New[PatternId, *Pattern](),
	}
}

// Index returns the vertex's dense identity.
func (v *Vertex[A]) Index() VertexIndex {
	return v.index
}

// Token returns the (index, width) pair identifying this vertex as a token.
// Width only changes when [Store.AppendToPattern] extends a vertex that has a
// single pattern and no parents (under v's write lock); this method reads it
// without taking v's lock.
func (v *Vertex[A]) Token() Token {
	return Token{Index: v.index, Width: v.width}
}

// Width returns the vertex's width in atoms.
func (v *Vertex[A]) Width() uint32 {
	return v.width
}

// IsAtom reports whether this vertex stands for an atomic symbol rather than
// a composite of child patterns.
func (v *Vertex[A]) IsAtom() bool {
	return v.isAtom
}

// Atom returns the interned atom this vertex stands for, and whether the
// vertex is in fact atomic.
func (v *Vertex[A]) Atom() (A, bool) {
	return v.atom, v.isAtom
}

// PatternCount returns the number of alternative child patterns recorded on
// this vertex. Callers should hold at least a read lock (see [Vertex.RLock]).
func (v *Vertex[A]) PatternCount() int {
	return v.children.Len()
}

// Pattern returns the child pattern with the given id, if any.
func (v *Vertex[A]) Pattern(id PatternId) (*Pattern, bool) {
	return v.children.Get(id)
}

// Patterns returns all child patterns in insertion order (spec §9 Q3: tests
// rely on insertion order, never on width or any other derived order).
func (v *Vertex[A]) Patterns() []*Pattern {
	return v.children.Values()
}

// ParentOf returns the back-edge entry for the given parent vertex, if any.
func (v *Vertex[A]) ParentOf(parent VertexIndex) (*ParentEdge, bool) {
	return v.parents.Get(parent)
}

// Parents returns the set of vertex indices that list this vertex as a
// child, in insertion order.
func (v *Vertex[A]) Parents() []VertexIndex {
	return v.parents.Keys()
}

// RLock/RUnlock/Lock/Unlock expose the vertex's guard directly so traversal
// code (which must hold a read lock only for the duration of a single visit,
// spec §5) is not forced to go through accessor methods for every field read.

func (v *Vertex[A]) RLock()   { v.mu.RLock() }
func (v *Vertex[A]) RUnlock() { v.mu.RUnlock() }
func (v *Vertex[A]) Lock()    { v.mu.Lock() }
func (v *Vertex[A]) Unlock()  { v.mu.Unlock() }

// validate checks invariants I1-I4 (the ones checkable from a single vertex
// in isolation; I4 as "no pattern contains the vertex itself") against the
// current children mapping. I5 spans two vertices and is not checked here or
// elsewhere: the store establishes it by recording each back-edge in
// attachChild (see store.go). Callers must hold at least a read lock.
func (v *Vertex[A]) validate() error {
	if v.children.Len() == 0 {
		return nil
	}
	for _, p := range v.children.Values() {
		if len(p.Tokens) == 0 {
			return &VertexIntegrityError{Vertex: v.index, Invariant: "I1", Detail: "empty child pattern"}
		}
		if len(p.Tokens) == 1 {
			return &VertexIntegrityError{Vertex: v.index, Invariant: "I2", Detail: "single-token child pattern would duplicate the vertex itself"}
		}
		if p.width() != v.width {
			return &VertexIntegrityError{
				Vertex:    v.index,
				Invariant: "I1",
				Detail:    fmt.Sprintf("pattern %s sums to width %d, vertex width is %d", p.ID, p.width(), v.width),
			}
		}
		seen := make(map[uint32]struct{}, len(p.Tokens))
		var acc uint32
		for _, t := range p.Tokens {
			if t.Index == v.index {
				return &VertexIntegrityError{Vertex: v.index, Invariant: "I4", Detail: "vertex contains itself as a child"}
			}
			if acc > 0 {
				if _, dup := seen[acc]; dup {
					return &VertexIntegrityError{Vertex: v.index, Invariant: "I3", Detail: "duplicate cut point within one pattern"}
				}
				seen[acc] = struct{}{}
			}
			acc += t.Width
		}
	}
	return nil
}
