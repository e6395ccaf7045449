package graph

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/mvvarga/patterngraph/internal/intern"
)

// Store owns every vertex of one graph instance: a dense index space, a
// concurrent atom-interning map, a concurrent canonical-pattern-signature
// map, and the per-vertex locks that let reads of distinct vertices proceed
// fully in parallel (spec §4.1, §5). It is the only shared mutable resource
// in the engine (spec §5 "Shared-resource policy").
type Store[A comparable] struct {
	// vertices is grown by copy-then-atomic-swap, the same discipline fox's
	// Tree uses for its root node list (tree.go addRoot/updateRoot): readers
	// load the current slice once and never see it mutated in place, only
	// replaced wholesale.
	vertices atomic.Pointer[[]*Vertex[A]]
	growMu   sync.Mutex // serializes structural growth of the vertex table

	nextIndex atomic.Uint64 // lock-free vertex-id counter (spec §4.1)

	atoms      *intern.Map[A, VertexIndex]
	patternSig *intern.Map[string, VertexIndex]

	race atomic.Bool // guards the single-writer discipline of structural ops
}

func newStore[A comparable](shardHint int) *Store[A] {
	s := &Store[A]{}
	empty := make([]*Vertex[A], 0)
	s.vertices.Store(&empty)
	if shardHint > 0 {
		s.atoms = intern.NewPresized[A, VertexIndex](shardHint)
		s.patternSig = intern.NewPresized[string, VertexIndex](shardHint)
	} else {
		s.atoms = intern.New[A, VertexIndex]()
		s.patternSig = intern.New[string, VertexIndex]()
	}
	return s
}

// beginWrite/endWrite bracket a structural mutation (adding a vertex,
// growing the table), panicking on reentrant concurrent use exactly like
// fox's Tree.race CompareAndSwap guard in tree.go.
func (s *Store[A]) beginWrite() {
	if !s.race.CompareAndSwap(false, true) {
		panic(ErrConcurrentWrite)
	}
}

func (s *Store[A]) endWrite() {
	s.race.Store(false)
}

// Vertex returns the vertex at index, or nil if index is out of range.
func (s *Store[A]) Vertex(index VertexIndex) *Vertex[A] {
	nds := *s.vertices.Load()
	if int(index) >= len(nds) {
		return nil
	}
	return nds[index]
}

// Len returns the number of vertices currently in the store.
func (s *Store[A]) Len() int {
	return len(*s.vertices.Load())
}

// addVertex appends a newly constructed vertex to the dense table. Must be
// called under beginWrite/endWrite.
func (s *Store[A]) addVertex(v *Vertex[A]) {
	s.growMu.Lock()
	defer s.growMu.Unlock()
	nds := *s.vertices.Load()
	newNds := make([]*Vertex[A], 0, len(nds)+1)
	newNds = append(newNds, nds...)
	newNds = append(newNds, v)
	s.vertices.Store(&newNds)
}

// signature builds a canonical, collision-resistant key for a token
// sequence: equal sequences of (VertexIndex) always yield equal signatures,
// and since width is immutable per index, two equal-signature sequences
// denote the same composition (spec §4.1 "returns an existing vertex with
// the identical pattern").
func signature(tokens []Token) string {
	buf := make([]byte, 8*len(tokens))
	for i, t := range tokens {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(t.Index))
	}
	return string(buf)
}

// InsertAtom interns atom, returning its existing token if already
// interned, or allocating a fresh width-1 vertex for it (spec §4.1
// "insert_atom").
func (s *Store[A]) InsertAtom(atom A) Token {
	if existing, ok := s.atoms.Load(atom); ok {
		return Token{Index: existing, Width: 1}
	}

	s.beginWrite()
	defer s.endWrite()

	// Re-check under the write guard: a concurrent writer that interned the
	// same atom would have panicked on beginWrite rather than raced us here,
	// but the optimistic load above happened before we held the guard.
	if existing, ok := s.atoms.Load(atom); ok {
		return Token{Index: existing, Width: 1}
	}

	idx := VertexIndex(s.nextIndex.Add(1) - 1)
	v := newAtomVertex[A](idx, atom)
	s.addVertex(v)
	s.atoms.Store(atom, idx)
	return Token{Index: idx, Width: 1}
}

func widthSum(tokens []Token) uint32 {
	var w uint32
	for _, t := range tokens {
		w += t.Width
	}
	return w
}

// InsertPattern creates a new vertex with a single child pattern, or returns
// the existing vertex recorded for an identical token sequence
// (spec §4.1 "insert_pattern").
func (s *Store[A]) InsertPattern(children []Token) (Token, error) {
	if len(children) == 0 {
		return Token{}, ErrEmptyPattern
	}
	if len(children) == 1 {
		return Token{}, &SingleIndexError{Token: children[0]}
	}

	sig := signature(children)
	if existing, ok := s.patternSig.Load(sig); ok {
		v := s.Vertex(existing)
		return v.Token(), nil
	}

	s.beginWrite()
	defer s.endWrite()

	if existing, ok := s.patternSig.Load(sig); ok {
		return s.Vertex(existing).Token(), nil
	}

	width := widthSum(children)
	idx := VertexIndex(s.nextIndex.Add(1) - 1)
	v := newCompositeVertex[A](idx, width)
	pid := newPatternId()
	v.children.Set(pid, &Pattern{ID: pid, Tokens: append([]Token(nil), children...)})

	if err := s.attachPattern(v, pid); err != nil {
		return Token{}, err
	}

	s.addVertex(v)
	s.patternSig.Store(sig, idx)
	return v.Token(), nil
}

// InsertPatterns creates a vertex with several alternative child patterns,
// all of equal total width (spec §4.1 "insert_patterns").
func (s *Store[A]) InsertPatterns(childrenList [][]Token) (Token, error) {
	if len(childrenList) == 0 {
		return Token{}, ErrEmptyPattern
	}

	first, err := s.InsertPattern(childrenList[0])
	if err != nil {
		return Token{}, err
	}
	if len(childrenList) == 1 {
		return first, nil
	}

	expected := widthSum(childrenList[0])
	for _, children := range childrenList[1:] {
		if widthSum(children) != expected {
			return Token{}, &VertexIntegrityError{Vertex: first.Index, Invariant: "I1", Detail: "alternative patterns must share the vertex's width"}
		}
		if err := s.AddPatternWithUpdate(first, children); err != nil {
			return Token{}, err
		}
	}
	return first, nil
}

// AddPatternWithUpdate adds an alternative pattern to an existing vertex
// without re-indexing its existing tokens (spec §4.1
// "add_pattern_with_update").
func (s *Store[A]) AddPatternWithUpdate(token Token, pattern []Token) error {
	if len(pattern) < 2 {
		return &SingleIndexError{Token: token}
	}
	v := s.Vertex(token.Index)
	if v == nil {
		return ErrInvalidPattern
	}

	s.beginWrite()
	defer s.endWrite()

	if widthSum(pattern) != v.width {
		return &VertexIntegrityError{Vertex: v.index, Invariant: "I1", Detail: "new alternative pattern does not sum to the vertex's width"}
	}

	pid := newPatternId()

	v.Lock()
	v.children.Set(pid, &Pattern{ID: pid, Tokens: append([]Token(nil), pattern...)})
	v.Unlock()

	if err := s.attachPattern(v, pid); err != nil {
		return err
	}
	return nil
}

// AppendToPattern extends a vertex's sole child pattern in place: only legal
// when the vertex has exactly one pattern and no parents, since any
// observer holding the vertex's old width would otherwise be invalidated
// (spec §4.1 "append_to_pattern"). Callers should fall back to InsertPattern
// otherwise.
func (s *Store[A]) AppendToPattern(token Token, pid PatternId, tail []Token) (Token, bool) {
	v := s.Vertex(token.Index)
	if v == nil {
		return Token{}, false
	}

	s.beginWrite()
	defer s.endWrite()

	v.Lock()
	if v.children.Len() != 1 || v.parents.Len() != 0 {
		v.Unlock()
		return Token{}, false
	}
	p, ok := v.children.Get(pid)
	if !ok {
		v.Unlock()
		return Token{}, false
	}
	oldSig := signature(p.Tokens)
	startSub := len(p.Tokens)
	p.Tokens = append(p.Tokens, tail...)
	v.width += widthSum(tail)
	newSig := signature(p.Tokens)
	v.Unlock()

	// The vertex now answers to a wider atom-span than the one patternSig
	// indexed it under; re-key so a later InsertPattern/insertOrSingle call
	// for the extended sequence finds this vertex, while the old, narrower
	// sequence no longer resolves to it.
	s.patternSig.Delete(oldSig)
	s.patternSig.Store(newSig, v.index)

	for i, t := range tail {
		s.attachChild(v, t, SubLocation{Pattern: pid, Sub: startSub + i})
	}

	return v.Token(), true
}

// ReplaceInPattern performs an atomic substring substitution within one
// child pattern: the tokens at [start, end) of pattern pid on vertex v.Token
// are replaced by replacement. Back-edges of removed children are detached
// and back-edges of inserted tokens are attached; sub_index positions of any
// tokens shifted by a length change are renumbered (spec §4.1
// "replace_in_pattern").
func (s *Store[A]) ReplaceInPattern(token Token, pid PatternId, start, end int, replacement []Token) error {
	v := s.Vertex(token.Index)
	if v == nil {
		return ErrInvalidPattern
	}

	s.beginWrite()
	defer s.endWrite()

	v.Lock()
	p, ok := v.children.Get(pid)
	if !ok {
		v.Unlock()
		return ErrInvalidPattern
	}
	if start < 0 || end > len(p.Tokens) || start > end {
		v.Unlock()
		return ErrInvalidChild
	}
	removed := append([]Token(nil), p.Tokens[start:end]...)
	kept := widthSum(p.Tokens[:start]) + widthSum(replacement) + widthSum(p.Tokens[end:])
	if kept != v.width {
		v.Unlock()
		return &VertexIntegrityError{Vertex: v.index, Invariant: "I1", Detail: "replacement changes the pattern's total width"}
	}

	newTokens := make([]Token, 0, len(p.Tokens)-(end-start)+len(replacement))
	newTokens = append(newTokens, p.Tokens[:start]...)
	newTokens = append(newTokens, replacement...)
	newTokens = append(newTokens, p.Tokens[end:]...)
	p.Tokens = newTokens
	v.Unlock()

	// Detach removed children at their old sub-positions.
	for i, t := range removed {
		s.detachChild(v, t, SubLocation{Pattern: pid, Sub: start + i})
	}
	// Renumber the tail that shifted.
	shift := len(replacement) - (end - start)
	if shift != 0 {
		for i := end + shift; i < len(newTokens); i++ {
			oldSub := i - shift
			s.renumberChild(v, newTokens[i], pid, oldSub, i)
		}
	}
	// Attach newly inserted children at their new sub-positions.
	for i, t := range replacement {
		s.attachChild(v, t, SubLocation{Pattern: pid, Sub: start + i})
	}

	return nil
}

// attachPattern registers back-edges for every token of a freshly added
// pattern (which establishes I5), then validates I1-I4 before returning.
func (s *Store[A]) attachPattern(v *Vertex[A], pid PatternId) error {
	v.RLock()
	p, ok := v.children.Get(pid)
	v.RUnlock()
	if !ok {
		return ErrInvalidPattern
	}
	for i, t := range p.Tokens {
		s.attachChild(v, t, SubLocation{Pattern: pid, Sub: i})
	}
	v.RLock()
	err := v.validate()
	v.RUnlock()
	return err
}

func (s *Store[A]) attachChild(parent *Vertex[A], child Token, at SubLocation) {
	cv := s.Vertex(child.Index)
	if cv == nil || cv == parent {
		return
	}
	release := lockSet[A]([]*Vertex[A]{cv}, nil)
	defer release()

	edge, ok := cv.parents.Get(parent.index)
	if !ok {
		edge = &ParentEdge{Width: parent.width}
		cv.parents.Set(parent.index, edge)
	}
	edge.addLocation(at)
}

func (s *Store[A]) detachChild(parent *Vertex[A], child Token, at SubLocation) {
	cv := s.Vertex(child.Index)
	if cv == nil || cv == parent {
		return
	}
	cv.Lock()
	defer cv.Unlock()
	edge, ok := cv.parents.Get(parent.index)
	if !ok {
		return
	}
	edge.removeLocation(at)
	if len(edge.Locations) == 0 {
		cv.parents.Delete(parent.index)
	}
}

func (s *Store[A]) renumberChild(parent *Vertex[A], child Token, pid PatternId, oldSub, newSub int) {
	cv := s.Vertex(child.Index)
	if cv == nil || cv == parent {
		return
	}
	cv.Lock()
	defer cv.Unlock()
	edge, ok := cv.parents.Get(parent.index)
	if !ok {
		return
	}
	for i, l := range edge.Locations {
		if l.Pattern == pid && l.Sub == oldSub {
			edge.Locations[i].Sub = newSub
		}
	}
}
